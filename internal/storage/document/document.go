// Package document splits a snapshot into one JSON document per collection,
// the layout shared by the document-oriented stores.
package document

import (
	"encoding/json"
	"fmt"

	"expensebuddy/internal/core"
)

const DefaultNamespace = "expenseBuddy"

const (
	CollectionUser         = "user"
	CollectionTransactions = "transactions"
	CollectionBudgets      = "budgets"
	CollectionGoals        = "goals"
	CollectionCategories   = "categories"
	CollectionAlerts       = "alerts"
)

// Collections lists every collection in save order.
var Collections = []string{
	CollectionUser,
	CollectionTransactions,
	CollectionBudgets,
	CollectionGoals,
	CollectionCategories,
	CollectionAlerts,
}

// Split encodes each part of snap as its own JSON document.
func Split(snap core.Snapshot) (map[string][]byte, error) {
	parts := map[string]any{
		CollectionUser:         snap.User,
		CollectionTransactions: snap.Transactions,
		CollectionBudgets:      snap.Budgets,
		CollectionGoals:        snap.Goals,
		CollectionCategories:   snap.Categories,
		CollectionAlerts:       snap.Alerts,
	}
	out := make(map[string][]byte, len(parts))
	for name, v := range parts {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		out[name] = b
	}
	return out, nil
}

// Join decodes documents produced by Split. Missing collections stay empty;
// unknown ones are ignored.
func Join(docs map[string][]byte) (core.Snapshot, error) {
	var snap core.Snapshot
	targets := map[string]any{
		CollectionUser:         &snap.User,
		CollectionTransactions: &snap.Transactions,
		CollectionBudgets:      &snap.Budgets,
		CollectionGoals:        &snap.Goals,
		CollectionCategories:   &snap.Categories,
		CollectionAlerts:       &snap.Alerts,
	}
	for name, body := range docs {
		dst, ok := targets[name]
		if !ok || len(body) == 0 {
			continue
		}
		if err := json.Unmarshal(body, dst); err != nil {
			return core.Snapshot{}, fmt.Errorf("decode %s: %w", name, err)
		}
	}
	return snap, nil
}
