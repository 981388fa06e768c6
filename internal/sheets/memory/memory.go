// Package memory is an in-process sheet used when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"expensebuddy/internal/core"
	ports "expensebuddy/internal/sheets"
)

type Sheet struct {
	mu    sync.Mutex
	rows  [][]any
	total int
}

var _ ports.Mirror = (*Sheet)(nil)

func New() *Sheet {
	return &Sheet{}
}

// AppendTransaction stores the row and returns a synthetic row reference.
func (s *Sheet) AppendTransaction(_ context.Context, tx core.Transaction) (string, error) {
	if tx.ID == "" {
		return "", fmt.Errorf("transaction id is required")
	}
	if err := tx.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, ports.Row(tx))
	s.total++
	return fmt.Sprintf("mem:%d", s.total), nil
}

func (s *Sheet) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range s.rows {
		if row[0] == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("transaction %s: %w", id, ports.ErrRowNotFound)
}

// ListTransactions parses the rows back, in sheet order.
func (s *Sheet) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0, len(s.rows))
	for _, row := range s.rows {
		tx, err := ports.ParseRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// Len returns the number of rows currently held.
func (s *Sheet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
