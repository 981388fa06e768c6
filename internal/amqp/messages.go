package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"expensebuddy/internal/core"
)

// Event types published after a ledger command succeeds.
const (
	EventTransactionCreated = "transaction.created"
	EventTransactionUpdated = "transaction.updated"
	EventTransactionDeleted = "transaction.deleted"
	EventAlertRaised        = "alert.raised"
)

var ErrUnknownEvent = errors.New("unknown event type")

// LedgerEvent carries the full record so consumers never read the ledger back.
// Transaction is set for transaction.* events, Alert for alert.raised.
type LedgerEvent struct {
	Type        string            `json:"type"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Alert       *core.Alert       `json:"alert,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// NewTransactionEvent builds a transaction.* event from a copy of tx.
func NewTransactionEvent(eventType string, tx core.Transaction) *LedgerEvent {
	return &LedgerEvent{
		Type:        eventType,
		Transaction: &tx,
		Timestamp:   time.Now().UTC(),
	}
}

func NewAlertEvent(alert core.Alert) *LedgerEvent {
	return &LedgerEvent{
		Type:      EventAlertRaised,
		Alert:     &alert,
		Timestamp: time.Now().UTC(),
	}
}

// Validate checks that the payload matches the event type.
func (e *LedgerEvent) Validate() error {
	switch e.Type {
	case EventTransactionCreated, EventTransactionUpdated, EventTransactionDeleted:
		if e.Transaction == nil || e.Transaction.ID == "" {
			return fmt.Errorf("%s event without transaction", e.Type)
		}
	case EventAlertRaised:
		if e.Alert == nil {
			return fmt.Errorf("%s event without alert", e.Type)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, e.Type)
	}
	return nil
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and validates an event.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}
