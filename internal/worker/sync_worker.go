// Package worker applies ledger events to the spreadsheet mirror.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"expensebuddy/internal/amqp"
	applog "expensebuddy/internal/log"
	"expensebuddy/internal/sheets"
)

// SyncWorker keeps one sheet row per ledger transaction.
type SyncWorker struct {
	mirror sheets.Mirror
	logger *applog.Logger

	processed atomic.Int64
	failed    atomic.Int64
	lastEvent atomic.Int64 // unix seconds
}

func NewSyncWorker(mirror sheets.Mirror, logger *applog.Logger) *SyncWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &SyncWorker{
		mirror: mirror,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleEvent applies ev. A returned error asks the broker to redeliver.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	err := w.apply(ctx, ev)
	w.lastEvent.Store(time.Now().Unix())
	if err != nil {
		w.failed.Add(1)
		return err
	}
	w.processed.Add(1)
	return nil
}

func (w *SyncWorker) apply(ctx context.Context, ev *amqp.LedgerEvent) error {
	switch ev.Type {
	case amqp.EventTransactionCreated:
		return w.appendRow(ctx, ev)

	case amqp.EventTransactionUpdated:
		if err := w.deleteRow(ctx, ev.Transaction.ID); err != nil {
			return err
		}
		return w.appendRow(ctx, ev)

	case amqp.EventTransactionDeleted:
		return w.deleteRow(ctx, ev.Transaction.ID)

	case amqp.EventAlertRaised:
		w.logger.InfoContext(ctx, "Budget alert",
			applog.FieldAlertID, ev.Alert.ID,
			applog.FieldSeverity, string(ev.Alert.Severity),
			"message", ev.Alert.Message)
		return nil

	default:
		return fmt.Errorf("%w: %q", amqp.ErrUnknownEvent, ev.Type)
	}
}

func (w *SyncWorker) appendRow(ctx context.Context, ev *amqp.LedgerEvent) error {
	tx := *ev.Transaction
	ref, err := w.mirror.AppendTransaction(ctx, tx)
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	w.logger.InfoContext(ctx, "Synced transaction",
		append(applog.NewFields().
			WithOperation(applog.OpSync).
			WithTransaction(tx.ID, string(tx.Kind), tx.Category, tx.Amount.Cents).
			ToSlice(), "row", ref, applog.FieldEventType, ev.Type)...)
	return nil
}

// deleteRow treats a missing row as already deleted so redelivery is harmless.
func (w *SyncWorker) deleteRow(ctx context.Context, id string) error {
	err := w.mirror.DeleteTransaction(ctx, id)
	if errors.Is(err, sheets.ErrRowNotFound) {
		w.logger.DebugContext(ctx, "No row to delete", applog.FieldTransactionID, id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete row: %w", err)
	}
	w.logger.InfoContext(ctx, "Removed transaction row", applog.FieldTransactionID, id)
	return nil
}

// StartupCheck verifies the mirror is reachable before consuming.
func (w *SyncWorker) StartupCheck(ctx context.Context) error {
	rows, err := w.mirror.ListTransactions(ctx)
	if err != nil {
		return fmt.Errorf("read mirror: %w", err)
	}
	w.logger.InfoContext(ctx, "Mirror reachable", "rows", len(rows))
	return nil
}

// Stats is a point-in-time view of the worker's counters.
type Stats struct {
	Processed int64      `json:"processed"`
	Failed    int64      `json:"failed"`
	LastEvent *time.Time `json:"lastEvent,omitempty"`
}

func (w *SyncWorker) Stats() Stats {
	s := Stats{Processed: w.processed.Load(), Failed: w.failed.Load()}
	if ts := w.lastEvent.Load(); ts > 0 {
		last := time.Unix(ts, 0).UTC()
		s.LastEvent = &last
	}
	return s
}
