package services

import (
	"context"

	"expensebuddy/internal/amqp"
	"expensebuddy/internal/core"
	"expensebuddy/internal/ledger"
	applog "expensebuddy/internal/log"
)

// EventPublisher delivers ledger events to the outside world.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// LedgerService runs ledger commands and publishes the resulting events.
// Commands without side effects outside the ledger are reached through the
// embedded engine.
type LedgerService struct {
	*ledger.Engine
	publisher EventPublisher
	logger    *applog.Logger
}

// NewLedgerService wires engine to publisher. A nil publisher disables events.
func NewLedgerService(engine *ledger.Engine, publisher EventPublisher, logger *applog.Logger) *LedgerService {
	if logger == nil {
		logger = applog.Discard()
	}
	return &LedgerService{
		Engine:    engine,
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentService),
	}
}

func (s *LedgerService) AddTransaction(ctx context.Context, d ledger.TransactionDraft) (core.Transaction, *core.Alert, error) {
	tx, alert, err := s.Engine.AddTransaction(ctx, d)
	if err != nil {
		return tx, nil, err
	}
	s.publish(ctx, amqp.NewTransactionEvent(amqp.EventTransactionCreated, tx))
	s.publishAlert(ctx, alert)
	return tx, alert, nil
}

func (s *LedgerService) UpdateTransaction(ctx context.Context, id string, p ledger.TransactionPatch) (core.Transaction, *core.Alert, error) {
	tx, alert, err := s.Engine.UpdateTransaction(ctx, id, p)
	if err != nil {
		return tx, nil, err
	}
	s.publish(ctx, amqp.NewTransactionEvent(amqp.EventTransactionUpdated, tx))
	s.publishAlert(ctx, alert)
	return tx, alert, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) (core.Transaction, error) {
	tx, err := s.Engine.DeleteTransaction(ctx, id)
	if err != nil {
		return tx, err
	}
	s.publish(ctx, amqp.NewTransactionEvent(amqp.EventTransactionDeleted, tx))
	return tx, nil
}

func (s *LedgerService) UpdateGoal(ctx context.Context, id string, p ledger.GoalPatch) (core.Goal, *core.Alert, error) {
	g, alert, err := s.Engine.UpdateGoal(ctx, id, p)
	if err != nil {
		return g, nil, err
	}
	s.publishAlert(ctx, alert)
	return g, alert, nil
}

func (s *LedgerService) AddFundsToGoal(ctx context.Context, id string, amount core.Money) (core.Goal, *core.Alert, error) {
	g, alert, err := s.Engine.AddFundsToGoal(ctx, id, amount)
	if err != nil {
		return g, nil, err
	}
	s.publishAlert(ctx, alert)
	return g, alert, nil
}

// publishAlert forwards alert unless the signed-in user muted notifications.
func (s *LedgerService) publishAlert(ctx context.Context, alert *core.Alert) {
	if alert == nil || !s.Engine.NotificationsEnabled() {
		return
	}
	s.publish(ctx, amqp.NewAlertEvent(*alert))
}

// publish never fails the command: the ledger has already been saved.
func (s *LedgerService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No event publisher configured, skipping event",
			applog.FieldEventType, ev.Type)
		return
	}
	if err := s.publisher.PublishEvent(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			append([]any{applog.FieldEventType, ev.Type},
				applog.NewFields().WithOperation(applog.OpPublish).WithError(err, applog.ErrorTypeNetwork).ToSlice()...)...)
	}
}

// Close releases the publisher when it holds a connection.
func (s *LedgerService) Close() error {
	if c, ok := s.publisher.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
