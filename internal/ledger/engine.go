// Package ledger is the budget and transaction engine. It owns the single
// user's snapshot, keeps every budget's Spent cache in step with the
// transaction set and decides when alerts are raised.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"expensebuddy/internal/core"
	applog "expensebuddy/internal/log"
)

var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrPersistence = errors.New("persistence failed")
)

// Store persists whole snapshots. Load reports found=false for a fresh store.
type Store interface {
	Load(ctx context.Context) (core.Snapshot, bool, error)
	Save(ctx context.Context, s core.Snapshot) error
}

// Engine is the state container for one ledger. All commands are serialized.
type Engine struct {
	mu     sync.RWMutex
	store  Store
	now    func() time.Time
	newID  func() string
	logger *applog.Logger
	state  core.Snapshot
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock used for "current month" decisions.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

func WithLogger(l *applog.Logger) Option {
	return func(e *Engine) { e.logger = l.WithComponent(applog.ComponentLedger) }
}

// New builds an engine backed by store. Call Open before issuing commands.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: applog.Discard(),
		state:  core.Snapshot{Categories: core.DefaultCategories()},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Open loads the persisted snapshot. An empty store yields the default categories.
func (e *Engine) Open(ctx context.Context) error {
	snap, found, err := e.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w: %w", ErrPersistence, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !found {
		e.state = core.Snapshot{Categories: core.DefaultCategories()}
		e.logger.InfoContext(ctx, "Starting with an empty ledger", applog.FieldOperation, applog.OpLoad)
		return nil
	}
	e.state = snap.Clone()
	e.rollover(&e.state)
	e.logger.InfoContext(ctx, "Ledger loaded",
		applog.FieldOperation, applog.OpLoad,
		"transactions", len(snap.Transactions),
		"budgets", len(snap.Budgets),
	)
	return nil
}

// Snapshot returns a deep copy of the current state with budgets brought to
// the current month.
func (e *Engine) Snapshot() core.Snapshot {
	e.mu.RLock()
	s := e.state.Clone()
	e.mu.RUnlock()
	e.rollover(&s)
	return s
}

// mutate runs fn against the live state and writes the result through to the
// store. A failing fn or Save leaves the state exactly as it was.
func (e *Engine) mutate(ctx context.Context, op string, fn func(s *core.Snapshot) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	before := e.state.Clone()
	e.rollover(&e.state)
	if err := fn(&e.state); err != nil {
		e.state = before
		return err
	}
	if err := e.store.Save(ctx, e.state.Clone()); err != nil {
		e.state = before
		e.logger.ErrorContext(ctx, "Failed to persist ledger",
			applog.NewFields().
				WithOperation(op).
				WithError(err, applog.ErrorTypeDatabase).
				ToSlice()...)
		return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
	}
	return nil
}

func (e *Engine) currentPeriod() string {
	return core.PeriodOf(e.now())
}

// rollover recomputes budgets whose cache belongs to an earlier month.
func (e *Engine) rollover(s *core.Snapshot) {
	period := e.currentPeriod()
	for i := range s.Budgets {
		if s.Budgets[i].Period == period {
			continue
		}
		s.Budgets[i].Spent = e.monthExpenses(s.Transactions, s.Budgets[i].Category)
		s.Budgets[i].Period = period
	}
}

// monthExpenses sums current-month expenses recorded under category.
func (e *Engine) monthExpenses(txs []core.Transaction, category string) core.Money {
	now := e.now()
	var total core.Money
	for _, t := range txs {
		if t.Kind == core.KindExpense && sameName(t.Category, category) && t.Date.InMonth(now) {
			total = total.Add(t.Amount)
		}
	}
	return total
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func findCategory(s *core.Snapshot, name string) (core.Category, bool) {
	for _, c := range s.Categories {
		if sameName(c.Name, name) {
			return c, true
		}
	}
	return core.Category{}, false
}

func findBudget(s *core.Snapshot, category string) int {
	for i, b := range s.Budgets {
		if sameName(b.Category, category) {
			return i
		}
	}
	return -1
}
