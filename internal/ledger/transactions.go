package ledger

import (
	"context"
	"strings"

	"expensebuddy/internal/core"
	applog "expensebuddy/internal/log"
)

// TransactionDraft is the input of AddTransaction. A zero Date means today
// and an empty Time means the current clock time.
type TransactionDraft struct {
	Amount   core.Money           `json:"amount"`
	Kind     core.TransactionKind `json:"type"`
	Category string               `json:"category"`
	Date     core.Date            `json:"date"`
	Time     string               `json:"time"`
	Notes    string               `json:"notes"`
}

// TransactionPatch replaces the non-nil fields of a stored transaction.
type TransactionPatch struct {
	Amount   *core.Money           `json:"amount,omitempty"`
	Kind     *core.TransactionKind `json:"type,omitempty"`
	Category *string               `json:"category,omitempty"`
	Date     *core.Date            `json:"date,omitempty"`
	Time     *string               `json:"time,omitempty"`
	Notes    *string               `json:"notes,omitempty"`
}

// AddTransaction records a new transaction at the head of the log. A current
// month expense in a budgeted category raises the budget's Spent and may
// produce an alert.
func (e *Engine) AddTransaction(ctx context.Context, d TransactionDraft) (core.Transaction, *core.Alert, error) {
	var (
		created core.Transaction
		alert   *core.Alert
	)
	err := e.mutate(ctx, "add transaction", func(s *core.Snapshot) error {
		now := e.now()
		t := core.Transaction{
			ID:        e.newID(),
			Amount:    d.Amount,
			Kind:      d.Kind,
			Category:  d.Category,
			Date:      d.Date,
			Time:      d.Time,
			Notes:     strings.TrimSpace(d.Notes),
			CreatedAt: now,
		}
		if t.Date.IsEmpty() {
			t.Date = core.NewDate(now.Year(), int(now.Month()), now.Day())
		}
		if t.Time == "" {
			t.Time = now.Format("15:04")
		}
		if err := e.checkTransaction(s, &t); err != nil {
			return err
		}

		s.Transactions = append([]core.Transaction{t}, s.Transactions...)
		alert = e.applyContribution(s, t)
		created = t
		return nil
	})
	if err != nil {
		return core.Transaction{}, nil, err
	}
	e.logger.DebugContext(ctx, "Transaction added",
		applog.NewFields().
			WithOperation(applog.OpCreate).
			WithTransaction(created.ID, string(created.Kind), created.Category, created.Amount.Cents).
			ToSlice()...)
	return created, alert, nil
}

// UpdateTransaction applies patch to transaction id. The old contribution is
// withdrawn from its budget (floored at zero) and the new one is added, so the
// Spent cache follows amount, kind, category and date changes.
func (e *Engine) UpdateTransaction(ctx context.Context, id string, patch TransactionPatch) (core.Transaction, *core.Alert, error) {
	var (
		updated core.Transaction
		alert   *core.Alert
	)
	err := e.mutate(ctx, "update transaction", func(s *core.Snapshot) error {
		idx := findTransaction(s, id)
		if idx < 0 {
			return notFound("transaction", id)
		}
		old := s.Transactions[idx]
		t := old
		if patch.Amount != nil {
			t.Amount = *patch.Amount
		}
		if patch.Kind != nil {
			t.Kind = *patch.Kind
		}
		if patch.Category != nil {
			t.Category = *patch.Category
		}
		if patch.Date != nil {
			t.Date = *patch.Date
		}
		if patch.Time != nil {
			t.Time = *patch.Time
		}
		if patch.Notes != nil {
			t.Notes = strings.TrimSpace(*patch.Notes)
		}
		// An orphaned category is kept unless the patch touches category or kind.
		if patch.Category != nil || patch.Kind != nil {
			if err := e.checkTransaction(s, &t); err != nil {
				return err
			}
		} else if err := t.Validate(); err != nil {
			return validationf("%v", err)
		}

		e.withdrawContribution(s, old)
		s.Transactions[idx] = t
		alert = e.applyContribution(s, t)
		updated = t
		return nil
	})
	if err != nil {
		return core.Transaction{}, nil, err
	}
	e.logger.DebugContext(ctx, "Transaction updated",
		applog.NewFields().
			WithOperation(applog.OpUpdate).
			WithTransaction(updated.ID, string(updated.Kind), updated.Category, updated.Amount.Cents).
			ToSlice()...)
	return updated, alert, nil
}

// DeleteTransaction removes transaction id and returns it. Budgets never go
// below zero and no alert is raised.
func (e *Engine) DeleteTransaction(ctx context.Context, id string) (core.Transaction, error) {
	var removed core.Transaction
	err := e.mutate(ctx, "delete transaction", func(s *core.Snapshot) error {
		idx := findTransaction(s, id)
		if idx < 0 {
			return notFound("transaction", id)
		}
		removed = s.Transactions[idx]
		e.withdrawContribution(s, removed)
		s.Transactions = append(s.Transactions[:idx], s.Transactions[idx+1:]...)
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	e.logger.DebugContext(ctx, "Transaction deleted",
		applog.FieldOperation, applog.OpDelete,
		applog.FieldTransactionID, id,
	)
	return removed, nil
}

// checkTransaction validates t and rewrites its category to the canonical name.
func (e *Engine) checkTransaction(s *core.Snapshot, t *core.Transaction) error {
	if err := t.Validate(); err != nil {
		return validationf("%v", err)
	}
	cat, ok := findCategory(s, t.Category)
	if !ok {
		return validationf("unknown category %q", t.Category)
	}
	if !cat.AppliesTo.Accepts(t.Kind) {
		return validationf("category %q does not accept %s transactions", cat.Name, t.Kind)
	}
	t.Category = cat.Name
	return nil
}

// contributes reports whether t counts towards a budget this month.
func (e *Engine) contributes(t core.Transaction) bool {
	return t.Kind == core.KindExpense && t.Date.InMonth(e.now())
}

func (e *Engine) applyContribution(s *core.Snapshot, t core.Transaction) *core.Alert {
	if !e.contributes(t) {
		return nil
	}
	idx := findBudget(s, t.Category)
	if idx < 0 {
		return nil
	}
	s.Budgets[idx].Spent = s.Budgets[idx].Spent.Add(t.Amount)
	return e.evaluateBudget(s, s.Budgets[idx])
}

func (e *Engine) withdrawContribution(s *core.Snapshot, t core.Transaction) {
	if !e.contributes(t) {
		return
	}
	if idx := findBudget(s, t.Category); idx >= 0 {
		s.Budgets[idx].Spent = s.Budgets[idx].Spent.SubFloor(t.Amount)
	}
}

func findTransaction(s *core.Snapshot, id string) int {
	for i, t := range s.Transactions {
		if t.ID == id {
			return i
		}
	}
	return -1
}
