package ledger

import (
	"context"
	"fmt"
	"math/big"

	"expensebuddy/internal/core"
	applog "expensebuddy/internal/log"
)

// SetBudgetLimit creates or updates the monthly limit of category. A new
// budget starts from the category's current-month expenses; an existing one
// keeps its Spent.
func (e *Engine) SetBudgetLimit(ctx context.Context, category string, limit core.Money) (core.Budget, error) {
	var out core.Budget
	err := e.mutate(ctx, "set budget limit", func(s *core.Snapshot) error {
		if err := limit.Validate(); err != nil {
			return validationf("monthly limit must be positive")
		}
		cat, ok := findCategory(s, category)
		if !ok {
			return validationf("unknown category %q", category)
		}
		if !cat.AppliesTo.Accepts(core.KindExpense) {
			return validationf("category %q does not take expenses", cat.Name)
		}
		if idx := findBudget(s, cat.Name); idx >= 0 {
			s.Budgets[idx].MonthlyLimit = limit
			out = s.Budgets[idx]
			return nil
		}
		out = core.Budget{
			Category:     cat.Name,
			MonthlyLimit: limit,
			Spent:        e.monthExpenses(s.Transactions, cat.Name),
			Period:       e.currentPeriod(),
		}
		s.Budgets = append(s.Budgets, out)
		return nil
	})
	if err != nil {
		return core.Budget{}, err
	}
	e.logger.DebugContext(ctx, "Budget limit set",
		applog.FieldCategory, out.Category,
		applog.FieldAmountCents, out.MonthlyLimit.Cents,
		applog.FieldPeriod, out.Period,
	)
	return out, nil
}

// RecalculateBudgets rebuilds every budget cache from the transaction log.
func (e *Engine) RecalculateBudgets(ctx context.Context) ([]core.Budget, error) {
	var out []core.Budget
	err := e.mutate(ctx, "recalculate budgets", func(s *core.Snapshot) error {
		period := e.currentPeriod()
		for i := range s.Budgets {
			s.Budgets[i].Spent = e.monthExpenses(s.Transactions, s.Budgets[i].Category)
			s.Budgets[i].Period = period
		}
		out = append([]core.Budget(nil), s.Budgets...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// evaluateBudget applies the threshold policy to b and records the alert, if any.
func (e *Engine) evaluateBudget(s *core.Snapshot, b core.Budget) *core.Alert {
	sev, pct, ok := budgetSeverity(b)
	if !ok {
		return nil
	}
	msg := fmt.Sprintf("You've used %d%% of your %s budget!", pct, b.Category)
	return e.raiseAlert(s, sev, msg)
}

// budgetSeverity returns Warning at or above the limit, Info from 90% and
// nothing below. pct is Spent/MonthlyLimit in percent rounded half-up.
func budgetSeverity(b core.Budget) (core.Severity, int64, bool) {
	if b.MonthlyLimit.Cents <= 0 {
		return "", 0, false
	}
	spent := big.NewInt(b.Spent.Cents)
	limit := big.NewInt(b.MonthlyLimit.Cents)

	var sev core.Severity
	switch {
	case spent.Cmp(limit) >= 0:
		sev = core.SeverityWarning
	case new(big.Int).Mul(spent, big.NewInt(10)).Cmp(new(big.Int).Mul(limit, big.NewInt(9))) >= 0:
		sev = core.SeverityInfo
	default:
		return "", 0, false
	}

	// (200*spent + limit) / (2*limit) is round-half-up of 100*spent/limit.
	num := new(big.Int).Mul(spent, big.NewInt(200))
	num.Add(num, limit)
	den := new(big.Int).Lsh(limit, 1)
	return sev, num.Quo(num, den).Int64(), true
}
