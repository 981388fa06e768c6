package ledger

import (
	"sort"
	"time"

	"expensebuddy/internal/core"
)

// Filter selects transactions. Zero fields match everything; From and To are
// inclusive calendar days.
type Filter struct {
	Kind     core.TransactionKind
	Category string
	From     core.Date
	To       core.Date
}

func (f Filter) Match(t core.Transaction) bool {
	if f.Kind != "" && t.Kind != f.Kind {
		return false
	}
	if f.Category != "" && !sameName(t.Category, f.Category) {
		return false
	}
	if !f.From.IsEmpty() && t.Date.Before(f.From.Time) {
		return false
	}
	if !f.To.IsEmpty() && t.Date.After(f.To.Time) {
		return false
	}
	return true
}

// FilterTransactions returns the matching transactions newest first by
// date, then time, then creation.
func FilterTransactions(txs []core.Transaction, f Filter) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.After(b.Date.Time)
		}
		if a.Time != b.Time {
			return a.Time > b.Time
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out
}

// Sum adds the amounts of matching transactions regardless of kind unless
// the filter names one.
func Sum(txs []core.Transaction, f Filter) core.Money {
	var total core.Money
	for _, t := range txs {
		if f.Match(t) {
			total = total.Add(t.Amount)
		}
	}
	return total
}

func ComputeTotals(txs []core.Transaction, f Filter) core.Totals {
	var tot core.Totals
	for _, t := range txs {
		if !f.Match(t) {
			continue
		}
		switch t.Kind {
		case core.KindIncome:
			tot.Income = tot.Income.Add(t.Amount)
		case core.KindExpense:
			tot.Expenses = tot.Expenses.Add(t.Amount)
		}
	}
	tot.Balance = core.Money{Cents: tot.Income.Cents - tot.Expenses.Cents}
	return tot
}

func ComputeAverages(txs []core.Transaction, f Filter) core.Averages {
	var (
		avg                   core.Averages
		incomeN, expenseN     int64
		incomeSum, expenseSum int64
	)
	for _, t := range txs {
		if !f.Match(t) {
			continue
		}
		switch t.Kind {
		case core.KindIncome:
			incomeN++
			incomeSum += t.Amount.Cents
		case core.KindExpense:
			expenseN++
			expenseSum += t.Amount.Cents
		}
	}
	if incomeN > 0 {
		avg.Income = core.Money{Cents: incomeSum / incomeN}
	}
	if expenseN > 0 {
		avg.Expense = core.Money{Cents: expenseSum / expenseN}
	}
	return avg
}

// MonthlyTotals groups income and expenses of year by calendar month.
// The result always has twelve entries.
func MonthlyTotals(txs []core.Transaction, year int) []core.MonthTotals {
	out := make([]core.MonthTotals, 12)
	for i := range out {
		out[i].Month = i + 1
	}
	for _, t := range txs {
		if t.Date.Year() != year {
			continue
		}
		m := &out[t.Date.Month()-1]
		switch t.Kind {
		case core.KindIncome:
			m.Income = m.Income.Add(t.Amount)
		case core.KindExpense:
			m.Expense = m.Expense.Add(t.Amount)
		}
	}
	return out
}

// ByCategory groups matching transactions by category, largest first.
func ByCategory(txs []core.Transaction, f Filter) []core.CategoryAmount {
	idx := map[string]int{}
	var out []core.CategoryAmount
	for _, t := range txs {
		if !f.Match(t) {
			continue
		}
		i, ok := idx[t.Category]
		if !ok {
			i = len(out)
			idx[t.Category] = i
			out = append(out, core.CategoryAmount{Name: t.Category})
		}
		out[i].Amount = out[i].Amount.Add(t.Amount)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// MonthSpend is the current-month expense total per category.
func MonthSpend(txs []core.Transaction, now time.Time) []core.CategoryAmount {
	first := core.NewDate(now.Year(), int(now.Month()), 1)
	last := core.Date{Time: first.AddDate(0, 1, -1)}
	return ByCategory(txs, Filter{Kind: core.KindExpense, From: first, To: last})
}

// Transactions returns matching transactions newest first.
func (e *Engine) Transactions(f Filter) []core.Transaction {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return FilterTransactions(e.state.Transactions, f)
}

func (e *Engine) Sum(f Filter) core.Money {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Sum(e.state.Transactions, f)
}

func (e *Engine) Totals(f Filter) core.Totals {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return ComputeTotals(e.state.Transactions, f)
}

func (e *Engine) Averages(f Filter) core.Averages {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return ComputeAverages(e.state.Transactions, f)
}

func (e *Engine) MonthlyTotals(year int) []core.MonthTotals {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return MonthlyTotals(e.state.Transactions, year)
}

func (e *Engine) ByCategory(f Filter) []core.CategoryAmount {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return ByCategory(e.state.Transactions, f)
}

// CurrentMonthSpend reports this month's expenses per category.
func (e *Engine) CurrentMonthSpend() []core.CategoryAmount {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return MonthSpend(e.state.Transactions, e.now())
}
