package core

// Snapshot is the whole persisted ledger for the single user.
type Snapshot struct {
	User         *User         `json:"user"`
	Transactions []Transaction `json:"transactions"`
	Budgets      []Budget      `json:"budgets"`
	Goals        []Goal        `json:"goals"`
	Categories   []Category    `json:"categories"`
	Alerts       []Alert       `json:"alerts"`
}

// Clone returns a deep copy so callers can never alias engine state.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Transactions: append([]Transaction(nil), s.Transactions...),
		Budgets:      append([]Budget(nil), s.Budgets...),
		Goals:        append([]Goal(nil), s.Goals...),
		Categories:   append([]Category(nil), s.Categories...),
		Alerts:       append([]Alert(nil), s.Alerts...),
	}
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	return out
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// MonthTotals is the income/expense pair for one month of a year.
type MonthTotals struct {
	Month   int   `json:"month"` // 1-12
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
}

// Totals summarises a set of transactions. Balance may be negative.
type Totals struct {
	Income   Money `json:"income"`
	Expenses Money `json:"expenses"`
	Balance  Money `json:"balance"`
}

// Averages are per-transaction means in cents, truncated.
type Averages struct {
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
}
