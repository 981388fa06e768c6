package sheets

import (
	"fmt"
	"strings"

	"expensebuddy/internal/core"
)

// Header is the first row of a mirrored sheet.
var Header = []string{"ID", "Date", "Time", "Type", "Category", "Amount", "Notes"}

// Row renders tx in Header order.
func Row(tx core.Transaction) []any {
	return []any{
		tx.ID,
		tx.Date.String(),
		tx.Time,
		string(tx.Kind),
		tx.Category,
		tx.Amount.String(),
		tx.Notes,
	}
}

// ParseRow reads a row written by Row. Trailing empty cells may be missing.
func ParseRow(cells []any) (core.Transaction, error) {
	cols := make([]string, len(Header))
	for i := 0; i < len(cells) && i < len(cols); i++ {
		cols[i] = strings.TrimSpace(fmt.Sprint(cells[i]))
	}
	if cols[0] == "" {
		return core.Transaction{}, fmt.Errorf("row without id")
	}

	tx := core.Transaction{
		ID:       cols[0],
		Time:     cols[2],
		Kind:     core.TransactionKind(strings.ToLower(cols[3])),
		Category: cols[4],
		Notes:    cols[6],
	}
	date, err := core.ParseDate(cols[1])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %s: %w", tx.ID, err)
	}
	tx.Date = date

	// sheets in some locales echo a decimal comma back
	cents, err := core.ParseDecimalToCents(strings.ReplaceAll(cols[5], ",", "."))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %s: amount: %w", tx.ID, err)
	}
	tx.Amount = core.Money{Cents: cents}
	return tx, nil
}

// IsHeader reports whether cells is the Header row.
func IsHeader(cells []any) bool {
	return len(cells) > 0 && strings.EqualFold(strings.TrimSpace(fmt.Sprint(cells[0])), Header[0])
}
