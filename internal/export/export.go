// Package export renders transaction lists as CSV files or standalone HTML
// reports. It knows nothing about how the list was selected.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/govalues/money"

	"expensebuddy/internal/core"
	"expensebuddy/web"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

var csvHeader = []string{"Date", "Time", "Type", "Category", "Amount", "Notes"}

// ParseFormat accepts "csv" or "html" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatHTML:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatHTML {
		return "text/html; charset=utf-8"
	}
	return "text/csv; charset=utf-8"
}

// Filename returns the download name used by the web client.
func (f Format) Filename() string {
	if f == FormatHTML {
		return "expense-report.html"
	}
	return "expense-buddy.csv"
}

// Formatter renders reports in one currency.
type Formatter struct {
	currency string
	tmpl     *template.Template
	now      func() time.Time
}

// NewFormatter parses the embedded report template. currency must be an ISO
// 4217 code with two minor digits, matching how amounts are stored.
func NewFormatter(currency string) (*Formatter, error) {
	curr, err := money.ParseCurr(currency)
	if err != nil {
		return nil, fmt.Errorf("currency %q: %w", currency, err)
	}
	if curr.Scale() != 2 {
		return nil, fmt.Errorf("currency %s has %d minor digits, only 2 are supported", curr, curr.Scale())
	}
	tmpl, err := template.ParseFS(web.TemplatesFS, "templates/report.html")
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	return &Formatter{currency: curr.String(), tmpl: tmpl, now: time.Now}, nil
}

// Report holds what the HTML summary shows besides the rows.
type Report struct {
	Transactions []core.Transaction
	Totals       core.Totals
	Period       string // free text, e.g. "2025-03-01 to 2025-03-31"
}

// Write renders r in the requested format.
func (f *Formatter) Write(w io.Writer, format Format, r Report) error {
	switch format {
	case FormatCSV:
		return f.WriteCSV(w, r.Transactions)
	case FormatHTML:
		return f.WriteHTML(w, r)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// WriteCSV writes the header and one row per transaction. Notes are always
// quoted; other fields only when they contain separators or quotes.
func (f *Formatter) WriteCSV(w io.Writer, txs []core.Transaction) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(strings.Join(csvHeader, ",") + "\n")
	for _, t := range txs {
		fields := []string{
			csvField(t.Date.String()),
			csvField(t.Time),
			csvField(string(t.Kind)),
			csvField(t.Category),
			f.decimal(t.Amount),
			quote(t.Notes),
		}
		bw.WriteString(strings.Join(fields, ",") + "\n")
	}
	return bw.Flush()
}

type htmlRow struct {
	Date, Time, Type, Category, Amount, Notes string
}

type htmlData struct {
	GeneratedAt   string
	Period        string
	TotalIncome   string
	TotalExpenses string
	Balance       string
	Rows          []htmlRow
}

// WriteHTML renders the standalone report document.
func (f *Formatter) WriteHTML(w io.Writer, r Report) error {
	data := htmlData{
		GeneratedAt:   f.now().Format("2006-01-02 15:04"),
		Period:        r.Period,
		TotalIncome:   f.display(r.Totals.Income),
		TotalExpenses: f.display(r.Totals.Expenses),
		Balance:       f.display(r.Totals.Balance),
		Rows:          make([]htmlRow, 0, len(r.Transactions)),
	}
	for _, t := range r.Transactions {
		data.Rows = append(data.Rows, htmlRow{
			Date:     t.Date.String(),
			Time:     t.Time,
			Type:     string(t.Kind),
			Category: t.Category,
			Amount:   f.display(t.Amount),
			Notes:    t.Notes,
		})
	}
	if err := f.tmpl.ExecuteTemplate(w, "report", data); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func (f *Formatter) amount(m core.Money) money.Amount {
	a, err := money.NewAmountFromMinorUnits(f.currency, m.Cents)
	if err != nil {
		// The currency was validated in NewFormatter.
		panic(err)
	}
	return a
}

// decimal renders "12.50" for CSV.
func (f *Formatter) decimal(m core.Money) string {
	return f.amount(m).Decimal().String()
}

// display renders "USD 12.50" for HTML.
func (f *Formatter) display(m core.Money) string {
	return f.amount(m).String()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func csvField(s string) string {
	if strings.ContainsAny(s, ",\"\r\n") {
		return quote(s)
	}
	return s
}
