package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	KindExpense TransactionKind = "expense"
	KindIncome  TransactionKind = "income"
)

const (
	ScopeExpense CategoryScope = "expense"
	ScopeIncome  CategoryScope = "income"
	ScopeBoth    CategoryScope = "both"
)

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeveritySuccess Severity = "success"
)

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

type (
	TransactionKind string
	CategoryScope   string
	Severity        string
	Theme           string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Transaction struct {
		ID        string          `json:"id"`
		Amount    Money           `json:"amount"`
		Kind      TransactionKind `json:"type"`
		Category  string          `json:"category"`
		Date      Date            `json:"date"`
		Time      string          `json:"time"` // HH:MM
		Notes     string          `json:"notes"`
		CreatedAt time.Time       `json:"createdAt"`
	}

	Category struct {
		ID        string        `json:"id"`
		Name      string        `json:"name"`
		Color     string        `json:"color"`
		AppliesTo CategoryScope `json:"type"`
	}

	// Budget pairs a monthly limit with the running expense total for Period.
	// Spent is a cache maintained on every transaction mutation.
	Budget struct {
		Category     string `json:"category"`
		MonthlyLimit Money  `json:"monthlyLimit"`
		Spent        Money  `json:"spent"`
		Period       string `json:"period"` // YYYY-MM
	}

	Goal struct {
		ID            string    `json:"id"`
		Title         string    `json:"title"`
		TargetAmount  Money     `json:"targetAmount"`
		CurrentAmount Money     `json:"currentAmount"`
		Deadline      Date      `json:"deadline"`
		CreatedAt     time.Time `json:"createdAt"`
	}

	Alert struct {
		ID        string    `json:"id"`
		Message   string    `json:"message"`
		Severity  Severity  `json:"type"`
		Read      bool      `json:"read"`
		CreatedAt time.Time `json:"createdAt"`
	}

	User struct {
		ID                   string `json:"id"`
		FullName             string `json:"fullName"`
		Email                string `json:"email"`
		Theme                Theme  `json:"theme"`
		NotificationsEnabled bool   `json:"notificationsEnabled"`
	}
)

var (
	ErrInvalidDay      = errors.New("invalid day")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidKind     = errors.New("invalid transaction type")
	ErrInvalidTime     = errors.New("invalid time, expected HH:MM")
	ErrEmptyCategory   = errors.New("empty category")
	ErrEmptyName       = errors.New("empty name")
	ErrInvalidColor    = errors.New("invalid color, expected #RRGGBB")
	ErrInvalidScope    = errors.New("invalid category type")
	ErrEmptyTitle      = errors.New("empty title")
	ErrInvalidSeverity = errors.New("invalid alert type")
	ErrInvalidTheme    = errors.New("invalid theme")
	ErrInvalidEmail    = errors.New("invalid email")
)

var (
	colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	timePattern  = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

// DefaultCategories returns the categories a fresh ledger starts with.
func DefaultCategories() []Category {
	return []Category{
		{ID: "1", Name: "Food", Color: "#F59E0B", AppliesTo: ScopeExpense},
		{ID: "2", Name: "Transport", Color: "#8B5CF6", AppliesTo: ScopeExpense},
		{ID: "3", Name: "Entertainment", Color: "#EC4899", AppliesTo: ScopeExpense},
		{ID: "4", Name: "Bills", Color: "#EF4444", AppliesTo: ScopeExpense},
		{ID: "5", Name: "Salary", Color: "#10B981", AppliesTo: ScopeIncome},
		{ID: "6", Name: "Freelance", Color: "#06B6D4", AppliesTo: ScopeIncome},
		{ID: "7", Name: "Others", Color: "#6B7280", AppliesTo: ScopeBoth},
	}
}

func (k TransactionKind) Validate() error {
	switch k {
	case KindExpense, KindIncome:
		return nil
	default:
		return ErrInvalidKind
	}
}

func (s CategoryScope) Validate() error {
	switch s {
	case ScopeExpense, ScopeIncome, ScopeBoth:
		return nil
	default:
		return ErrInvalidScope
	}
}

// Accepts reports whether a category with this scope can hold transactions of kind k.
func (s CategoryScope) Accepts(k TransactionKind) bool {
	return s == ScopeBoth || string(s) == string(k)
}

func (s Severity) Validate() error {
	switch s {
	case SeverityInfo, SeverityWarning, SeveritySuccess:
		return nil
	default:
		return ErrInvalidSeverity
	}
}

func (t Theme) Validate() error {
	switch t {
	case ThemeLight, ThemeDark:
		return nil
	default:
		return ErrInvalidTheme
	}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

// IsEmpty returns true if the date is zero (for backward compatibility with optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// InMonth reports whether the date falls in the same calendar month as t.
func (d Date) InMonth(t time.Time) bool {
	return d.Year() == t.Year() && d.Month() == int(t.Month())
}

// PeriodOf returns the YYYY-MM key for the month containing t.
func PeriodOf(t time.Time) string {
	return t.Format("2006-01")
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !timePattern.MatchString(t.Time) {
		return ErrInvalidTime
	}
	if len(t.Notes) > 500 {
		return errors.New("notes too long (max 500 characters)")
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 50 {
		return errors.New("name too long (max 50 characters)")
	}
	if !colorPattern.MatchString(c.Color) {
		return ErrInvalidColor
	}
	return c.AppliesTo.Validate()
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Title) == "" {
		return ErrEmptyTitle
	}
	if len(g.Title) > 100 {
		return errors.New("title too long (max 100 characters)")
	}
	if err := g.TargetAmount.Validate(); err != nil {
		return fmt.Errorf("target: %w", err)
	}
	if g.CurrentAmount.Cents < 0 {
		return fmt.Errorf("current: %w", ErrInvalidAmount)
	}
	if err := g.Deadline.Validate(); err != nil {
		return fmt.Errorf("deadline: %w", err)
	}
	return nil
}

// Reached reports whether the goal's saved amount covers its target.
func (g Goal) Reached() bool {
	return g.CurrentAmount.Cents >= g.TargetAmount.Cents
}

func (u User) Validate() error {
	if strings.TrimSpace(u.FullName) == "" {
		return ErrEmptyName
	}
	if !strings.Contains(u.Email, "@") {
		return ErrInvalidEmail
	}
	return u.Theme.Validate()
}
