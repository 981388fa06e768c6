// Package storage persists ledger snapshots in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"expensebuddy/internal/core"

	_ "modernc.org/sqlite"
)

const initializedKey = "initialized_at"

// SQLiteStore keeps one row per record and rewrites the whole snapshot on Save.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("SQLite store ready", "path", dbPath, "schema_version", version)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Load reads the snapshot. found is false until the first Save.
func (s *SQLiteStore) Load(ctx context.Context) (core.Snapshot, bool, error) {
	var snap core.Snapshot

	var initialized string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM ledger_meta WHERE key = ?`, initializedKey).Scan(&initialized)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, false, nil
	}
	if err != nil {
		return snap, false, fmt.Errorf("read ledger meta: %w", err)
	}

	if snap.User, err = s.loadUser(ctx); err != nil {
		return snap, false, err
	}
	if snap.Transactions, err = s.loadTransactions(ctx); err != nil {
		return snap, false, err
	}
	if snap.Budgets, err = s.loadBudgets(ctx); err != nil {
		return snap, false, err
	}
	if snap.Goals, err = s.loadGoals(ctx); err != nil {
		return snap, false, err
	}
	if snap.Categories, err = s.loadCategories(ctx); err != nil {
		return snap, false, err
	}
	if snap.Alerts, err = s.loadAlerts(ctx); err != nil {
		return snap, false, err
	}
	return snap, true, nil
}

// Save replaces every table's content with snap in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, snap core.Snapshot) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, table := range []string{"users", "transactions", "budgets", "goals", "categories", "alerts"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if u := snap.User; u != nil {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (id, full_name, email, theme, notifications_enabled) VALUES (?, ?, ?, ?, ?)`,
			u.ID, u.FullName, u.Email, string(u.Theme), u.NotificationsEnabled)
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
	}
	for i, t := range snap.Transactions {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO transactions (id, position, amount_cents, kind, category, occurred_on, occurred_at, notes, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, i, t.Amount.Cents, string(t.Kind), t.Category, t.Date.String(), t.Time, t.Notes, formatTime(t.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}
	for i, b := range snap.Budgets {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO budgets (category, position, monthly_limit_cents, spent_cents, period) VALUES (?, ?, ?, ?, ?)`,
			b.Category, i, b.MonthlyLimit.Cents, b.Spent.Cents, b.Period)
		if err != nil {
			return fmt.Errorf("insert budget %s: %w", b.Category, err)
		}
	}
	for i, g := range snap.Goals {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO goals (id, position, title, target_cents, current_cents, deadline, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			g.ID, i, g.Title, g.TargetAmount.Cents, g.CurrentAmount.Cents, g.Deadline.String(), formatTime(g.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert goal %s: %w", g.ID, err)
		}
	}
	for i, c := range snap.Categories {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO categories (id, position, name, color, applies_to) VALUES (?, ?, ?, ?, ?)`,
			c.ID, i, c.Name, c.Color, string(c.AppliesTo))
		if err != nil {
			return fmt.Errorf("insert category %s: %w", c.Name, err)
		}
	}
	for i, a := range snap.Alerts {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO alerts (id, position, message, severity, read, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			a.ID, i, a.Message, string(a.Severity), a.Read, formatTime(a.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert alert %s: %w", a.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ledger_meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO NOTHING`,
		initializedKey, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("mark initialized: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) loadUser(ctx context.Context) (*core.User, error) {
	var (
		u     core.User
		theme string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, full_name, email, theme, notifications_enabled FROM users LIMIT 1`).
		Scan(&u.ID, &u.FullName, &u.Email, &theme, &u.NotificationsEnabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	u.Theme = core.Theme(theme)
	return &u, nil
}

func (s *SQLiteStore) loadTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, amount_cents, kind, category, occurred_on, occurred_at, notes, created_at
		 FROM transactions ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t                  core.Transaction
			kind, day, created string
		)
		if err := rows.Scan(&t.ID, &t.Amount.Cents, &kind, &t.Category, &day, &t.Time, &t.Notes, &created); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Kind = core.TransactionKind(kind)
		if t.Date, err = core.ParseDate(day); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		if t.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) loadBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, monthly_limit_cents, spent_cents, period FROM budgets ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.Category, &b.MonthlyLimit.Cents, &b.Spent.Cents, &b.Period); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) loadGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, target_cents, current_cents, deadline, created_at FROM goals ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		var (
			g                 core.Goal
			deadline, created string
		)
		if err := rows.Scan(&g.ID, &g.Title, &g.TargetAmount.Cents, &g.CurrentAmount.Cents, &deadline, &created); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		if g.Deadline, err = core.ParseDate(deadline); err != nil {
			return nil, fmt.Errorf("goal %s: %w", g.ID, err)
		}
		if g.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("goal %s: %w", g.ID, err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) loadCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, color, applies_to FROM categories ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var (
			c     core.Category
			scope string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &scope); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.AppliesTo = core.CategoryScope(scope)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) loadAlerts(ctx context.Context) ([]core.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, message, severity, read, created_at FROM alerts ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load alerts: %w", err)
	}
	defer rows.Close()

	var out []core.Alert
	for rows.Next() {
		var (
			a                 core.Alert
			severity, created string
		)
		if err := rows.Scan(&a.ID, &a.Message, &severity, &a.Read, &created); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Severity = core.Severity(severity)
		if a.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("alert %s: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
