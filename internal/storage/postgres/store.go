// Package postgres stores the ledger snapshot in Postgres, one JSONB document
// per collection keyed by namespace.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"expensebuddy/internal/core"
	"expensebuddy/internal/storage/document"
)

const schema = `
create table if not exists ledger_documents (
    namespace  text not null,
    collection text not null,
    body       jsonb not null,
    updated_at timestamptz not null default now(),
    primary key (namespace, collection)
)`

// Store holds a pgx pool. All methods are safe for concurrent use.
type Store struct {
	pool      *pgxpool.Pool
	namespace string
}

// Open connects, verifies the connection and makes sure the table exists.
func Open(ctx context.Context, dsn, namespace string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if namespace == "" {
		namespace = document.DefaultNamespace
	}
	return &Store{pool: pool, namespace: namespace}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Load(ctx context.Context) (core.Snapshot, bool, error) {
	rows, err := s.pool.Query(ctx,
		`select collection, body from ledger_documents where namespace = $1`, s.namespace)
	if err != nil {
		return core.Snapshot{}, false, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := map[string][]byte{}
	for rows.Next() {
		var (
			name string
			body []byte
		)
		if err := rows.Scan(&name, &body); err != nil {
			return core.Snapshot{}, false, fmt.Errorf("scan document: %w", err)
		}
		docs[name] = body
	}
	if err := rows.Err(); err != nil {
		return core.Snapshot{}, false, err
	}
	if len(docs) == 0 {
		return core.Snapshot{}, false, nil
	}
	snap, err := document.Join(docs)
	if err != nil {
		return core.Snapshot{}, false, err
	}
	return snap, true, nil
}

// Save upserts every collection document in a single transaction.
func (s *Store) Save(ctx context.Context, snap core.Snapshot) error {
	docs, err := document.Split(snap)
	if err != nil {
		return err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, name := range document.Collections {
		batch.Queue(`
			insert into ledger_documents (namespace, collection, body, updated_at)
			values ($1, $2, $3::jsonb, now())
			on conflict (namespace, collection) do update set body = excluded.body, updated_at = excluded.updated_at
		`, s.namespace, name, string(docs[name]))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert documents: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
