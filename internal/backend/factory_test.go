package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"expensebuddy/internal/config"
	"expensebuddy/internal/core"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"firestore without project", Config{Type: FirestoreBackend}, true},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("nil config should fail")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "redis"}); err == nil {
		t.Fatal("unknown backend should fail")
	}
	got, err := FromAppConfig(&config.Config{DataBackend: "postgres", DatabaseURL: "postgres://x", LedgerNamespace: "ns"})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if got.Type != PostgresBackend || got.DatabaseURL != "postgres://x" || got.Namespace != "ns" {
		t.Fatalf("unexpected config %+v", got)
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	dir := t.TempDir()
	seed := "# custom seed\nGroceries,#00FF00,expense\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, SeedDirectory: dir})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if res.Ready != nil || res.Cleanup != nil {
		t.Fatal("memory backend has nothing to ping or close")
	}
	snap, _, err := res.Store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap.Categories) != 1 || snap.Categories[0].Name != "Groceries" {
		t.Fatalf("seeded categories = %+v", snap.Categories)
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	res, err := NewFactory(nil).CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Cleanup()

	if err := res.Ready.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	snap := core.Snapshot{Categories: core.DefaultCategories()}
	if err := res.Store.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, found, err := res.Store.Load(ctx)
	if err != nil || !found {
		t.Fatalf("Load: found=%v err=%v", found, err)
	}
	if len(got.Categories) != len(snap.Categories) {
		t.Fatalf("categories = %d, want %d", len(got.Categories), len(snap.Categories))
	}
}

func TestNewPublisherWithoutURL(t *testing.T) {
	if p := NewFactory(nil).NewPublisher("", "ex", "q"); p != nil {
		t.Fatalf("expected nil publisher, got %T", p)
	}
}
