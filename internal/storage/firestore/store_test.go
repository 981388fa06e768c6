package firestore

import (
	"context"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"expensebuddy/internal/core"
)

// Runs against the Firestore emulator when FIRESTORE_EMULATOR_HOST is set.
func TestStoreRoundTrip(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set; skipping Firestore store tests")
	}
	ctx := context.Background()
	client, err := NewClient(ctx, "expensebuddy-test", "")
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	s := New(client, "test-"+uuid.NewString())
	defer s.Close()

	if _, found, err := s.Load(ctx); err != nil || found {
		t.Fatalf("fresh namespace: found=%v err=%v", found, err)
	}
	snap := core.Snapshot{
		User:       &core.User{ID: "u1", FullName: "Sam", Email: "sam@example.com", Theme: core.ThemeDark},
		Goals:      []core.Goal{{ID: "g1", Title: "Trip", TargetAmount: core.Money{Cents: 90000}, Deadline: core.NewDate(2025, 7, 1), CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}},
		Categories: core.DefaultCategories(),
	}
	if err := s.Save(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, found, err := s.Load(ctx)
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if !reflect.DeepEqual(snap, got) {
		t.Fatalf("round trip mismatch\nwant %+v\ngot  %+v", snap, got)
	}
}
