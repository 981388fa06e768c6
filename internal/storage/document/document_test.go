package document

import (
	"reflect"
	"testing"
	"time"

	"expensebuddy/internal/core"
)

func TestSplitJoin(t *testing.T) {
	created := time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)
	snap := core.Snapshot{
		User: &core.User{ID: "u1", FullName: "Sam", Email: "sam@example.com", Theme: core.ThemeLight},
		Transactions: []core.Transaction{
			{ID: "t1", Amount: core.Money{Cents: 1999}, Kind: core.KindExpense, Category: "Food", Date: core.NewDate(2025, 3, 1), Time: "12:00", Notes: "lunch", CreatedAt: created},
		},
		Budgets:    []core.Budget{{Category: "Food", MonthlyLimit: core.Money{Cents: 5000}, Spent: core.Money{Cents: 1999}, Period: "2025-03"}},
		Categories: core.DefaultCategories(),
	}
	docs, err := Split(snap)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(docs) != len(Collections) {
		t.Fatalf("expected %d documents, got %d", len(Collections), len(docs))
	}
	got, err := Join(docs)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if !reflect.DeepEqual(snap, got) {
		t.Fatalf("mismatch\nwant %+v\ngot  %+v", snap, got)
	}
}

func TestJoinRejectsCorruptDocument(t *testing.T) {
	_, err := Join(map[string][]byte{CollectionBudgets: []byte(`{"not":"a list"}`)})
	if err == nil {
		t.Fatalf("expected decode error")
	}
	snap, err := Join(map[string][]byte{"legacy": []byte(`garbage`)})
	if err != nil || snap.User != nil {
		t.Fatalf("unknown collections should be ignored, got %v", err)
	}
}
