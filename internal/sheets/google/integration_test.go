//go:build integration

package google

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"expensebuddy/internal/core"
	ports "expensebuddy/internal/sheets"
)

// Integration tests require a real spreadsheet shared with a service account
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_MirrorRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	cfg := Config{
		SpreadsheetID:   spreadsheetID,
		SheetName:       os.Getenv("GOOGLE_SHEET_NAME"),
		CredentialsFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
		CredentialsJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
	}
	if cfg.CredentialsFile == "" && cfg.CredentialsJSON == "" {
		t.Skip("service account credentials not configured, skipping integration test")
	}

	ctx := context.Background()
	client, err := New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	now := time.Now()
	tx := core.Transaction{
		ID:       uuid.NewString(),
		Amount:   core.Money{Cents: 1234},
		Kind:     core.KindExpense,
		Category: "Food",
		Date:     core.NewDate(now.Year(), int(now.Month()), now.Day()),
		Time:     now.Format("15:04"),
		Notes:    "Integration test row",
	}

	ref, err := client.AppendTransaction(ctx, tx)
	if err != nil {
		t.Fatalf("Failed to append row: %v", err)
	}
	t.Logf("Appended row at %s", ref)

	rows, err := client.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("Failed to list rows: %v", err)
	}
	found := false
	for _, r := range rows {
		if r.ID == tx.ID {
			found = true
			if r.Amount.Cents != tx.Amount.Cents {
				t.Errorf("amount = %d, want %d", r.Amount.Cents, tx.Amount.Cents)
			}
		}
	}
	if !found {
		t.Fatalf("appended row %s not listed", tx.ID)
	}

	if err := client.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("Failed to delete row: %v", err)
	}
	if err := client.DeleteTransaction(ctx, tx.ID); !errors.Is(err, ports.ErrRowNotFound) {
		t.Fatalf("second delete should report ErrRowNotFound, got %v", err)
	}
}
