package google

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"expensebuddy/internal/core"
	ports "expensebuddy/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets serves the handful of Sheets v4 calls the client makes against
// an in-memory grid.
type fakeSheets struct {
	mu      sync.Mutex
	rows    [][]any
	calls   []string
	sheetID int64
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		f.calls = append(f.calls, "append")
		var vr gsheet.ValueRange
		json.Unmarshal(body, &vr)
		f.rows = append(f.rows, vr.Values...)
		json.NewEncoder(w).Encode(map[string]any{
			"updates": map[string]any{"updatedRange": "Transactions!A2:G2"},
		})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		f.calls = append(f.calls, "batchUpdate")
		var req gsheet.BatchUpdateSpreadsheetRequest
		json.Unmarshal(body, &req)
		for _, rq := range req.Requests {
			if d := rq.DeleteDimension; d != nil {
				start, end := d.Range.StartIndex, d.Range.EndIndex
				f.rows = append(f.rows[:start], f.rows[end:]...)
			}
		}
		w.Write([]byte(`{}`))
	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		f.calls = append(f.calls, "update")
		var vr gsheet.ValueRange
		json.Unmarshal(body, &vr)
		if len(f.rows) == 0 {
			f.rows = append(f.rows, vr.Values...)
		} else {
			f.rows[0] = vr.Values[0]
		}
		w.Write([]byte(`{}`))
	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		f.calls = append(f.calls, "get")
		values := f.rows
		if strings.HasSuffix(path, "A1:G1") {
			values = f.rows[:min(1, len(f.rows))]
		}
		json.NewEncoder(w).Encode(map[string]any{"values": values})
	case r.Method == http.MethodGet:
		f.calls = append(f.calls, "metadata")
		json.NewEncoder(w).Encode(map[string]any{
			"sheets": []any{map[string]any{"properties": map[string]any{"sheetId": f.sheetID, "title": "Transactions"}}},
		})
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func (f *fakeSheets) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func newFakeClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{sheetID: 7}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return NewWithService(svc, "spreadsheet-1", "", nil), fake
}

func sampleTx(id string, c int64) core.Transaction {
	return core.Transaction{
		ID:       id,
		Amount:   core.Money{Cents: c},
		Kind:     core.KindExpense,
		Category: "Food",
		Date:     core.NewDate(2025, 3, 10),
		Time:     "19:45",
		Notes:    "dinner",
	}
}

func TestClient_AppendWritesHeaderOnce(t *testing.T) {
	ctx := context.Background()
	c, fake := newFakeClient(t)

	if _, err := c.AppendTransaction(ctx, sampleTx("t1", 9500)); err != nil {
		t.Fatalf("append: %v", err)
	}
	ref, err := c.AppendTransaction(ctx, sampleTx("t2", 100))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "Transactions!A2:G2" {
		t.Errorf("ref = %q", ref)
	}
	if got := fake.count("update"); got != 1 {
		t.Errorf("header should be written once, got %d writes", got)
	}

	rows, err := c.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != "t1" || rows[0].Amount.Cents != 9500 || rows[1].ID != "t2" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestClient_DeleteTransaction(t *testing.T) {
	ctx := context.Background()
	c, fake := newFakeClient(t)
	for _, tx := range []core.Transaction{sampleTx("t1", 100), sampleTx("t2", 200), sampleTx("t3", 300)} {
		if _, err := c.AppendTransaction(ctx, tx); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	if err := c.DeleteTransaction(ctx, "t2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	rows, _ := c.ListTransactions(ctx)
	if len(rows) != 2 || rows[0].ID != "t1" || rows[1].ID != "t3" {
		t.Fatalf("unexpected rows after delete %+v", rows)
	}

	if err := c.DeleteTransaction(ctx, "t2"); !errors.Is(err, ports.ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}
	if err := c.DeleteTransaction(ctx, "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := fake.count("metadata"); got != 1 {
		t.Errorf("sheet id should be looked up once, got %d", got)
	}
}

func TestClient_RejectsInvalidTransactions(t *testing.T) {
	c := &Client{spreadsheetID: "test"} // svc is nil

	if _, err := c.AppendTransaction(context.Background(), sampleTx("", 100)); err == nil {
		t.Fatal("expected error for missing id")
	}
	if _, err := c.AppendTransaction(context.Background(), sampleTx("t1", 0)); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := c.AppendTransaction(context.Background(), sampleTx("t1", 100)); err == nil {
		t.Fatal("expected error with nil service")
	}
}

func TestNew_RequiresConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"missing spreadsheet", Config{CredentialsJSON: "{}"}, "spreadsheet"},
		{"missing credentials", Config{SpreadsheetID: "x"}, "credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.cfg, nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q error, got %v", tt.want, err)
			}
		})
	}
}
