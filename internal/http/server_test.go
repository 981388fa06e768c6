package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"expensebuddy/internal/core"
	"expensebuddy/internal/ledger"
	"expensebuddy/internal/storage/memory"
)

var testNow = time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)

type failingStore struct{ saveErr error }

func (f *failingStore) Load(ctx context.Context) (core.Snapshot, bool, error) {
	return core.Snapshot{}, false, nil
}

func (f *failingStore) Save(ctx context.Context, s core.Snapshot) error { return f.saveErr }

type pingerFunc func(ctx context.Context) error

func (p pingerFunc) Ping(ctx context.Context) error { return p(ctx) }

func newTestServer(t *testing.T, store ledger.Store, opts Options) *Server {
	t.Helper()
	e := openTestEngine(t, store, func() time.Time { return testNow })
	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	return newServerFor(t, e, opts)
}

func openTestEngine(t *testing.T, store ledger.Store, now func() time.Time) *ledger.Engine {
	t.Helper()
	if store == nil {
		store = memory.New(nil)
	}
	e := ledger.New(store, ledger.WithClock(now))
	if err := e.Open(context.Background()); err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	return e
}

func newServerFor(t *testing.T, l Ledger, opts Options) *Server {
	t.Helper()
	srv, err := NewServer(":0", l, opts)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

// stallingLedger blocks the first Snapshot call after armed is set until
// release is closed, holding on to the state it read before blocking.
type stallingLedger struct {
	*ledger.Engine
	armed   atomic.Bool
	reached chan struct{}
	release chan struct{}
}

func (l *stallingLedger) Snapshot() core.Snapshot {
	snap := l.Engine.Snapshot()
	if l.armed.CompareAndSwap(true, false) {
		close(l.reached)
		<-l.release
	}
	return snap
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, nil, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		if rec := do(t, srv, http.MethodGet, path, ""); rec.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rec.Code)
		}
	}

	down := newTestServer(t, nil, Options{Ready: pingerFunc(func(context.Context) error { return errors.New("db gone") })})
	if rec := do(t, down, http.MethodGet, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing store: %d", rec.Code)
	}
}

func TestAddTransactionAndBudgetAlert(t *testing.T) {
	srv := newTestServer(t, nil, Options{})

	rec := do(t, srv, http.MethodPut, "/api/v1/budgets/Food", `{"monthlyLimit": 100}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set budget: %d %s", rec.Code, rec.Body)
	}

	rec = do(t, srv, http.MethodPost, "/api/v1/transactions",
		`{"amount": 95, "type": "expense", "category": "food", "date": "2025-03-10", "time": "12:30", "notes": "team lunch"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: %d %s", rec.Code, rec.Body)
	}
	got := decode[transactionResponse](t, rec)
	if got.Transaction.Category != "Food" || got.Transaction.Amount.Cents != 9500 {
		t.Fatalf("unexpected transaction %+v", got.Transaction)
	}
	if got.Alert == nil || got.Alert.Severity != core.SeverityInfo {
		t.Fatalf("expected info alert, got %+v", got.Alert)
	}
	if got.Alert.Message != "You've used 95% of your Food budget!" {
		t.Fatalf("alert message = %q", got.Alert.Message)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/transactions?type=expense&from=2025-03-01", "")
	list := decode[[]core.Transaction](t, rec)
	if len(list) != 1 || list[0].ID != got.Transaction.ID {
		t.Fatalf("list = %+v", list)
	}

	rec = do(t, srv, http.MethodDelete, "/api/v1/transactions/"+got.Transaction.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
	budgets := decode[[]core.Budget](t, do(t, srv, http.MethodGet, "/api/v1/budgets", ""))
	if len(budgets) != 1 || budgets[0].Spent.Cents != 0 {
		t.Fatalf("budgets after delete = %+v", budgets)
	}
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t, nil, Options{})
	broken := newTestServer(t, &failingStore{saveErr: errors.New("disk full")}, Options{})

	tests := []struct {
		name   string
		srv    *Server
		method string
		target string
		body   string
		status int
		code   string
	}{
		{"malformed json", srv, http.MethodPost, "/api/v1/transactions", `{"amount":`, http.StatusBadRequest, "bad_request"},
		{"unknown field", srv, http.MethodPost, "/api/v1/transactions", `{"amount": 5, "bogus": 1}`, http.StatusBadRequest, "bad_request"},
		{"zero amount", srv, http.MethodPost, "/api/v1/transactions", `{"amount": 0, "type": "expense", "category": "Food"}`, http.StatusUnprocessableEntity, "validation_error"},
		{"unknown category", srv, http.MethodPost, "/api/v1/transactions", `{"amount": 5, "type": "expense", "category": "Yachts"}`, http.StatusUnprocessableEntity, "validation_error"},
		{"missing transaction", srv, http.MethodPatch, "/api/v1/transactions/nope", `{"notes": "x"}`, http.StatusNotFound, "not_found"},
		{"missing goal", srv, http.MethodPost, "/api/v1/goals/nope/funds", `{"amount": 5}`, http.StatusNotFound, "not_found"},
		{"bad filter date", srv, http.MethodGet, "/api/v1/transactions?from=03/01/2025", "", http.StatusBadRequest, "bad_request"},
		{"bad export format", srv, http.MethodGet, "/api/v1/export?format=pdf", "", http.StatusBadRequest, "bad_request"},
		{"storage failure", broken, http.MethodPost, "/api/v1/transactions", `{"amount": 5, "type": "expense", "category": "Food"}`, http.StatusServiceUnavailable, "persistence_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, tt.srv, tt.method, tt.target, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
			if got := decode[errorResponse](t, rec); got.Code != tt.code || got.Error == "" {
				t.Fatalf("body = %+v, want code %s", got, tt.code)
			}
		})
	}

	if snap := broken.ledger.Snapshot(); len(snap.Transactions) != 0 {
		t.Fatalf("failed save must not change state, got %d transactions", len(snap.Transactions))
	}
}

func TestSummaryCacheInvalidatedByWrites(t *testing.T) {
	srv := newTestServer(t, nil, Options{})

	first := decode[summaryResponse](t, do(t, srv, http.MethodGet, "/api/v1/reports/summary", ""))
	if first.Totals.Expenses.Cents != 0 || first.Count != 0 {
		t.Fatalf("empty ledger summary = %+v", first)
	}
	// Served from cache.
	do(t, srv, http.MethodGet, "/api/v1/reports/summary", "")
	if hits, _ := srv.reports.Stats(); hits != 1 {
		t.Fatalf("cache hits = %d, want 1", hits)
	}

	rec := do(t, srv, http.MethodPost, "/api/v1/transactions", `{"amount": "12.50", "type": "expense", "category": "Transport", "date": "2025-03-02"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: %d %s", rec.Code, rec.Body)
	}
	if srv.reports.Size() != 0 {
		t.Fatal("write should purge cached reports")
	}

	second := decode[summaryResponse](t, do(t, srv, http.MethodGet, "/api/v1/reports/summary", ""))
	if second.Totals.Expenses.Cents != 1250 || second.Count != 1 {
		t.Fatalf("summary after write = %+v", second)
	}
	if len(second.ByCategory) != 1 || second.ByCategory[0].Name != "Transport" {
		t.Fatalf("byCategory = %+v", second.ByCategory)
	}

	monthly := decode[monthlyResponse](t, do(t, srv, http.MethodGet, "/api/v1/reports/monthly", ""))
	if monthly.Year != 2025 || len(monthly.Months) != 12 || monthly.Months[2].Expense.Cents != 1250 {
		t.Fatalf("monthly = %+v", monthly)
	}
}

func TestReportRenderOverlappingWriteIsNotServedStale(t *testing.T) {
	l := &stallingLedger{
		Engine:  openTestEngine(t, nil, func() time.Time { return testNow }),
		reached: make(chan struct{}),
		release: make(chan struct{}),
	}
	srv := newServerFor(t, l, Options{Now: func() time.Time { return testNow }})
	l.armed.Store(true)

	done := make(chan struct{})
	go func() {
		defer close(done)
		do(t, srv, http.MethodGet, "/api/v1/reports/summary", "")
	}()
	<-l.reached

	rec := do(t, srv, http.MethodPost, "/api/v1/transactions", `{"amount": "12.50", "type": "expense", "category": "Transport", "date": "2025-03-02"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: %d %s", rec.Code, rec.Body)
	}
	close(l.release)
	<-done

	got := decode[summaryResponse](t, do(t, srv, http.MethodGet, "/api/v1/reports/summary", ""))
	if got.Totals.Expenses.Cents != 1250 || got.Count != 1 {
		t.Fatalf("summary after overlapping write = %+v", got)
	}
	if len(got.CurrentMonthSpend) != 1 || got.CurrentMonthSpend[0].Amount.Cents != 1250 {
		t.Fatalf("currentMonthSpend = %+v", got.CurrentMonthSpend)
	}
}

func TestSummaryFollowsCurrentMonth(t *testing.T) {
	now := testNow
	clock := func() time.Time { return now }
	srv := newServerFor(t, openTestEngine(t, nil, clock), Options{Now: clock})

	rec := do(t, srv, http.MethodPost, "/api/v1/transactions", `{"amount": "12.50", "type": "expense", "category": "Transport", "date": "2025-03-02"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: %d %s", rec.Code, rec.Body)
	}
	march := decode[summaryResponse](t, do(t, srv, http.MethodGet, "/api/v1/reports/summary", ""))
	if len(march.CurrentMonthSpend) != 1 {
		t.Fatalf("march spend = %+v", march.CurrentMonthSpend)
	}

	now = time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)
	april := decode[summaryResponse](t, do(t, srv, http.MethodGet, "/api/v1/reports/summary", ""))
	if len(april.CurrentMonthSpend) != 0 {
		t.Fatalf("april spend should be empty, got %+v", april.CurrentMonthSpend)
	}
	if april.Totals.Expenses.Cents != 1250 {
		t.Fatalf("all-time totals = %+v", april.Totals)
	}
}

func TestServeCachedAttachmentOnlyOnSuccess(t *testing.T) {
	srv := newTestServer(t, nil, Options{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/export?format=csv", nil)
	srv.serveCached(rec, req, "failing", func(core.Snapshot) (cachedReport, error) {
		return cachedReport{}, errors.New("template exploded")
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != "" {
		t.Fatalf("failed render must not be an attachment, got %q", cd)
	}
	if srv.reports.Size() != 0 {
		t.Fatal("failed render must not be cached")
	}

	rec = httptest.NewRecorder()
	srv.serveCached(rec, req, "ok", func(core.Snapshot) (cachedReport, error) {
		return cachedReport{contentType: "text/csv", filename: "report.csv", body: []byte("Date\n")}, nil
	})
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="report.csv"` {
		t.Fatalf("content disposition = %q", cd)
	}
}

func TestExport(t *testing.T) {
	srv := newTestServer(t, nil, Options{})
	do(t, srv, http.MethodPost, "/api/v1/transactions", `{"amount": 3000, "type": "income", "category": "Salary", "date": "2025-03-01", "notes": "march pay"}`)

	rec := do(t, srv, http.MethodGet, "/api/v1/export?format=csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("csv export: %d %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "expense-buddy.csv") {
		t.Fatalf("content disposition = %q", cd)
	}
	if !strings.Contains(rec.Body.String(), "march pay") {
		t.Fatalf("csv missing row: %s", rec.Body)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/export?format=html&from=2025-03-01&to=2025-03-31", "")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("html export: %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "2025-03-01 to 2025-03-31") {
		t.Fatal("html report should name the period")
	}
}

func TestGoalsCategoriesAlertsAndUser(t *testing.T) {
	srv := newTestServer(t, nil, Options{})

	rec := do(t, srv, http.MethodPost, "/api/v1/goals", `{"title": "Bike", "targetAmount": 200, "deadline": "2025-12-31"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add goal: %d %s", rec.Code, rec.Body)
	}
	goal := decode[goalResponse](t, rec).Goal

	rec = do(t, srv, http.MethodPost, "/api/v1/goals/"+goal.ID+"/funds", `{"amount": 200}`)
	funded := decode[goalResponse](t, rec)
	if rec.Code != http.StatusOK || funded.Alert == nil || funded.Alert.Severity != core.SeveritySuccess {
		t.Fatalf("funds: %d %+v", rec.Code, funded)
	}

	alerts := decode[[]core.Alert](t, do(t, srv, http.MethodGet, "/api/v1/alerts?unread=true", ""))
	if len(alerts) != 1 {
		t.Fatalf("unread alerts = %+v", alerts)
	}
	if rec := do(t, srv, http.MethodPost, "/api/v1/alerts/"+alerts[0].ID+"/read", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("mark read: %d", rec.Code)
	}
	if unread := decode[[]core.Alert](t, do(t, srv, http.MethodGet, "/api/v1/alerts?unread=true", "")); len(unread) != 0 {
		t.Fatalf("unread after mark = %+v", unread)
	}
	if rec := do(t, srv, http.MethodDelete, "/api/v1/alerts/"+alerts[0].ID, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("dismiss: %d", rec.Code)
	}

	rec = do(t, srv, http.MethodPost, "/api/v1/categories", `{"name": "Pets", "color": "#123456", "type": "expense"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add category: %d %s", rec.Code, rec.Body)
	}
	if rec := do(t, srv, http.MethodPost, "/api/v1/categories", `{"name": "pets", "color": "#123456", "type": "expense"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate category: %d", rec.Code)
	}

	if rec := do(t, srv, http.MethodGet, "/api/v1/user", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("user before sign-in: %d", rec.Code)
	}
	rec = do(t, srv, http.MethodPut, "/api/v1/user", `{"fullName": "Sam Lee", "email": "sam@example.com", "notificationsEnabled": true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set user: %d %s", rec.Code, rec.Body)
	}
	rec = do(t, srv, http.MethodPatch, "/api/v1/user", `{"theme": "dark"}`)
	if u := decode[core.User](t, rec); u.Theme != core.ThemeDark || u.FullName != "Sam Lee" {
		t.Fatalf("patched user = %+v", u)
	}
	if rec := do(t, srv, http.MethodDelete, "/api/v1/user", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("logout: %d", rec.Code)
	}
	if snap := srv.ledger.Snapshot(); snap.User != nil || len(snap.Goals) != 1 {
		t.Fatalf("logout must clear the user and keep data: %+v", snap)
	}
}

func TestSuggestCategory(t *testing.T) {
	srv := newTestServer(t, nil, Options{})
	got := decode[suggestResponse](t, do(t, srv, http.MethodGet, "/api/v1/transactions/suggest?note=Uber+to+office", ""))
	if !got.Found || got.Category != "Transport" {
		t.Fatalf("suggest = %+v", got)
	}
}

func TestRateLimitAppliesToWritesOnly(t *testing.T) {
	srv := newTestServer(t, nil, Options{RateLimitPerMinute: 1})
	body := `{"amount": 1, "type": "expense", "category": "Food"}`

	if rec := do(t, srv, http.MethodPost, "/api/v1/transactions", body); rec.Code != http.StatusCreated {
		t.Fatalf("first write: %d", rec.Code)
	}
	rec := do(t, srv, http.MethodPost, "/api/v1/transactions", body)
	if rec.Code != http.StatusTooManyRequests || decode[errorResponse](t, rec).Code != "rate_limited" {
		t.Fatalf("second write: %d %s", rec.Code, rec.Body)
	}
	for i := 0; i < 3; i++ {
		if rec := do(t, srv, http.MethodGet, "/api/v1/transactions", ""); rec.Code != http.StatusOK {
			t.Fatalf("reads must not be limited: %d", rec.Code)
		}
	}
	if n := len(srv.ledger.Snapshot().Transactions); n != 1 {
		t.Fatalf("limited write reached the ledger: %d transactions", n)
	}
}

func TestMiddlewareHeadersAndMetrics(t *testing.T) {
	srv := newTestServer(t, nil, Options{})
	rec := do(t, srv, http.MethodGet, "/api/v1/state", "")
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("security headers missing")
	}
	state := decode[core.Snapshot](t, rec)
	if len(state.Categories) != len(core.DefaultCategories()) {
		t.Fatalf("state categories = %d", len(state.Categories))
	}

	do(t, srv, http.MethodGet, "/.env", "")

	body := do(t, srv, http.MethodGet, "/metrics", "").Body.String()
	for _, want := range []string{
		`expensebuddy_http_requests_total{method="GET",route="/api/v1/state",status="200"} 1`,
		"expensebuddy_suspicious_requests_total 1",
		"expensebuddy_report_cache_entries",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}
