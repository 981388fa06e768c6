// Package http exposes the ledger as a JSON API with CSV and HTML exports.
package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"expensebuddy/internal/cache"
	"expensebuddy/internal/core"
	"expensebuddy/internal/export"
	"expensebuddy/internal/ledger"
	applog "expensebuddy/internal/log"
	"expensebuddy/internal/middleware/ratelimit"
	"expensebuddy/internal/middleware/security"
)

// Ledger is what the handlers need from the engine. services.LedgerService
// satisfies it, so commands issued over HTTP also publish their events.
type Ledger interface {
	AddTransaction(ctx context.Context, d ledger.TransactionDraft) (core.Transaction, *core.Alert, error)
	UpdateTransaction(ctx context.Context, id string, p ledger.TransactionPatch) (core.Transaction, *core.Alert, error)
	DeleteTransaction(ctx context.Context, id string) (core.Transaction, error)

	SetBudgetLimit(ctx context.Context, category string, limit core.Money) (core.Budget, error)
	RecalculateBudgets(ctx context.Context) ([]core.Budget, error)

	AddGoal(ctx context.Context, d ledger.GoalDraft) (core.Goal, error)
	UpdateGoal(ctx context.Context, id string, p ledger.GoalPatch) (core.Goal, *core.Alert, error)
	DeleteGoal(ctx context.Context, id string) error
	AddFundsToGoal(ctx context.Context, id string, amount core.Money) (core.Goal, *core.Alert, error)

	AddCategory(ctx context.Context, name, color string, appliesTo core.CategoryScope) (core.Category, error)
	DeleteCategory(ctx context.Context, id string) (core.Category, error)

	MarkAlertRead(ctx context.Context, id string) error
	MarkAllAlertsRead(ctx context.Context) error
	DismissAlert(ctx context.Context, id string) error

	SetUser(ctx context.Context, u core.User) (core.User, error)
	UpdateUser(ctx context.Context, p ledger.UserPatch) (core.User, error)
	Logout(ctx context.Context) error

	SuggestCategory(note string) (string, bool)
	Snapshot() core.Snapshot
	Transactions(f ledger.Filter) []core.Transaction
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tune the server. Zero values fall back to the defaults below.
type Options struct {
	Logger             *applog.Logger
	Currency           string
	RateLimitPerMinute int
	ReportCacheSize    int
	ReportCacheTTL     time.Duration
	// Ready is pinged by /readyz. Nil means always ready.
	Ready Pinger
	Now   func() time.Time
}

// cachedReport is a rendered report body. A non-empty filename makes it
// an attachment.
type cachedReport struct {
	contentType string
	filename    string
	body        []byte
}

type Server struct {
	http.Server

	ledger    Ledger
	logger    *applog.Logger
	formatter *export.Formatter
	ready     Pinger
	now       func() time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	reports  *cache.LRUCache[cachedReport]
	caches   *cache.Manager

	// reportGen is bumped by every successful write and prefixes report cache keys.
	reportGen atomic.Uint64

	registry *prometheus.Registry
	metrics  *metrics

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, l Ledger, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = applog.Discard()
	}
	if opts.Currency == "" {
		opts.Currency = "USD"
	}
	if opts.ReportCacheSize <= 0 {
		opts.ReportCacheSize = 128
	}
	if opts.ReportCacheTTL <= 0 {
		opts.ReportCacheTTL = 5 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	formatter, err := export.NewFormatter(opts.Currency)
	if err != nil {
		return nil, err
	}

	s := &Server{
		ledger:    l,
		logger:    opts.Logger.WithComponent(applog.ComponentHTTP),
		formatter: formatter,
		ready:     opts.Ready,
		now:       opts.Now,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:  security.NewDetector(),
		reports:   cache.NewLRUCache[cachedReport](opts.ReportCacheSize, opts.ReportCacheTTL),
		caches:    cache.NewManager(opts.Logger),
		registry:  prometheus.NewRegistry(),
	}
	s.metrics = newMetrics(s.registry, s.reports, s.limiter)
	s.caches.Register(s.reports)
	s.caches.StartCleanup(10 * time.Minute)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(applog.RequestMiddleware(s.logger, requestID, wrapWriter))
	r.Use(s.metrics.middleware)
	r.Use(chimw.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware(false, s.onSuspicious))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.limitWrites)
		r.Use(s.invalidateOnWrite)

		r.Get("/state", s.handleState)

		r.Get("/transactions", s.handleListTransactions)
		r.Post("/transactions", s.handleAddTransaction)
		r.Get("/transactions/suggest", s.handleSuggestCategory)
		r.Patch("/transactions/{id}", s.handleUpdateTransaction)
		r.Delete("/transactions/{id}", s.handleDeleteTransaction)

		r.Get("/budgets", s.handleListBudgets)
		r.Post("/budgets/recalculate", s.handleRecalculateBudgets)
		r.Put("/budgets/{category}", s.handleSetBudget)

		r.Get("/goals", s.handleListGoals)
		r.Post("/goals", s.handleAddGoal)
		r.Patch("/goals/{id}", s.handleUpdateGoal)
		r.Delete("/goals/{id}", s.handleDeleteGoal)
		r.Post("/goals/{id}/funds", s.handleAddFunds)

		r.Get("/categories", s.handleListCategories)
		r.Post("/categories", s.handleAddCategory)
		r.Delete("/categories/{id}", s.handleDeleteCategory)

		r.Get("/alerts", s.handleListAlerts)
		r.Post("/alerts/read-all", s.handleMarkAllAlertsRead)
		r.Post("/alerts/{id}/read", s.handleMarkAlertRead)
		r.Delete("/alerts/{id}", s.handleDismissAlert)

		r.Get("/user", s.handleGetUser)
		r.Put("/user", s.handleSetUser)
		r.Patch("/user", s.handleUpdateUser)
		r.Delete("/user", s.handleLogout)

		r.Get("/reports/summary", s.handleSummary)
		r.Get("/reports/monthly", s.handleMonthly)
		r.Get("/export", s.handleExport)
	})
	return r
}

func requestID(r *http.Request) string {
	return chimw.GetReqID(r.Context())
}

func wrapWriter(w http.ResponseWriter, protoMajor int) applog.StatusRecorder {
	return chimw.NewWrapResponseWriter(w, protoMajor)
}

func isWrite(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

// limitWrites applies the per-client limiter to state-changing requests.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isWrite(r.Method) {
			limited.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// invalidateOnWrite drops cached reports after any successful write.
func (s *Server) invalidateOnWrite(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isWrite(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if status := ww.Status(); status == 0 || status < http.StatusBadRequest {
			s.reportGen.Add(1)
			s.reports.Purge()
		}
	})
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.rateLimited.Inc()
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, try again later", Code: "rate_limited"})
}

func (s *Server) onSuspicious(r *http.Request) {
	s.metrics.suspicious.Inc()
	applog.FromContext(r.Context()).WithComponent(applog.ComponentSecurity).WarnContext(r.Context(), "Suspicious request",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path,
		applog.FieldUserAgent, r.UserAgent())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", applog.FieldError, err.Error())
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
