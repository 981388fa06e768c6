package http

import (
	"net/http"
	"strconv"
	"time"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"expensebuddy/internal/cache"
	"expensebuddy/internal/core"
	"expensebuddy/internal/middleware/ratelimit"
)

const metricsNamespace = "expensebuddy"

type metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	alertsRaised    *prometheus.CounterVec
	rateLimited     prometheus.Counter
	suspicious      prometheus.Counter
}

// newMetrics registers the server's collectors on reg. Each server owns its
// registry so several can coexist in one process.
func newMetrics(reg *prometheus.Registry, reports *cache.LRUCache[cachedReport], limiter *ratelimit.Limiter) *metrics {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	m := &metrics{
		requestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		alertsRaised: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "alerts_raised_total",
				Help:      "Alerts raised by ledger commands",
			},
			[]string{"severity"},
		),
		rateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rate_limited_requests_total",
			Help:      "Write requests rejected by the rate limiter",
		}),
		suspicious: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "suspicious_requests_total",
			Help:      "Requests flagged by the security detector",
		}),
	}

	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "report_cache_hits_total",
		Help:      "Report cache hits",
	}, func() float64 {
		hits, _ := reports.Stats()
		return float64(hits)
	})
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "report_cache_misses_total",
		Help:      "Report cache misses",
	}, func() float64 {
		_, misses := reports.Stats()
		return float64(misses)
	})
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "report_cache_entries",
		Help:      "Reports currently cached",
	}, func() float64 { return float64(reports.Size()) })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "rate_limiter_clients",
		Help:      "Clients tracked by the rate limiter",
	}, func() float64 { return float64(limiter.ActiveClients()) })

	return m
}

func (m *metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *metrics) observeAlert(a *core.Alert) {
	if a != nil {
		m.alertsRaised.WithLabelValues(string(a.Severity)).Inc()
	}
}
