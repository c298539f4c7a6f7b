// internal/app/system/metrics/metrics.go
package metrics

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry and the collectors the app records into.
// All recording methods are safe on a nil *Metrics.
type Metrics struct {
	reg *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	authRejections *prometheus.CounterVec

	vibesSubmitted prometheus.Counter
	vibesRejected  *prometheus.CounterVec
	streakResets   *prometheus.CounterVec
	badgesAwarded  *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	jobRuns        *prometheus.CounterVec
}

// New creates and registers all collectors, plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		authRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_rejections_total",
			Help: "Total number of unauthorized requests",
		}, []string{"reason"}),
		vibesSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vibes_submitted_total",
			Help: "Vibes accepted",
		}),
		vibesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vibes_rejected_total",
			Help: "Vibe submissions rejected",
		}, []string{"reason"}),
		streakResets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streak_resets_total",
			Help: "Current streaks reset to zero",
		}, []string{"source"}),
		badgesAwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "badges_awarded_total",
			Help: "Badges newly awarded",
		}, []string{"badge"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by key family and result",
		}, []string{"key", "result"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "job_runs_total",
			Help: "Scheduled job runs by outcome",
		}, []string{"job", "outcome"}),
	}

	m.reg.MustRegister(
		m.httpRequests, m.httpDuration, m.authRejections,
		m.vibesSubmitted, m.vibesRejected, m.streakResets, m.badgesAwarded,
		m.cacheLookups, m.jobRuns,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the registry for tests and custom collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// VibeSubmitted counts an accepted vibe.
func (m *Metrics) VibeSubmitted() {
	if m == nil {
		return
	}
	m.vibesSubmitted.Inc()
}

// VibeRejected counts a refused submission ("already_submitted", "unauthenticated").
func (m *Metrics) VibeRejected(reason string) {
	if m == nil {
		return
	}
	m.vibesRejected.WithLabelValues(reason).Inc()
}

// StreakResets adds n resets from source ("status", "sweep").
func (m *Metrics) StreakResets(source string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.streakResets.WithLabelValues(source).Add(float64(n))
}

// BadgesAwarded counts each newly awarded badge.
func (m *Metrics) BadgesAwarded(names []string) {
	if m == nil {
		return
	}
	for _, n := range names {
		m.badgesAwarded.WithLabelValues(n).Inc()
	}
}

// CacheLookup records a cache hit or miss for a key family.
func (m *Metrics) CacheLookup(key string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(key, result).Inc()
}

// JobRun records a scheduled job outcome.
func (m *Metrics) JobRun(job string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.jobRuns.WithLabelValues(job, outcome).Inc()
}

// Middleware tracks request counts and latency. Routes are labelled by chi
// pattern rather than raw path to keep label cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(ww.statusCode)).Inc()
		m.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())

		switch ww.statusCode {
		case http.StatusUnauthorized:
			m.authRejections.WithLabelValues("401_unauthorized").Inc()
		case http.StatusTooManyRequests:
			m.authRejections.WithLabelValues("429_rate_limited").Inc()
		}
	})
}

// BasicAuth protects a handler with fixed credentials. Empty credentials
// disable the endpoint entirely.
func BasicAuth(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user == "" || pass == "" {
			http.NotFound(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="Metrics"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
