package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	masqueradesStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "masquerade_sessions_started_total",
		Help: "Successful masquerade starts.",
	})

	masqueradesEnded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "masquerade_sessions_ended_total",
		Help: "Successful masquerade ends.",
	})

	auditEventsWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_events_written_total",
		Help: "Audit log events persisted.",
	})

	signInLockouts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sign_in_lockouts_total",
		Help: "Sign-in attempts rejected by the lockout guard.",
	})
)

// Init registers metrics in the default registry. Call once from main.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		masqueradesStarted, masqueradesEnded, auditEventsWritten, signInLockouts,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// MasqueradeStarted increments the masquerade start counter.
func MasqueradeStarted() { masqueradesStarted.Inc() }

// MasqueradeEnded increments the masquerade end counter.
func MasqueradeEnded() { masqueradesEnded.Inc() }

// AuditEventWritten increments the audit write counter.
func AuditEventWritten() { auditEventsWritten.Inc() }

// SignInLockout increments the lockout rejection counter.
func SignInLockout() { signInLockouts.Inc() }

// Instrument wraps a handler with request count, latency and in-flight gauges.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath collapses per-entity path segments so metric labels stay
// bounded. Only the masquerade target segment is dynamic in this API.
func CanonicalPath(path string) string {
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		path = path[:idx]
	}
	if path == "" {
		return "/"
	}
	if path == "/admin/masquerade/end/" {
		return path
	}
	if strings.HasPrefix(path, "/admin/masquerade/") {
		rest := strings.Trim(strings.TrimPrefix(path, "/admin/masquerade/"), "/")
		if rest != "" && !strings.Contains(rest, "/") {
			return "/admin/masquerade/:user_id/"
		}
	}
	return path
}

// statusWriter records the response code for metrics labels.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
