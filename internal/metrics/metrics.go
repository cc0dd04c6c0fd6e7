// Package metrics provides Prometheus metrics for the resolver.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jwks_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jwks_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Fetch metrics
	fetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jwks_fetch_duration_seconds",
			Help:    "Duration of JWKS document fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"}, // "success", "failure"
	)

	// Resolution metrics
	resolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jwks_resolutions_total",
			Help: "Total number of key set resolutions",
		},
		[]string{"outcome"}, // "success" or an error code
	)

	keysResolvedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jwks_keys_resolved_total",
			Help: "Total number of signing keys encoded",
		},
		[]string{"encoding"}, // "certificate", "rsa"
	)

	// Lookup metrics
	lookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jwks_lookups_total",
			Help: "Total number of signing key lookups by kid",
		},
		[]string{"result"}, // "found", "not_found"
	)

	// Rate limiting metrics
	rateLimitExceededTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jwks_rate_limit_exceeded_total",
			Help: "Total number of rate limit exceeded events",
		},
		[]string{"endpoint"},
	)
)

// RecordFetch records the outcome and duration of a JWKS fetch.
func RecordFetch(success bool, duration time.Duration) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	fetchDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordResolution records a resolution outcome.
func RecordResolution(outcome string) {
	resolutionsTotal.WithLabelValues(outcome).Inc()
}

// RecordKeysResolved records encoded keys by encoding path.
func RecordKeysResolved(encoding string, count int) {
	keysResolvedTotal.WithLabelValues(encoding).Add(float64(count))
}

// RecordLookup records a lookup by kid.
func RecordLookup(found bool) {
	result := "not_found"
	if found {
		result = "found"
	}
	lookupsTotal.WithLabelValues(result).Inc()
}

// RecordRateLimitExceeded records a rate limit exceeded event.
func RecordRateLimitExceeded(endpoint string) {
	rateLimitExceededTotal.WithLabelValues(endpoint).Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
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

// normalizePath normalizes the path for metrics to avoid high cardinality.
func normalizePath(path string) string {
	switch path {
	case "/healthz", "/readyz", "/metrics", "/keys":
		return path
	}

	// Key IDs are caller-controlled, collapse them.
	if rest, ok := strings.CutPrefix(path, "/keys/"); ok && rest != "" {
		if strings.HasSuffix(rest, "/pem") {
			return "/keys/{kid}/pem"
		}
		return "/keys/{kid}"
	}

	return "/other"
}
