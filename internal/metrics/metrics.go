// Package metrics exposes Prometheus instrumentation for the HTTP surface
// and the token pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "authserver_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "authserver_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	tokensIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "authserver_tokens_issued_total",
		Help: "Access tokens issued by grant type.",
	}, []string{"grant_type"})

	keyRotationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "authserver_key_rotations_total",
		Help: "Completed signing-key rotations.",
	})
)

// Handler serves the metrics scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// TokenIssued records a successful token grant.
func TokenIssued(grantType string) {
	tokensIssuedTotal.WithLabelValues(grantType).Inc()
}

// KeyRotated records a completed signing-key rotation.
func KeyRotated() {
	keyRotationsTotal.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument wraps a handler with request count and latency collection. The
// route label is the registered pattern, not the raw path, to keep
// cardinality bounded.
func Instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		httpRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
