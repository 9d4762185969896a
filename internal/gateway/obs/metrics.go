// Package obs exposes the gateway's Prometheus metrics.
package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/httpx"
)

var (
	inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "status"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)

	authFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_auth_failures_total",
			Help: "Token verification failures by reason.",
		},
		[]string{"reason"},
	)

	denials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_denials_total",
			Help: "Requests denied by the abuse and policy layers.",
		},
		[]string{"layer"}, // rate_limit, brute_force, ip_block, signature, dlp, csrf
	)

	cacheDegraded = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_cache_degraded",
		Help: "1 while the shared cache is unreachable and the in-process fallback is serving.",
	})

	auditDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_audit_dropped_total",
		Help: "Audit events dropped because a sink write failed.",
	})
)

// Init registers the gateway metrics with the default registry.
func Init() {
	prometheus.MustRegister(
		inFlight, requestsTotal, requestDuration,
		authFailures, denials, cacheDegraded, auditDropped,
	)
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// AuthFailure counts one verification failure by taxonomy reason.
func AuthFailure(reason string) {
	authFailures.WithLabelValues(reason).Inc()
}

// Denial counts one request denied by the named layer.
func Denial(layer string) {
	denials.WithLabelValues(layer).Inc()
}

// SetCacheDegraded reflects the failover store's current state.
func SetCacheDegraded(degraded bool) {
	if degraded {
		cacheDegraded.Set(1)
	} else {
		cacheDegraded.Set(0)
	}
}

// AuditDropped counts one failed sink batch.
func AuditDropped() {
	auditDropped.Inc()
}

// Instrument measures request rate, latency and in-flight count. Status is
// labelled, path deliberately is not: store ids and user ids in paths would
// explode cardinality.
func Instrument() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			inFlight.Inc()
			start := time.Now()

			sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(sw, r)

			status := strconv.Itoa(sw.code)
			requestDuration.WithLabelValues(r.Method, status).Observe(time.Since(start).Seconds())
			requestsTotal.WithLabelValues(r.Method, status).Inc()
			inFlight.Dec()
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
