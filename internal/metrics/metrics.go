// Package metrics exposes Prometheus metrics for the HTTP layer and the movie
// aggregate.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Clark-Hu/movie-reviewer/internal/review"
)

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestLatency  *prometheus.HistogramVec
	MutationsTotal  *prometheus.CounterVec
	DesyncsDetected prometheus.Counter
	PublishFailures *prometheus.CounterVec
}

var _ review.Observer = (*Metrics)(nil)

// New creates and registers every collector under namespace.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		RequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		MutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_mutations_total",
			Help:      "Total number of persisted movie and review mutations by kind.",
		}, []string{"kind"}),
		DesyncsDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comment_desyncs_total",
			Help:      "Movies found referencing a comment that no longer exists.",
		}),
		PublishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_failures_total",
			Help:      "Aggregate events that could not be published, by kind.",
		}, []string{"kind"}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestLatency,
		m.MutationsTotal,
		m.DesyncsDetected,
		m.PublishFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe counts one persisted mutation.
func (m *Metrics) Observe(kind review.EventKind) {
	m.MutationsTotal.WithLabelValues(string(kind)).Inc()
}

// DesyncDetected counts one dangling comment reference.
func (m *Metrics) DesyncDetected(string, string) {
	m.DesyncsDetected.Inc()
}

// PublishFailed counts one event that was not delivered.
func (m *Metrics) PublishFailed(kind review.EventKind) {
	m.PublishFailures.WithLabelValues(string(kind)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.RequestLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
