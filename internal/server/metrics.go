package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, handler name, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec

	// draftsStartedTotal counts draft sessions created, partitioned by how
	// the template was chosen: "direct" or "matched".
	draftsStartedTotal *prometheus.CounterVec

	// templatesCreatedTotal counts templates persisted, partitioned by
	// source: "extract" or "bootstrap".
	templatesCreatedTotal *prometheus.CounterVec
}

// newServerMetrics registers all server metrics against reg. promauto.With
// is used so each call registers into the provided registry rather than the
// global default, which keeps unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lexdraft",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", "handler", "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lexdraft",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "handler"}),

		draftsStartedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lexdraft",
			Subsystem: "drafts",
			Name:      "started_total",
			Help:      "Total number of draft sessions created, partitioned by template selection mode.",
		}, []string{"mode"}),

		templatesCreatedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lexdraft",
			Subsystem: "templates",
			Name:      "created_total",
			Help:      "Total number of templates persisted, partitioned by source.",
		}, []string{"source"}),
	}
}

// instrument wraps an endpoint handler with request counting and latency
// observation under the given handler name.
func (m *serverMetrics) instrument(name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(rw, r)

		m.httpRequestsTotal.WithLabelValues(r.Method, name, strconv.Itoa(rw.status)).Inc()
		m.httpDurationSeconds.WithLabelValues(r.Method, name).Observe(time.Since(start).Seconds())
	})
}
