// Package server — metrics.go registers all Prometheus metrics for the HTTP
// server and exposes helpers used by handlers and middleware.
package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// labelHandler partitions HTTP metrics by the logical endpoint name rather
// than the raw URL path.
const labelHandler = "handler"

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// askRequestsTotal counts completed ask requests (sync and streaming),
	// partitioned by outcome: "ok", "deflected", "not_ready", "bad_request",
	// or "error".
	askRequestsTotal *prometheus.CounterVec

	// askDurationSeconds records wall-clock duration of successful ask
	// requests from receipt to final byte.
	askDurationSeconds *prometheus.HistogramVec

	// askActiveStreams is the number of SSE answer streams currently open.
	askActiveStreams prometheus.Gauge

	// oodRejectionsTotal counts questions deflected by the domain gate.
	oodRejectionsTotal prometheus.Counter

	// reindexTotal counts reindex operations, partitioned by outcome.
	reindexTotal *prometheus.CounterVec

	// rateLimitedTotal counts requests rejected by the per-IP rate limiter.
	rateLimitedTotal prometheus.Counter

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, handler, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) is used so that each call
// registers into the provided registry rather than the global default —
// this keeps unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		askRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hrfaq",
			Subsystem: "ask",
			Name:      "requests_total",
			Help:      "Total number of ask requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		askDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hrfaq",
			Subsystem: "ask",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of ask requests from receipt to completion.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"outcome"}),

		askActiveStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "hrfaq",
			Subsystem: "ask",
			Name:      "active_streams",
			Help:      "Number of SSE answer streams currently open.",
		}),

		oodRejectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "hrfaq",
			Subsystem: "gate",
			Name:      "rejections_total",
			Help:      "Total number of questions deflected by the domain gate.",
		}),

		reindexTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hrfaq",
			Subsystem: "index",
			Name:      "rebuilds_total",
			Help:      "Total number of index rebuild operations, partitioned by outcome.",
		}, []string{"outcome"}),

		rateLimitedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "hrfaq",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the per-IP rate limiter.",
		}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hrfaq",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hrfaq",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}
