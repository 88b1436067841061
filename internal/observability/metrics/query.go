package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unimind/uniquery/internal/core/domain"
)

// QueryMetrics observes the routing and merging pipeline: chosen routes,
// end-to-end latency, per-source failures, classified confidence, and
// merge-stage fallbacks.
type QueryMetrics struct {
	queryTotal          *prometheus.CounterVec
	queryDuration       *prometheus.HistogramVec
	sourceFailuresTotal *prometheus.CounterVec
	intentConfidence    prometheus.Histogram
	mergeFallbackTotal  prometheus.Counter
}

func newQueryMetrics(registry *prometheus.Registry) *QueryMetrics {
	queryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "uq",
			Subsystem: "query",
			Name:      "total",
			Help:      "Total completed queries by route.",
		},
		[]string{"route"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "uq",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Query pipeline duration in seconds by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	sourceFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "uq",
			Subsystem: "query",
			Name:      "source_failures_total",
			Help:      "Total isolated per-source failures by source type.",
		},
		[]string{"source"},
	)
	intentConfidence := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "uq",
			Subsystem: "query",
			Name:      "intent_confidence",
			Help:      "Distribution of classified intent confidence scores.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
	)
	mergeFallbackTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "uq",
			Subsystem: "query",
			Name:      "merge_fallback_total",
			Help:      "Total merges that degraded to raw concatenation.",
		},
	)

	registry.MustRegister(queryTotal, queryDuration, sourceFailuresTotal, intentConfidence, mergeFallbackTotal)

	return &QueryMetrics{
		queryTotal:          queryTotal,
		queryDuration:       queryDuration,
		sourceFailuresTotal: sourceFailuresTotal,
		intentConfidence:    intentConfidence,
		mergeFallbackTotal:  mergeFallbackTotal,
	}
}

// ObserveQuery records one completed pipeline pass from its response.
func (m *QueryMetrics) ObserveQuery(resp *domain.RagResponse, duration time.Duration) {
	if m == nil || resp == nil {
		return
	}
	route := string(resp.Route)
	m.queryTotal.WithLabelValues(route).Inc()
	m.queryDuration.WithLabelValues(route).Observe(duration.Seconds())
	m.intentConfidence.Observe(resp.Confidence)
}

func (m *QueryMetrics) RecordSourceFailure(source domain.SourceType) {
	if m == nil {
		return
	}
	m.sourceFailuresTotal.WithLabelValues(string(source)).Inc()
}

func (m *QueryMetrics) RecordMergeFallback() {
	if m == nil {
		return
	}
	m.mergeFallbackTotal.Inc()
}
