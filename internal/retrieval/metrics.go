package retrieval

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline's prometheus collectors.
type Metrics struct {
	QueriesTotal        *prometheus.CounterVec
	QueryDuration       *prometheus.HistogramVec
	ChunksAllowed       prometheus.Counter
	ChunksDenied        prometheus.Counter
	InjectionRejections prometheus.Counter
	AuditFailures       prometheus.Counter
	IngestedDocuments   prometheus.Counter
	IngestedChunks      prometheus.Counter
}

// NewMetrics builds and registers the collectors. A nil registerer skips
// registration, which keeps tests independent of the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentryd",
			Name:      "queries_total",
			Help:      "Completed queries by audit outcome.",
		}, []string{"outcome"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sentryd",
			Name:      "query_duration_seconds",
			Help:      "End-to-end query latency by audit outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		ChunksAllowed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sentryd",
			Name:      "chunks_allowed_total",
			Help:      "Chunks that passed policy evaluation.",
		}),
		ChunksDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sentryd",
			Name:      "chunks_denied_total",
			Help:      "Chunks withheld by policy evaluation.",
		}),
		InjectionRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sentryd",
			Name:      "injection_rejections_total",
			Help:      "Queries rejected by the injection guard.",
		}),
		AuditFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sentryd",
			Name:      "audit_append_failures_total",
			Help:      "Audit log appends that failed, failing the query.",
		}),
		IngestedDocuments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sentryd",
			Name:      "ingested_documents_total",
			Help:      "Documents ingested.",
		}),
		IngestedChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sentryd",
			Name:      "ingested_chunks_total",
			Help:      "Chunks ingested.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.QueriesTotal,
			m.QueryDuration,
			m.ChunksAllowed,
			m.ChunksDenied,
			m.InjectionRejections,
			m.AuditFailures,
			m.IngestedDocuments,
			m.IngestedChunks,
		)
	}
	return m
}

// ObserveQuery records one completed query.
func (m *Metrics) ObserveQuery(outcome string, d time.Duration) {
	m.QueriesTotal.WithLabelValues(outcome).Inc()
	m.QueryDuration.WithLabelValues(outcome).Observe(d.Seconds())
}
