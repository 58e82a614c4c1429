package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for auditor self-monitoring.
// It uses a custom registry to avoid polluting the global default.
type Metrics struct {
	Registry *prometheus.Registry

	// Pass metrics
	PassDuration        prometheus.Histogram
	PassTotal           *prometheus.CounterVec
	SnapshotCount       prometheus.Gauge
	FindingCount        *prometheus.GaugeVec
	RecommendationCount prometheus.Gauge

	// Telemetry metrics
	QueriesFailed    prometheus.Counter
	QueryCacheHits   prometheus.Gauge
	QueryCacheMisses prometheus.Gauge

	// Sink metrics
	PushDuration     prometheus.Histogram
	PushTotal        *prometheus.CounterVec
	PushRetries      prometheus.Counter
	ReportSizeBytes  *prometheus.HistogramVec
	CompressionRatio prometheus.Gauge

	// Process metrics
	AuditorState   *prometheus.GaugeVec
	HeapInuseBytes prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all Prometheus metrics
// registered on a custom registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	sizeBuckets := prometheus.ExponentialBuckets(1024, 4, 10)

	m := &Metrics{
		Registry: reg,

		PassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kubegov_auditor_pass_duration_seconds",
			Help:    "Duration of governance passes in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		PassTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kubegov_auditor_pass_total",
			Help: "Total number of governance passes by outcome.",
		}, []string{"status"}),
		SnapshotCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kubegov_auditor_snapshots",
			Help: "Container snapshots analyzed in the last pass.",
		}),
		FindingCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kubegov_auditor_findings",
			Help: "Findings produced by the last pass.",
		}, []string{"severity"}),
		RecommendationCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kubegov_auditor_recommendations",
			Help: "Recommendations produced by the last pass.",
		}),

		QueriesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kubegov_auditor_queries_failed_total",
			Help: "Total number of failed telemetry queries.",
		}),
		QueryCacheHits: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kubegov_auditor_query_cache_hits",
			Help: "Cumulative telemetry cache hits.",
		}),
		QueryCacheMisses: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kubegov_auditor_query_cache_misses",
			Help: "Cumulative telemetry cache misses.",
		}),

		PushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kubegov_auditor_push_duration_seconds",
			Help:    "Duration of report push operations in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		PushTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kubegov_auditor_push_total",
			Help: "Total number of report push attempts.",
		}, []string{"status"}),
		PushRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kubegov_auditor_push_retries_total",
			Help: "Total number of report push retry attempts.",
		}),
		ReportSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kubegov_auditor_report_size_bytes",
			Help:    "Size of reports in bytes.",
			Buckets: sizeBuckets,
		}, []string{"type"}),
		CompressionRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kubegov_auditor_compression_ratio",
			Help: "Current compression ratio (compressed/original).",
		}),

		AuditorState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kubegov_auditor_state",
			Help: "Current auditor state (1 = active, 0 = inactive).",
		}, []string{"state"}),
		HeapInuseBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kubegov_auditor_heap_inuse_bytes",
			Help: "Heap bytes in use as sampled by the memory watchdog.",
		}),
	}

	// Register all metrics with the custom registry.
	reg.MustRegister(
		m.PassDuration,
		m.PassTotal,
		m.SnapshotCount,
		m.FindingCount,
		m.RecommendationCount,
		m.QueriesFailed,
		m.QueryCacheHits,
		m.QueryCacheMisses,
		m.PushDuration,
		m.PushTotal,
		m.PushRetries,
		m.ReportSizeBytes,
		m.CompressionRatio,
		m.AuditorState,
		m.HeapInuseBytes,
	)

	return m
}

// ObservePass records the outcome counters of one governance pass.
func (m *Metrics) ObservePass(duration float64, snapshots, recommendations int, findingsBySeverity map[string]int) {
	m.PassDuration.Observe(duration)
	m.SnapshotCount.Set(float64(snapshots))
	m.RecommendationCount.Set(float64(recommendations))

	// Reset stale severities so a severity absent from this pass reads 0.
	m.FindingCount.Reset()
	for severity, count := range findingsBySeverity {
		m.FindingCount.WithLabelValues(severity).Set(float64(count))
	}
}
