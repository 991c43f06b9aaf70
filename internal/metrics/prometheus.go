package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the ingestion pipeline

var (
	// Queue metrics
	JobsEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickwire_jobs_enqueued_total",
			Help: "Total number of jobs enqueued per queue",
		},
		[]string{"queue"},
	)

	JobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickwire_jobs_processed_total",
			Help: "Total number of jobs processed per queue",
		},
		[]string{"queue", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pickwire_job_duration_seconds",
			Help:    "Duration of job executions in seconds",
			Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"queue"},
	)

	// Fetch metrics
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickwire_fetches_total",
			Help: "Total number of page fetches",
		},
		[]string{"adapter", "method", "status"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pickwire_fetch_duration_seconds",
			Help:    "Duration of page fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"adapter"},
	)

	SnapshotBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pickwire_snapshot_bytes",
			Help:    "Size of persisted fetch snapshots in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
	)

	RobotsBlockedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pickwire_robots_blocked_total",
			Help: "Total number of fetches skipped by robots policy",
		},
	)

	// Normalization metrics
	PredictionsInsertedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickwire_predictions_inserted_total",
			Help: "Total number of new predictions inserted",
		},
		[]string{"sport"},
	)

	PredictionsDuplicateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickwire_predictions_duplicate_total",
			Help: "Total number of predictions collapsed by dedup key",
		},
		[]string{"sport"},
	)

	PredictionsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickwire_predictions_skipped_total",
			Help: "Total number of raw predictions skipped during normalization",
		},
		[]string{"reason"},
	)

	// Results metrics
	ResultsUpsertedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickwire_results_upserted_total",
			Help: "Total number of match results written",
		},
		[]string{"sport", "status"},
	)

	GradesAppliedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickwire_grades_applied_total",
			Help: "Total number of prediction grades applied",
		},
		[]string{"grade"},
	)

	// Alert metrics
	AlertsDispatchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pickwire_alerts_dispatched_total",
			Help: "Total number of alerts dispatched",
		},
	)

	AlertsSuppressedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pickwire_alerts_suppressed_total",
			Help: "Total number of alerts suppressed by the 24h dedup record",
		},
	)

	// Registry metrics
	TeamsAutoCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickwire_teams_autocreated_total",
			Help: "Total number of teams auto-created by the resolver",
		},
		[]string{"sport"},
	)

	AliasCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pickwire_alias_cache_size",
			Help: "Number of entries in the in-memory alias cache",
		},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickwire_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pickwire_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)
)

// RecordJob records one job execution
func RecordJob(queue, status string, duration float64) {
	JobsProcessedTotal.WithLabelValues(queue, status).Inc()
	JobDuration.WithLabelValues(queue).Observe(duration)
}

// RecordFetch records one page fetch
func RecordFetch(adapter, method, status string, duration float64, size int) {
	FetchesTotal.WithLabelValues(adapter, method, status).Inc()
	FetchDuration.WithLabelValues(adapter).Observe(duration)
	if size > 0 {
		SnapshotBytes.Observe(float64(size))
	}
}

// RecordNormalization records the outcome of one normalization batch
func RecordNormalization(sport string, inserted, duplicates int) {
	PredictionsInsertedTotal.WithLabelValues(sport).Add(float64(inserted))
	PredictionsDuplicateTotal.WithLabelValues(sport).Add(float64(duplicates))
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
