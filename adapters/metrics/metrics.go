// Package metrics provides Prometheus metrics collection for SAGE.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for SAGE.
type Collector struct {
	// Processing metrics
	PackagesProcessed  *prometheus.CounterVec
	ProcessingDuration *prometheus.HistogramVec
	DuplicatesRejected prometheus.Counter

	// Validation metrics
	DiagnosticsTotal *prometheus.CounterVec
	RowsValidated    prometheus.Counter

	// Intake metrics
	ArtifactsSeen *prometheus.CounterVec
}

// New creates a new metrics collector with all metrics registered.
func New() *Collector {
	return &Collector{
		PackagesProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sage",
				Name:      "packages_processed_total",
				Help:      "Total number of package processing runs",
			},
			[]string{"package", "status"},
		),
		ProcessingDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sage",
				Name:      "processing_duration_seconds",
				Help:      "Package processing duration in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"package"},
		),
		DuplicatesRejected: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sage",
				Name:      "duplicates_rejected_total",
				Help:      "Submissions rejected by the dedup gate",
			},
		),
		DiagnosticsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sage",
				Name:      "diagnostics_total",
				Help:      "Validation findings by severity",
			},
			[]string{"severity"},
		),
		RowsValidated: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sage",
				Name:      "rows_validated_total",
				Help:      "Data rows validated across all catalogs",
			},
		),
		ArtifactsSeen: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sage",
				Name:      "artifacts_seen_total",
				Help:      "Artifacts observed by intake, by channel",
			},
			[]string{"channel"},
		),
	}
}
