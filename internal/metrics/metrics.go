// Package metrics provides Prometheus metrics for the pipeline and the
// snapshot fetcher.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "qms"

// Pipeline metrics
var (
	// PipelineRuns counts aggregation runs by report kind.
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total aggregation pipeline runs",
		},
		[]string{"report"},
	)

	// PipelineDuration tracks aggregation latency.
	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Aggregation pipeline latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"report"},
	)
)

// Fetch metrics
var (
	// FetchErrors counts failed table fetches.
	FetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "errors_total",
			Help:      "Total failed table fetches",
		},
		[]string{"table"},
	)

	// FetchRecords holds the row count of the last fetch of each table.
	FetchRecords = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "records",
			Help:      "Rows returned by the last fetch of a table",
		},
		[]string{"table"},
	)

	// SnapshotAge is the age of the snapshot served to the last pipeline run.
	SnapshotAge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "age_seconds",
			Help:      "Age of the snapshot used by the last run",
		},
	)
)

// Info metric
var (
	// BuildInfo exposes build information.
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "commit", "build_time"},
	)
)

// SetBuildInfo sets the build info metric.
func SetBuildInfo(version, commit, buildTime string) {
	BuildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}

// ObserveRun records one pipeline run that started at start.
func ObserveRun(report string, start time.Time) {
	PipelineRuns.WithLabelValues(report).Inc()
	PipelineDuration.WithLabelValues(report).Observe(time.Since(start).Seconds())
}

// ObserveFetch records the outcome of one table fetch.
func ObserveFetch(table string, rows int, err error) {
	if err != nil {
		FetchErrors.WithLabelValues(table).Inc()
		return
	}
	FetchRecords.WithLabelValues(table).Set(float64(rows))
}
