// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Engine metrics
	RunsStarted         *prometheus.CounterVec
	RunsFinished        *prometheus.CounterVec
	IterationsSimulated prometheus.Counter
	ActiveRuns          prometheus.Gauge
	BatchDuration       prometheus.Histogram
	RunDuration         prometheus.Histogram

	// Calibration metrics
	ScenariosConverted prometheus.Counter
	ScenariosRejected  prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Server metrics
	ProgressStreamsOpen prometheus.Gauge
	ReportsGenerated    prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "risklab"
	}

	return &Metrics{
		RunsStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "runs_started_total",
			Help:      "Total number of simulation runs started by mode",
		}, []string{"mode"}),
		RunsFinished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "runs_finished_total",
			Help:      "Total number of simulation runs finished by status",
		}, []string{"status"}),
		IterationsSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "iterations_simulated_total",
			Help:      "Total number of Monte Carlo iterations simulated",
		}),
		ActiveRuns: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "active_runs",
			Help:      "Number of simulation runs currently executing",
		}),
		BatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "batch_duration_seconds",
			Help:      "Iteration batch execution duration in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "run_duration_seconds",
			Help:      "Simulation run duration in seconds",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 120},
		}),

		ScenariosConverted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calibration",
			Name:      "scenarios_converted_total",
			Help:      "Total number of raw estimates converted to scenarios",
		}),
		ScenariosRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calibration",
			Name:      "scenarios_rejected_total",
			Help:      "Total number of raw estimates rejected during conversion",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		ProgressStreamsOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "progress_streams_open",
			Help:      "Number of open WebSocket progress streams",
		}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporting",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRunStarted increments the runs started counter.
func RecordRunStarted(mode string) {
	DefaultMetrics.RunsStarted.WithLabelValues(mode).Inc()
	DefaultMetrics.ActiveRuns.Inc()
}

// RecordRunFinished records a finished run with its terminal status.
func RecordRunFinished(status string, durationSeconds float64) {
	DefaultMetrics.RunsFinished.WithLabelValues(status).Inc()
	DefaultMetrics.ActiveRuns.Dec()
	DefaultMetrics.RunDuration.Observe(durationSeconds)
}

// RecordIterations adds to the simulated iteration counter.
func RecordIterations(n int) {
	DefaultMetrics.IterationsSimulated.Add(float64(n))
}

// RecordBatchDuration records one batch execution.
func RecordBatchDuration(seconds float64) {
	DefaultMetrics.BatchDuration.Observe(seconds)
}

// RecordCalibration records a calibration conversion outcome.
func RecordCalibration(converted, rejected int) {
	DefaultMetrics.ScenariosConverted.Add(float64(converted))
	DefaultMetrics.ScenariosRejected.Add(float64(rejected))
}

// RecordReportGenerated increments the report counter.
func RecordReportGenerated() {
	DefaultMetrics.ReportsGenerated.Inc()
}

// ProgressStreamOpened tracks a new WebSocket progress stream.
func ProgressStreamOpened() {
	DefaultMetrics.ProgressStreamsOpen.Inc()
}

// ProgressStreamClosed tracks a closed WebSocket progress stream.
func ProgressStreamClosed() {
	DefaultMetrics.ProgressStreamsOpen.Dec()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
