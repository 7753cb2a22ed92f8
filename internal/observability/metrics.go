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
	// Batch metrics
	RecordsRead        *prometheus.CounterVec
	RecordsRetained    *prometheus.CounterVec
	RecordsDropped     *prometheus.CounterVec
	PredictionsWritten *prometheus.CounterVec
	ModelLoadErrors    prometheus.Counter

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec
	StepDuration      *prometheus.HistogramVec
	StepRetries       *prometheus.CounterVec

	// Serving metrics
	OnlinePredictions    *prometheus.CounterVec
	PredictionLatency    prometheus.Histogram
	PredictionsPublished *prometheus.CounterVec
	WebsocketSubscribers prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulBatch prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "taxi_duration"
	}

	return &Metrics{
		RecordsRead: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "records_read_total",
			Help:      "Total number of trip records read by taxi type",
		}, []string{"taxi_type"}),
		RecordsRetained: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "records_retained_total",
			Help:      "Total number of trip records inside the duration window",
		}, []string{"taxi_type"}),
		RecordsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "records_dropped_total",
			Help:      "Total number of trip records outside the duration window",
		}, []string{"taxi_type"}),
		PredictionsWritten: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "predictions_written_total",
			Help:      "Total number of predictions written to output files",
		}, []string{"taxi_type"}),
		ModelLoadErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "load_errors_total",
			Help:      "Total number of failed model artifact loads",
		}),

		PipelineRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of batch runs by status",
		}, []string{"taxi_type", "status"}),
		PipelineDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Batch run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"taxi_type"}),
		StepDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "step_duration_seconds",
			Help:      "Pipeline step duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step", "status"}),
		StepRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "step_retries_total",
			Help:      "Total number of pipeline step retries",
		}, []string{"step"}),

		OnlinePredictions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "serving",
			Name:      "predictions_total",
			Help:      "Total number of online predictions by status",
		}, []string{"status"}),
		PredictionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "serving",
			Name:      "prediction_latency_seconds",
			Help:      "Online prediction latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		PredictionsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "serving",
			Name:      "predictions_published_total",
			Help:      "Total number of predictions published by sink",
		}, []string{"sink"}),
		WebsocketSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "serving",
			Name:      "websocket_subscribers",
			Help:      "Current number of websocket subscribers",
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

		LastSuccessfulBatch: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_batch_timestamp",
			Help:      "Unix timestamp of last successful batch run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordBatchCounts records read/retained/dropped/written counts for one run.
func RecordBatchCounts(taxiType string, read, retained, written int) {
	DefaultMetrics.RecordsRead.WithLabelValues(taxiType).Add(float64(read))
	DefaultMetrics.RecordsRetained.WithLabelValues(taxiType).Add(float64(retained))
	DefaultMetrics.RecordsDropped.WithLabelValues(taxiType).Add(float64(read - retained))
	DefaultMetrics.PredictionsWritten.WithLabelValues(taxiType).Add(float64(written))
}

// RecordModelLoadError increments the model load error counter.
func RecordModelLoadError() {
	DefaultMetrics.ModelLoadErrors.Inc()
}

// RecordStep records one pipeline step execution.
func RecordStep(step, status string, seconds float64) {
	DefaultMetrics.StepDuration.WithLabelValues(step, status).Observe(seconds)
}

// RecordStepRetry increments the retry counter for step.
func RecordStepRetry(step string) {
	DefaultMetrics.StepRetries.WithLabelValues(step).Inc()
}

// RecordPipelineRun records a batch run.
func RecordPipelineRun(taxiType, status string, durationSeconds float64) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(taxiType, status).Inc()
	DefaultMetrics.PipelineDuration.WithLabelValues(taxiType).Observe(durationSeconds)
}

// RecordOnlinePrediction records one online prediction.
func RecordOnlinePrediction(status string, seconds float64) {
	DefaultMetrics.OnlinePredictions.WithLabelValues(status).Inc()
	if status == "ok" {
		DefaultMetrics.PredictionLatency.Observe(seconds)
	}
}

// RecordPublished increments the published counter for sink.
func RecordPublished(sink string) {
	DefaultMetrics.PredictionsPublished.WithLabelValues(sink).Inc()
}

// SetWebsocketSubscribers sets the websocket subscriber gauge.
func SetWebsocketSubscribers(n int) {
	DefaultMetrics.WebsocketSubscribers.Set(float64(n))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordBatchSuccess marks the time of the last successful batch run.
func RecordBatchSuccess(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulBatch.Set(float64(unixSeconds))
}
