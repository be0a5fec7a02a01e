// Package metrics provides Prometheus metrics for the match predictor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sample set labels.
const (
	SetTrain = "train"
	SetTest  = "test"
)

// Manager manages all Prometheus metrics for the predictor.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Pipeline Metrics - Stats aggregation and feature building
	aggregationDuration prometheus.Histogram
	statsRows           prometheus.Gauge
	enrichedRows        prometheus.Gauge
	samples             *prometheus.GaugeVec

	// Training Metrics - Network optimisation progress
	trainingPasses prometheus.Counter
	trainingError  prometheus.Gauge
	accuracy       *prometheus.GaugeVec

	// Prediction Metrics
	predictions      *prometheus.CounterVec
	predictionErrors *prometheus.CounterVec

	// Repository Metrics
	repositoryLatency *prometheus.HistogramVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "crystalball",
		subsystem:        "predictor",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one block per metric
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.constLabels)

	m.aggregationDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stats_aggregation_duration_milliseconds",
		Help:        "Duration of a full stats aggregation in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.statsRows = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stats_rows",
		Help:        "Number of (team, window) rows in the current stats snapshot",
		ConstLabels: labels,
	})

	m.enrichedRows = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "enriched_matches",
		Help:        "Number of rows in the enriched match table",
		ConstLabels: labels,
	})

	m.samples = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "samples",
			Help:        "Number of samples per set after the split",
			ConstLabels: labels,
		},
		[]string{"set"},
	)

	m.trainingPasses = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "training_passes_total",
		Help:        "Total number of backpropagation passes over the train set",
		ConstLabels: labels,
	})

	m.trainingError = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "training_error",
		Help:        "Mean sample error of the last training pass",
		ConstLabels: labels,
	})

	m.accuracy = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "accuracy_percent",
			Help:        "Classification accuracy after the last pass, per set",
			ConstLabels: labels,
		},
		[]string{"set"},
	)

	m.predictions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "predictions_total",
			Help:        "Total number of ad-hoc predictions by predicted side",
			ConstLabels: labels,
		},
		[]string{"outcome"},
	)

	m.predictionErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "prediction_errors_total",
			Help:        "Total number of failed predictions by error kind",
			ConstLabels: labels,
		},
		[]string{"kind"},
	)

	m.repositoryLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "repository_latency_milliseconds",
			Help:        "Repository operation latency in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"operation"},
	)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// RecordAggregation observes an aggregation run and the resulting snapshot size.
func (m *Manager) RecordAggregation(durationMs float64, rows int) {
	m.aggregationDuration.Observe(durationMs)
	m.statsRows.Set(float64(rows))
}

// UpdateEnrichedRows sets the enriched table size.
func (m *Manager) UpdateEnrichedRows(rows int) {
	m.enrichedRows.Set(float64(rows))
}

// UpdateSamples sets the sample count of set.
func (m *Manager) UpdateSamples(set string, count int) {
	m.samples.WithLabelValues(set).Set(float64(count))
}

// RecordTrainingPass counts a pass and stores its error.
func (m *Manager) RecordTrainingPass(meanError float64) {
	m.trainingPasses.Inc()
	m.trainingError.Set(meanError)
}

// UpdateAccuracy sets the accuracy percentage of set.
func (m *Manager) UpdateAccuracy(set string, percent float64) {
	m.accuracy.WithLabelValues(set).Set(percent)
}

// RecordPrediction counts a prediction by outcome side.
func (m *Manager) RecordPrediction(outcome string) {
	m.predictions.WithLabelValues(outcome).Inc()
}

// RecordPredictionError counts a failed prediction by kind.
func (m *Manager) RecordPredictionError(kind string) {
	m.predictionErrors.WithLabelValues(kind).Inc()
}

// RecordRepositoryLatency observes a repository operation.
func (m *Manager) RecordRepositoryLatency(operation string, latencyMs float64) {
	m.repositoryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func (m *Manager) RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordAggregation records on the global manager.
func RecordAggregation(durationMs float64, rows int) {
	globalManager.RecordAggregation(durationMs, rows)
}

// UpdateEnrichedRows records on the global manager.
func UpdateEnrichedRows(rows int) {
	globalManager.UpdateEnrichedRows(rows)
}

// UpdateSamples records on the global manager.
func UpdateSamples(set string, count int) {
	globalManager.UpdateSamples(set, count)
}

// RecordTrainingPass records on the global manager.
func RecordTrainingPass(meanError float64) {
	globalManager.RecordTrainingPass(meanError)
}

// UpdateAccuracy records on the global manager.
func UpdateAccuracy(set string, percent float64) {
	globalManager.UpdateAccuracy(set, percent)
}

// RecordPrediction records on the global manager.
func RecordPrediction(outcome string) {
	globalManager.RecordPrediction(outcome)
}

// RecordPredictionError records on the global manager.
func RecordPredictionError(kind string) {
	globalManager.RecordPredictionError(kind)
}

// RecordRepositoryLatency records on the global manager.
func RecordRepositoryLatency(operation string, latencyMs float64) {
	globalManager.RecordRepositoryLatency(operation, latencyMs)
}

// RecordHTTPRequest records on the global manager.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode)
}

// RecordHTTPRequestDuration records on the global manager.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.RecordHTTPRequestDuration(endpoint, method, statusCode, duration)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
