// Package metrics provides Prometheus metrics for the skillboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every metric the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Matches
	matchesSubmitted prometheus.Counter
	matchesDuplicate prometheus.Counter
	matchesRated     *prometheus.CounterVec
	matchesFailed    *prometheus.CounterVec
	ratingLatency    *prometheus.HistogramVec
	playersTotal     prometheus.Gauge
	predictions      *prometheus.CounterVec
	windowResets     *prometheus.CounterVec

	// Store
	storeLatency *prometheus.HistogramVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid exporting metrics registered by dependencies.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	customRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager. Without WithPrometheusRegistry the
// metrics register on prometheus.DefaultRegisterer.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "skillboard",
		subsystem:        "",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.matchesSubmitted = m.counter("matches_submitted_total", "Matches accepted by the API")
	m.matchesDuplicate = m.counter("matches_duplicate_total", "Matches rejected as already seen")
	m.matchesRated = m.counterVec("matches_rated_total", "Matches whose ratings were committed", "model")
	m.matchesFailed = m.counterVec("matches_failed_total", "Matches that could not be rated", "reason")
	m.ratingLatency = m.histogramVec("rating_latency_milliseconds", "Time spent inside the rating model per match", "model")
	m.playersTotal = m.gauge("players_total", "Number of rated players")
	m.predictions = m.counterVec("predictions_total", "Prediction requests served", "kind")
	m.windowResets = m.counterVec("window_resets_total", "Rating window resets", "window")

	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Store operation latency", "operation")

	m.queueSize = m.gauge("queue_size", "Matches waiting to be rated")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of queued matches")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Matches enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Matches dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Matches rejected by a full or closed queue")

	m.workerCount = m.gauge("worker_count", "Configured match workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently rating a match")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "End to end time to process one match")
	m.workerErrors = m.counter("worker_errors_total", "Matches a worker failed to process")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
}

func (m *Manager) RecordMatchSubmitted()                    { m.matchesSubmitted.Inc() }
func (m *Manager) RecordMatchDuplicate()                    { m.matchesDuplicate.Inc() }
func (m *Manager) RecordMatchRated(model string)            { m.matchesRated.WithLabelValues(model).Inc() }
func (m *Manager) RecordMatchFailed(reason string)          { m.matchesFailed.WithLabelValues(reason).Inc() }
func (m *Manager) UpdatePlayersTotal(n int)                 { m.playersTotal.Set(float64(n)) }
func (m *Manager) RecordPrediction(kind string)             { m.predictions.WithLabelValues(kind).Inc() }
func (m *Manager) RecordWindowReset(window string)          { m.windowResets.WithLabelValues(window).Inc() }
func (m *Manager) RecordStoreLatency(op string, ms float64) { m.storeLatency.WithLabelValues(op).Observe(ms) }

// RecordRatingLatency observes the time one model call took.
func (m *Manager) RecordRatingLatency(model string, ms float64) {
	m.ratingLatency.WithLabelValues(model).Observe(ms)
}

// UpdateQueue publishes the queue gauges.
func (m *Manager) UpdateQueue(size, capacity int) {
	m.queueSize.Set(float64(size))
	m.queueCapacity.Set(float64(capacity))
	if capacity > 0 {
		m.queueUtilization.Set(float64(size) / float64(capacity))
	}
}

// RecordHTTPRequest records one served request.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordError counts an error raised by component.
func (m *Manager) RecordError(component, errorType string) {
	m.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// Match metrics.

// RecordMatchSubmitted increments the accepted matches counter.
func RecordMatchSubmitted() { globalManager.RecordMatchSubmitted() }

// RecordMatchDuplicate increments the duplicate matches counter.
func RecordMatchDuplicate() { globalManager.RecordMatchDuplicate() }

// RecordMatchRated counts a committed match for model.
func RecordMatchRated(model string) { globalManager.RecordMatchRated(model) }

// RecordMatchFailed counts a match that could not be rated.
func RecordMatchFailed(reason string) { globalManager.RecordMatchFailed(reason) }

// RecordRatingLatency records model latency in milliseconds.
func RecordRatingLatency(model string, latencyMs float64) {
	globalManager.RecordRatingLatency(model, latencyMs)
}

// UpdatePlayersTotal sets the number of rated players.
func UpdatePlayersTotal(count int) { globalManager.UpdatePlayersTotal(count) }

// RecordPrediction counts a prediction of the given kind.
func RecordPrediction(kind string) { globalManager.RecordPrediction(kind) }

// RecordWindowReset counts a reset of window.
func RecordWindowReset(window string) { globalManager.RecordWindowReset(window) }

// Store metrics.

// RecordStoreLatency records store operation latency in milliseconds.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.RecordStoreLatency(operation, latencyMs)
}

// Queue metrics.

// UpdateQueue sets the queue size, capacity and utilization gauges.
func UpdateQueue(size, capacity int) { globalManager.UpdateQueue(size, capacity) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// Worker metrics.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) { globalManager.workerActiveCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// HTTP metrics.

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.RecordError(component, errorType)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
