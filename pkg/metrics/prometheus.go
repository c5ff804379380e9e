// Package metrics provides Prometheus metrics for the tally scoring service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every collector the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Mutations
	mutations *prometheus.CounterVec

	// Document store
	storageLatency *prometheus.HistogramVec
	storageErrors  *prometheus.CounterVec

	// Broadcast hub
	broadcastEvents       *prometheus.CounterVec
	broadcastDeliveries   prometheus.Counter
	subscribersActive     prometheus.Gauge
	subscriberConnections prometheus.Counter
	subscribersDropped    prometheus.Counter

	// Single writer
	writerBacklog    prometheus.Gauge
	writerJobLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the Record*/Update* helpers

// customRegistry keeps default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // shared registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Configure replaces the global manager and its registry. It must run before
// any handler captures GetRegistry and before recording starts.
func Configure(opts ...Option) {
	customRegistry = prometheus.NewRegistry()
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(customRegistry)}, opts...)...)
}

// NewManager creates a manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tally",
		subsystem:        "scoring",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// RefreshInterval is how often the process refreshes gauge metrics.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// RefreshInterval returns the global manager's refresh interval.
func RefreshInterval() time.Duration { return globalManager.RefreshInterval() }

// Enabled reports whether the Record*/Update* helpers write to this manager.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		}, labels)
	}
	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		})
	}
	histogram := func(name, help string) prometheus.Histogram {
		return auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
			Buckets: m.histogramBuckets,
		})
	}
	histogramVec := func(name, help string, labels ...string) *prometheus.HistogramVec {
		return auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
			Buckets: m.histogramBuckets,
		}, labels)
	}

	m.mutations = counterVec("mutations_total",
		"Document mutations by kind (score, reveal, reset) and outcome", "kind", "outcome")

	m.storageLatency = histogramVec("storage_operation_duration_milliseconds",
		"Latency of document store operations", "op")
	m.storageErrors = counterVec("storage_errors_total",
		"Document store failures by operation", "op")

	m.broadcastEvents = counterVec("broadcast_events_total",
		"Events handed to the broadcast hub", "event")
	m.broadcastDeliveries = counter("broadcast_deliveries_total",
		"Frames accepted by subscriber channels")
	m.subscribersActive = gauge("subscribers_active",
		"Currently connected event stream subscribers")
	m.subscriberConnections = counter("subscriber_connections_total",
		"Event stream subscriptions opened")
	m.subscribersDropped = counter("subscribers_dropped_total",
		"Subscribers removed by the hub after a failed delivery")

	m.writerBacklog = gauge("writer_backlog",
		"Mutations waiting for the single writer")
	m.writerJobLatency = histogram("writer_job_duration_milliseconds",
		"Time the single writer spent on one mutation")

	m.httpRequests = counterVec("http_requests_total",
		"HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorsByComponent = counterVec("errors_total",
		"Errors by component and type", "component", "error_type")
	m.errorsByEndpoint = counterVec("http_errors_total",
		"HTTP error responses by endpoint, method and type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = histogram("system_gc_pause_milliseconds", "Average GC pause time")
}

// Mutation outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// RecordMutation counts one mutation attempt.
func RecordMutation(kind, outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.mutations.WithLabelValues(kind, outcome).Inc()
}

// RecordStorageLatency records a store operation latency in milliseconds.
func RecordStorageLatency(op string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.storageLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordStorageError counts a failed store operation.
func RecordStorageError(op string) {
	if !globalManager.enabled {
		return
	}
	globalManager.storageErrors.WithLabelValues(op).Inc()
	globalManager.errorsByComponent.WithLabelValues("storage", op).Inc()
}

// RecordBroadcast counts one broadcast and the frames it delivered.
func RecordBroadcast(event string, delivered int) {
	if !globalManager.enabled {
		return
	}
	globalManager.broadcastEvents.WithLabelValues(event).Inc()
	globalManager.broadcastDeliveries.Add(float64(delivered))
}

// RecordSubscriberConnected counts a new subscription.
func RecordSubscriberConnected() {
	if !globalManager.enabled {
		return
	}
	globalManager.subscriberConnections.Inc()
}

// RecordSubscriberDropped counts a subscriber removed after a failed delivery.
func RecordSubscriberDropped() {
	if !globalManager.enabled {
		return
	}
	globalManager.subscribersDropped.Inc()
	globalManager.errorsByComponent.WithLabelValues("broadcast", "delivery_failed").Inc()
}

// UpdateActiveSubscribers sets the live subscriber gauge.
func UpdateActiveSubscribers(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.subscribersActive.Set(float64(count))
}

// UpdateWriterBacklog sets the number of queued mutations.
func UpdateWriterBacklog(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.writerBacklog.Set(float64(count))
}

// RecordWriterJobLatency records how long one serialized mutation took.
func RecordWriterJobLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.writerJobLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an HTTP error response.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry served on /healthz and /metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
