// Package metrics provides Prometheus metrics for the ratekeeper engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Selection metrics - the engine's core decision path
	selectionsTotal  prometheus.Counter
	selectionLatency prometheus.Histogram
	touchBoostsTotal prometheus.Counter

	// Policy metrics - writes from the coordinating thread
	policyUpdatesTotal   prometheus.Counter
	policyUnchangedTotal prometheus.Counter
	policyRejectedTotal  prometheus.Counter

	// Engine state gauges
	currentTimingFPS prometheus.Gauge
	availableTimings prometheus.Gauge
	catalogSize      prometheus.Gauge

	// HTTP performance metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error tracking
	errorsByComponent *prometheus.CounterVec

	// System metrics, collected instead of the default Go collectors
	systemMemoryBytes prometheus.Gauge
	systemGoroutines  prometheus.Gauge
	gcPauseTime       prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ratekeeper",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.selectionsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "selections_total",
		Help:      "Total number of refresh rate selections performed",
	})

	m.selectionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "selection_latency_milliseconds",
		Help:      "Histogram of refresh rate selection latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.touchBoostsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "touch_boosts_total",
		Help:      "Total number of selections where touch activity changed the outcome",
	})

	m.policyUpdatesTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "policy_updates_total",
		Help:      "Total number of policy writes that changed the effective policy",
	})

	m.policyUnchangedTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "policy_unchanged_total",
		Help:      "Total number of valid policy writes that left the effective policy as-is",
	})

	m.policyRejectedTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "policy_rejected_total",
		Help:      "Total number of policy writes rejected by validation",
	})

	m.currentTimingFPS = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "current_timing_fps",
		Help:      "Refresh rate the display is presently running at",
	})

	m.availableTimings = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "available_timings",
		Help:      "Number of timings selectable under the effective policy",
	})

	m.catalogSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_size",
		Help:      "Number of hardware-supported timings in the catalog",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint, method and status",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total number of errors by component and type",
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryBytes = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "memory_usage_bytes",
		Help:      "Current heap memory usage in bytes",
	})

	m.systemGoroutines = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "goroutine_count",
		Help:      "Current number of goroutines",
	})

	m.gcPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "gc_pause_time_milliseconds",
		Help:      "Histogram of garbage collection pause times in milliseconds",
		Buckets:   m.histogramBuckets,
	})
}

// RecordSelection records one selection and its latency in milliseconds.
func RecordSelection(latencyMs float64) {
	globalManager.selectionsTotal.Inc()
	globalManager.selectionLatency.Observe(latencyMs)
}

// RecordTouchBoost increments the touch boost counter.
func RecordTouchBoost() {
	globalManager.touchBoostsTotal.Inc()
}

// RecordPolicyUpdate increments the policy updates counter.
func RecordPolicyUpdate() {
	globalManager.policyUpdatesTotal.Inc()
}

// RecordPolicyUnchanged increments the unchanged-policy counter.
func RecordPolicyUnchanged() {
	globalManager.policyUnchangedTotal.Inc()
}

// RecordPolicyRejected increments the rejected-policy counter.
func RecordPolicyRejected() {
	globalManager.policyRejectedTotal.Inc()
}

// UpdateCurrentTimingFPS sets the current timing gauge.
func UpdateCurrentTimingFPS(fps float64) {
	globalManager.currentTimingFPS.Set(fps)
}

// UpdateAvailableTimings sets the available timings gauge.
func UpdateAvailableTimings(count int) {
	globalManager.availableTimings.Set(float64(count))
}

// UpdateCatalogSize sets the catalog size gauge.
func UpdateCatalogSize(count int) {
	globalManager.catalogSize.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent records an error for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap memory usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryBytes.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutines.Set(float64(count))
}

// RecordSystemGCPauseTime records a GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.gcPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom registry used for exposition.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
