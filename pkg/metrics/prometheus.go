// Package metrics provides Prometheus metrics for the refassign scheduling
// service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the refassign service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Scheduling Run Metrics - What really matters for an assignment engine
	runDuration    prometheus.Histogram
	objectiveValue prometheus.Gauge
	slotsFilled    prometheus.Counter
	slotsUnfilled  prometheus.Counter
	improvements   *prometheus.CounterVec

	// Conflict Metrics - Quality of the produced schedules
	conflicts *prometheus.CounterVec

	// Assignment Lifecycle Metrics
	assignmentTransitions *prometheus.CounterVec
	offersExpired         prometheus.Counter
	storedAssignments     prometheus.Gauge

	// Notification Pipeline Metrics
	notifyQueueSize         prometheus.Gauge
	notifyQueueDrops        *prometheus.CounterVec
	notifyWorkerCount       prometheus.Gauge
	notifyDelivered         *prometheus.CounterVec
	notifyDeliveryErrors    *prometheus.CounterVec
	notifyRetries           *prometheus.CounterVec
	notifyPermanentFailures *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics - Detailed error tracking
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec
	errorLatency        *prometheus.HistogramVec
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
		namespace:        "refassign",
		subsystem:        "scheduler",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Scheduling Run Metrics - Focus on what drives schedule quality
	m.runDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "run_duration_seconds",
		Help:      "Histogram of scheduling run wall time in seconds (core performance metric)",
		Buckets:   m.histogramBuckets,
	})

	m.objectiveValue = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "objective_value",
		Help:      "Objective value of the most recent scheduling run (lower is better)",
	})

	m.slotsFilled = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "slots_filled_total",
		Help:      "Total number of officiating slots filled by scheduling runs",
	})

	m.slotsUnfilled = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "slots_unfilled_total",
		Help:      "Total number of slots no eligible referee could fill",
	})

	m.improvements = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "improvement_moves_total",
			Help:      "Total number of accepted local-search moves by kind",
		},
		[]string{"kind"},
	)

	// Conflict Metrics - Schedule quality indicators
	m.conflicts = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "conflicts_detected_total",
			Help:      "Total number of conflicts detected by type and severity",
		},
		[]string{"type", "severity"},
	)

	// Assignment Lifecycle Metrics - Operational state transitions
	m.assignmentTransitions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "assignment_transitions_total",
			Help:      "Total number of assignment status transitions by resulting status",
		},
		[]string{"status"},
	)

	m.offersExpired = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "offers_expired_total",
		Help:      "Total number of offers that passed their confirmation deadline",
	})

	m.storedAssignments = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stored_assignments",
		Help:      "Current number of assignments held by the store (business scale)",
	})

	// Notification Pipeline Metrics - Dispatch health
	m.notifyQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notify_queue_size",
		Help:      "Current size of the notification queue (backlog indicator)",
	})

	m.notifyQueueDrops = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "notify_queue_drops_total",
			Help:      "Total number of notifications dropped at enqueue by reason",
		},
		[]string{"reason"},
	)

	m.notifyWorkerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notify_worker_count",
		Help:      "Current number of notification delivery workers",
	})

	m.notifyDelivered = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "notify_delivered_total",
			Help:      "Total number of notifications delivered by channel",
		},
		[]string{"channel"},
	)

	m.notifyDeliveryErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "notify_delivery_errors_total",
			Help:      "Total number of delivery attempts that failed by channel",
		},
		[]string{"channel"},
	)

	m.notifyRetries = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "notify_retries_total",
			Help:      "Total number of delivery retries scheduled by channel",
		},
		[]string{"channel"},
	)

	m.notifyPermanentFailures = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "notify_permanent_failures_total",
			Help:      "Total number of notifications abandoned after exhausting retries",
		},
		[]string{"channel"},
	)

	// HTTP Performance Metrics - User experience indicators
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds (user experience)",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// Error Metrics - Detailed error tracking
	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_type_total",
			Help:      "Total number of errors by type",
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_endpoint_total",
			Help:      "Total number of errors by endpoint",
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.errorLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "error_latency_milliseconds",
			Help:      "Latency of operations that resulted in errors",
			Buckets:   m.histogramBuckets,
		},
		[]string{"component", "error_type"},
	)
}

// Scheduling Run Metrics Functions.

// RecordRunDuration records scheduling run wall time in seconds.
func RecordRunDuration(seconds float64) {
	globalManager.runDuration.Observe(seconds)
}

// UpdateObjectiveValue sets the objective value of the latest run.
func UpdateObjectiveValue(value float64) {
	globalManager.objectiveValue.Set(value)
}

// RecordSlotFilled increments the filled slots counter.
func RecordSlotFilled() {
	globalManager.slotsFilled.Inc()
}

// RecordSlotUnfilled increments the unfilled slots counter.
func RecordSlotUnfilled() {
	globalManager.slotsUnfilled.Inc()
}

// RecordImprovementMove records an accepted local-search move by kind.
func RecordImprovementMove(kind string) {
	globalManager.improvements.WithLabelValues(kind).Inc()
}

// Conflict Metrics Functions.

// RecordConflict records a detected conflict by type and severity.
func RecordConflict(conflictType, severity string) {
	globalManager.conflicts.WithLabelValues(conflictType, severity).Inc()
}

// Assignment Lifecycle Metrics Functions.

// RecordAssignmentTransition records a status transition by resulting status.
func RecordAssignmentTransition(status string) {
	globalManager.assignmentTransitions.WithLabelValues(status).Inc()
}

// RecordOfferExpired increments the expired offers counter.
func RecordOfferExpired() {
	globalManager.offersExpired.Inc()
}

// UpdateStoredAssignments sets the current number of stored assignments.
func UpdateStoredAssignments(count int) {
	globalManager.storedAssignments.Set(float64(count))
}

// Notification Pipeline Metrics Functions.

// UpdateNotifyQueueSize sets the current notification queue size.
func UpdateNotifyQueueSize(size int) {
	globalManager.notifyQueueSize.Set(float64(size))
}

// RecordNotifyQueueDrop records a dropped notification by reason.
func RecordNotifyQueueDrop(reason string) {
	globalManager.notifyQueueDrops.WithLabelValues(reason).Inc()
}

// UpdateNotifyWorkerCount sets the current delivery worker count.
func UpdateNotifyWorkerCount(count int) {
	globalManager.notifyWorkerCount.Set(float64(count))
}

// RecordNotifyDelivered records a successful delivery by channel.
func RecordNotifyDelivered(channel string) {
	globalManager.notifyDelivered.WithLabelValues(channel).Inc()
}

// RecordNotifyDeliveryError records a failed delivery attempt by channel.
func RecordNotifyDeliveryError(channel string) {
	globalManager.notifyDeliveryErrors.WithLabelValues(channel).Inc()
}

// RecordNotifyRetry records a scheduled delivery retry by channel.
func RecordNotifyRetry(channel string) {
	globalManager.notifyRetries.WithLabelValues(channel).Inc()
}

// RecordNotifyPermanentFailure records an abandoned notification by channel.
func RecordNotifyPermanentFailure(channel string) {
	globalManager.notifyPermanentFailures.WithLabelValues(channel).Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
