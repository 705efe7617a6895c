// Package metrics provides Prometheus metrics for the sideline sync service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace string
	registry  prometheus.Registerer

	// Subscription lifecycle
	subscriptionsActive   *prometheus.GaugeVec
	subscriptionsAttached prometheus.Counter
	subscriptionsEvicted  *prometheus.CounterVec
	subscriptionsRotated  prometheus.Counter

	// Fan-out
	framesSent *prometheus.CounterVec

	// Webhook intake
	pushesReceived            *prometheus.CounterVec
	pushTriggeredSubscription prometheus.Counter
	pushRejected              *prometheus.CounterVec

	// Refresh pipeline
	refreshCycles       *prometheus.CounterVec
	refreshDuration     prometheus.Histogram
	upstreamFetchErrors *prometheus.CounterVec
	triggerQueueDepth   prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace overrides the metric namespace.
func WithNamespace(ns string) Option {
	return func(m *Manager) {
		if ns != "" {
			m.namespace = ns
		}
	}
}

// WithRegistry sets the Prometheus registerer metrics are registered with.
func WithRegistry(r prometheus.Registerer) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "sideline",
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	factory := promauto.With(m.registry)

	m.subscriptionsActive = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "subscriptions_active",
		Help:      "Number of live subscriptions per interest key.",
	}, []string{"interest_key"})

	m.subscriptionsAttached = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "subscriptions_attached_total",
		Help:      "Total subscriptions attached.",
	})

	m.subscriptionsEvicted = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "subscriptions_evicted_total",
		Help:      "Total subscriptions evicted, by reason.",
	}, []string{"reason"})

	m.subscriptionsRotated = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "subscriptions_rotated_total",
		Help:      "Total subscriptions proactively rotated before the intermediary idle limit.",
	})

	m.framesSent = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "frames_sent_total",
		Help:      "Total frames delivered to subscribers, by kind.",
	}, []string{"kind"})

	m.pushesReceived = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "pushes_received_total",
		Help:      "Total webhook push notifications received, by event.",
	}, []string{"event"})

	m.pushTriggeredSubscription = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "push_triggered_subscriptions_total",
		Help:      "Total live subscriptions a webhook push triggered a re-check for.",
	})

	m.pushRejected = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "pushes_rejected_total",
		Help:      "Total webhook pushes rejected at the boundary, by reason.",
	}, []string{"reason"})

	m.refreshCycles = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "refresh_cycles_total",
		Help:      "Total assemble+hash+notify cycles, by trigger source and outcome.",
	}, []string{"source", "outcome"})

	m.refreshDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "refresh_duration_seconds",
		Help:      "Duration of assemble+hash+notify cycles.",
		Buckets:   prometheus.DefBuckets,
	})

	m.upstreamFetchErrors = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "upstream_fetch_errors_total",
		Help:      "Total failed upstream feed fetches, by feed.",
	}, []string{"feed"})

	m.triggerQueueDepth = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "trigger_queue_depth",
		Help:      "Number of refresh triggers waiting in the queue.",
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests, by endpoint, method and status code.",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request duration in milliseconds.",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "system_memory_usage_bytes",
		Help:      "Current heap allocation in bytes.",
	})

	m.systemGoroutineCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "system_goroutine_count",
		Help:      "Current number of goroutines.",
	})
}

// Package-level helpers operating on the global manager.

// UpdateActiveSubscriptions sets the live-subscription gauge for a key.
func UpdateActiveSubscriptions(interestKey string, count int) {
	globalManager.subscriptionsActive.WithLabelValues(interestKey).Set(float64(count))
}

// RecordSubscriptionAttached increments the attach counter.
func RecordSubscriptionAttached() {
	globalManager.subscriptionsAttached.Inc()
}

// RecordSubscriptionEvicted increments the evict counter for a reason
// ("transport", "stale").
func RecordSubscriptionEvicted(reason string) {
	globalManager.subscriptionsEvicted.WithLabelValues(reason).Inc()
}

// RecordSubscriptionRotated increments the proactive-rotation counter.
func RecordSubscriptionRotated() {
	globalManager.subscriptionsRotated.Inc()
}

// RecordFrameSent increments the frame counter for a frame kind.
func RecordFrameSent(kind string) {
	globalManager.framesSent.WithLabelValues(kind).Inc()
}

// RecordPushReceived increments the webhook push counter for an event.
func RecordPushReceived(event string) {
	globalManager.pushesReceived.WithLabelValues(event).Inc()
}

// RecordPushTriggeredSubscriptions adds the number of subscriptions a push
// triggered a re-check for.
func RecordPushTriggeredSubscriptions(count int) {
	globalManager.pushTriggeredSubscription.Add(float64(count))
}

// RecordPushRejected increments the rejected-push counter for a reason
// ("auth", "malformed").
func RecordPushRejected(reason string) {
	globalManager.pushRejected.WithLabelValues(reason).Inc()
}

// RecordRefreshCycle increments the refresh counter for a source and outcome
// ("ok", "unchanged", "error").
func RecordRefreshCycle(source, outcome string) {
	globalManager.refreshCycles.WithLabelValues(source, outcome).Inc()
}

// RecordRefreshDuration observes one refresh cycle duration in seconds.
func RecordRefreshDuration(seconds float64) {
	globalManager.refreshDuration.Observe(seconds)
}

// RecordUpstreamFetchError increments the fetch-error counter for a feed
// ("queue", "results", "ranking").
func RecordUpstreamFetchError(feed string) {
	globalManager.upstreamFetchErrors.WithLabelValues(feed).Inc()
}

// UpdateTriggerQueueDepth sets the trigger queue depth gauge.
func UpdateTriggerQueueDepth(depth int) {
	globalManager.triggerQueueDepth.Set(float64(depth))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records an HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// UpdateSystemMemoryUsage sets the heap allocation gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
