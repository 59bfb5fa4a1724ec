// Package metrics provides Prometheus metrics for the cocstats dashboard service.
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

// Manager manages all Prometheus metrics for the dashboard service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Feed metrics - what arrives from the snapshot feed
	feedEvents          *prometheus.CounterVec
	feedErrors          *prometheus.CounterVec
	feedSubscriptions   prometheus.Gauge
	feedResubscriptions *prometheus.CounterVec

	// Snapshot metrics - what the collectors publish
	snapshotRevisions  *prometheus.CounterVec
	snapshotUnchanged  *prometheus.CounterVec
	snapshotDecodeMs   *prometheus.HistogramVec
	snapshotLastUnix   *prometheus.GaugeVec
	decodeDefaults     *prometheus.CounterVec
	collectionRecords  *prometheus.GaugeVec
	collectionFailures *prometheus.GaugeVec

	// View metrics
	viewDerivations prometheus.Counter
	viewLatency     prometheus.Histogram
	exports         *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cocstats",
		subsystem:        "dashboard",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	if !m.enabled {
		// Collectors still exist so the Record* helpers stay safe; they just never get exported.
		auto = promauto.With(nil)
	}
	constLabels := prometheus.Labels(m.customLabels)

	m.feedEvents = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("feed_events_total"),
		Help:        "Total number of feed events received by collection and kind",
		ConstLabels: constLabels,
	}, []string{"collection", "kind"})

	m.feedErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("feed_errors_total"),
		Help:        "Total number of feed errors by collection",
		ConstLabels: constLabels,
	}, []string{"collection"})

	m.feedSubscriptions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("feed_subscriptions"),
		Help:        "Number of open feed subscriptions",
		ConstLabels: constLabels,
	})

	m.feedResubscriptions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("feed_resubscriptions_total"),
		Help:        "Total number of resubscriptions after a feed error",
		ConstLabels: constLabels,
	}, []string{"collection"})

	m.snapshotRevisions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("snapshot_revisions_total"),
		Help:        "Total number of snapshots published to the store",
		ConstLabels: constLabels,
	}, []string{"collection"})

	m.snapshotUnchanged = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("snapshot_unchanged_total"),
		Help:        "Total number of snapshots skipped because the payload did not change",
		ConstLabels: constLabels,
	}, []string{"collection"})

	m.snapshotDecodeMs = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("snapshot_decode_milliseconds"),
		Help:        "Time spent coercing a raw snapshot into typed records",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	}, []string{"collection"})

	m.snapshotLastUnix = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("snapshot_last_unix"),
		Help:        "Unix timestamp of the last published snapshot",
		ConstLabels: constLabels,
	}, []string{"collection"})

	m.decodeDefaults = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("decode_defaults_total"),
		Help:        "Total number of malformed fields replaced with a default value",
		ConstLabels: constLabels,
	}, []string{"collection"})

	m.collectionRecords = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("collection_records"),
		Help:        "Number of records in the latest snapshot of each collection",
		ConstLabels: constLabels,
	}, []string{"collection"})

	m.collectionFailures = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("collection_failed"),
		Help:        "1 while a collection reports a feed error, 0 otherwise",
		ConstLabels: constLabels,
	}, []string{"collection"})

	m.viewDerivations = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("view_derivations_total"),
		Help:        "Total number of derived views computed",
		ConstLabels: constLabels,
	})

	m.viewLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("view_derivation_milliseconds"),
		Help:        "Time spent deriving a view from the latest snapshots",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	})

	m.exports = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("exports_total"),
		Help:        "Total number of user exports by format",
		ConstLabels: constLabels,
	}, []string{"format"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_requests_total"),
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_endpoint_total"),
		Help:        "Total number of errors by endpoint",
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_memory_usage_bytes"),
		Help:        "System memory usage in bytes",
		ConstLabels: constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_goroutine_count"),
		Help:        "Number of goroutines",
		ConstLabels: constLabels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_gc_pause_time_milliseconds"),
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: constLabels,
	})
}

// RecordFeedEvent counts one feed event; kind is "value" or "error".
func RecordFeedEvent(collection, kind string) {
	globalManager.feedEvents.WithLabelValues(collection, kind).Inc()
	if kind == "error" {
		globalManager.feedErrors.WithLabelValues(collection).Inc()
	}
}

// AddFeedSubscriptions moves the open-subscriptions gauge by delta.
func AddFeedSubscriptions(delta int) {
	globalManager.feedSubscriptions.Add(float64(delta))
}

// RecordResubscribe counts a resubscription attempt.
func RecordResubscribe(collection string) {
	globalManager.feedResubscriptions.WithLabelValues(collection).Inc()
}

// RecordSnapshotPublished records a published snapshot and its size.
func RecordSnapshotPublished(collection string, records int) {
	globalManager.snapshotRevisions.WithLabelValues(collection).Inc()
	globalManager.collectionRecords.WithLabelValues(collection).Set(float64(records))
	globalManager.snapshotLastUnix.WithLabelValues(collection).Set(float64(time.Now().Unix()))
	globalManager.collectionFailures.WithLabelValues(collection).Set(0)
}

// RecordSnapshotUnchanged counts a snapshot skipped as identical to the previous one.
func RecordSnapshotUnchanged(collection string) {
	globalManager.snapshotUnchanged.WithLabelValues(collection).Inc()
}

// RecordSnapshotDecode records decode latency in milliseconds.
func RecordSnapshotDecode(collection string, latencyMs float64) {
	globalManager.snapshotDecodeMs.WithLabelValues(collection).Observe(latencyMs)
}

// RecordDecodeDefaults counts fields replaced by defaults during coercion.
func RecordDecodeDefaults(collection string, n int) {
	if n > 0 {
		globalManager.decodeDefaults.WithLabelValues(collection).Add(float64(n))
	}
}

// RecordCollectionFailure flags a collection as failing.
func RecordCollectionFailure(collection string) {
	globalManager.collectionFailures.WithLabelValues(collection).Set(1)
}

// RecordViewDerivation records one derived view and its latency.
func RecordViewDerivation(latencyMs float64) {
	globalManager.viewDerivations.Inc()
	globalManager.viewLatency.Observe(latencyMs)
}

// RecordExport counts an export download.
func RecordExport(format string) {
	globalManager.exports.WithLabelValues(format).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
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

// RefreshInterval returns how often gauge updaters should run.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
