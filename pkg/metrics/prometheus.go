// Package metrics provides Prometheus metrics for the player ranking service.
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

// MillisecondBuckets are the default latency buckets. Every latency metric
// is observed in milliseconds, so DefBuckets (seconds) would not fit.
var MillisecondBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000} //nolint:gochecknoglobals // shared default buckets

// Manager manages all Prometheus metrics for the ranking service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Business metrics
	playersCreated   prometheus.Counter
	playersUpdated   prometheus.Counter
	playersRejected  *prometheus.CounterVec
	playersDeleted   prometheus.Counter
	playersTotal     prometheus.Gauge
	inconsistentRead prometheus.Counter

	// Repository metrics
	repositoryLatency *prometheus.HistogramVec
	repositoryErrors  *prometheus.CounterVec
	repositoryBackend *prometheus.GaugeVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System metrics
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
		namespace:        "ranking",
		subsystem:        "players",
		histogramBuckets: MillisecondBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
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
	labels := prometheus.Labels(m.customLabels)

	m.playersCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("created_total"),
		Help:        "Total number of players successfully created",
		ConstLabels: labels,
	})

	m.playersUpdated = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("updated_total"),
		Help:        "Total number of successful point updates",
		ConstLabels: labels,
	})

	m.playersRejected = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("rejected_total"),
			Help:        "Total number of rejected writes by reason (duplicate, not_found)",
			ConstLabels: labels,
		},
		[]string{"reason"},
	)

	m.playersDeleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("delete_all_total"),
		Help:        "Total number of delete-all operations",
		ConstLabels: labels,
	})

	m.playersTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("total"),
		Help:        "Current number of stored players",
		ConstLabels: labels,
	})

	m.inconsistentRead = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("inconsistent_reads_total"),
		Help:        "Writes whose player could not be read back (storage invariant broken)",
		ConstLabels: labels,
	})

	m.repositoryLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   "repository",
			Name:        m.name("operation_duration_milliseconds"),
			Help:        "Repository operation latency in milliseconds by backend and operation",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"backend", "operation"},
	)

	m.repositoryErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   "repository",
			Name:        m.name("errors_total"),
			Help:        "Repository operation errors by backend and operation",
			ConstLabels: labels,
		},
		[]string{"backend", "operation"},
	)

	m.repositoryBackend = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   m.namespace,
			Subsystem:   "repository",
			Name:        m.name("backend_info"),
			Help:        "Installed repository backend (value is always 1)",
			ConstLabels: labels,
		},
		[]string{"backend"},
	)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   "http",
			Name:        m.name("requests_total"),
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   "http",
			Name:        m.name("request_duration_milliseconds"),
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   "errors",
			Name:        m.name("by_component_total"),
			Help:        "Errors by component and type",
			ConstLabels: labels,
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   "errors",
			Name:        m.name("by_type_total"),
			Help:        "Errors by type and severity",
			ConstLabels: labels,
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   "errors",
			Name:        m.name("by_endpoint_total"),
			Help:        "Errors by endpoint, method and type",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.errorLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   "errors",
			Name:        m.name("latency_milliseconds"),
			Help:        "Latency of operations that ended in an error",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        m.name("memory_bytes"),
		Help:        "Allocated heap memory in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        m.name("goroutines"),
		Help:        "Current number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        m.name("gc_pause_milliseconds"),
		Help:        "Average GC pause time in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})
}

// Enabled reports whether recording is on for this manager.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval is how often periodic gauges should be refreshed.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// RefreshInterval is the refresh interval of the global manager.
func RefreshInterval() time.Duration { return globalManager.refreshInterval }

// SinceMs returns the time elapsed since start in fractional milliseconds.
func SinceMs(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

// Business Metrics Functions.

// RecordPlayerCreated counts a successful create.
func RecordPlayerCreated() {
	if globalManager.enabled {
		globalManager.playersCreated.Inc()
	}
}

// RecordPlayerUpdated counts a successful update.
func RecordPlayerUpdated() {
	if globalManager.enabled {
		globalManager.playersUpdated.Inc()
	}
}

// RecordPlayerRejected counts a rejected write with its reason.
func RecordPlayerRejected(reason string) {
	if globalManager.enabled {
		globalManager.playersRejected.WithLabelValues(reason).Inc()
	}
}

// RecordDeleteAll counts a delete-all operation.
func RecordDeleteAll() {
	if globalManager.enabled {
		globalManager.playersDeleted.Inc()
	}
}

// UpdatePlayersTotal sets the current population size.
func UpdatePlayersTotal(count int) {
	if globalManager.enabled {
		globalManager.playersTotal.Set(float64(count))
	}
}

// RecordInconsistentRead counts a write that could not be read back.
func RecordInconsistentRead() {
	if globalManager.enabled {
		globalManager.inconsistentRead.Inc()
	}
}

// Repository Metrics Functions.

// RecordRepositoryOperation observes the latency of one repository call.
func RecordRepositoryOperation(backend, operation string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.repositoryLatency.WithLabelValues(backend, operation).Observe(latencyMs)
	}
}

// RecordRepositoryError counts a failed repository call.
func RecordRepositoryError(backend, operation string) {
	if globalManager.enabled {
		globalManager.repositoryErrors.WithLabelValues(backend, operation).Inc()
	}
}

// SetRepositoryBackend marks backend as the installed store.
func SetRepositoryBackend(backend string) {
	globalManager.repositoryBackend.Reset()
	globalManager.repositoryBackend.WithLabelValues(backend).Set(1)
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

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

// System Performance Metrics Functions.

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

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
