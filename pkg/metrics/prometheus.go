// Package metrics provides Prometheus metrics for the coverage audit pipeline.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry lookup outcomes recorded by RecordRegistryLookup.
const (
	LookupFound    = "found"
	LookupNoFile   = "no_file"
	LookupNoRecord = "no_record"
	LookupError    = "error"
)

// Manager manages all Prometheus metrics for a pipeline run or server.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Coverage evaluation
	evaluations  *prometheus.CounterVec
	waitingFlags *prometheus.CounterVec

	// Registry lookups
	registryLookups     *prometheus.CounterVec
	registryLoadLatency prometheus.Histogram
	registryRetries     prometheus.Counter

	// Terminology
	mappings          *prometheus.CounterVec
	mandatoryCoverage *prometheus.CounterVec

	// Pipeline
	eventsRead       prometheus.Counter
	runDuration      prometheus.Histogram
	exportsWritten   *prometheus.CounterVec
	beneficiaryCount prometheus.Gauge
	workerCount      prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByComponent   *prometheus.CounterVec
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
		namespace:        "sibrol",
		subsystem:        "coverage",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	if !m.enabled {
		// Collectors still exist so callers never branch, they are just not exported.
		auto = promauto.With(nil)
	}

	m.evaluations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "evaluations_total",
		Help:        "Coverage evaluations by resulting status and deciding rule",
		ConstLabels: m.constLabels,
	}, []string{"status", "rule"})

	m.waitingFlags = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "waiting_flags_total",
		Help:        "Events flagged inside a waiting period or CPT window",
		ConstLabels: m.constLabels,
	}, []string{"flag"})

	m.registryLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "registry_lookups_total",
		Help:        "Registry lookups by outcome (" + LookupFound + ", " + LookupNoFile + ", " + LookupNoRecord + ", " + LookupError + ")",
		ConstLabels: m.constLabels,
	}, []string{"outcome"})

	m.registryLoadLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "registry_load_latency_milliseconds",
		Help:        "Time spent loading one period registry file",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.registryRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "registry_read_retries_total",
		Help:        "Retried registry file reads",
		ConstLabels: m.constLabels,
	})

	m.mappings = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "procedure_mappings_total",
		Help:        "Procedure code mappings by mapping status",
		ConstLabels: m.constLabels,
	}, []string{"status"})

	m.mandatoryCoverage = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "mandatory_coverage_total",
		Help:        "Mandatory coverage checks by result",
		ConstLabels: m.constLabels,
	}, []string{"result"})

	m.eventsRead = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "events_read_total",
		Help:        "Service events read from the input file",
		ConstLabels: m.constLabels,
	})

	m.runDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "run_duration_seconds",
		Help:        "Wall time of one pipeline run",
		Buckets:     []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		ConstLabels: m.constLabels,
	})

	m.exportsWritten = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "exports_written_total",
		Help:        "Export artifacts written by kind",
		ConstLabels: m.constLabels,
	}, []string{"kind"})

	m.beneficiaryCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "beneficiaries",
		Help:        "Distinct beneficiaries in the last run",
		ConstLabels: m.constLabels,
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "worker_count",
		Help:        "Evaluation workers configured for the last run",
		ConstLabels: m.constLabels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_component_total",
		Help:        "Total number of errors by component",
		ConstLabels: m.constLabels,
	}, []string{"component", "error_type"})
}

// RecordEvaluation counts one coverage evaluation.
func (m *Manager) RecordEvaluation(status, rule, flag string) {
	m.evaluations.WithLabelValues(status, rule).Inc()
	if flag != "" {
		m.waitingFlags.WithLabelValues(flag).Inc()
	}
}

// RecordRegistryLookup counts one registry lookup outcome.
func (m *Manager) RecordRegistryLookup(outcome string) {
	m.registryLookups.WithLabelValues(outcome).Inc()
}

// RecordRegistryLoad observes the load latency of a period file.
func (m *Manager) RecordRegistryLoad(latencyMs float64) {
	m.registryLoadLatency.Observe(latencyMs)
}

// RecordRegistryRetry counts a retried registry read.
func (m *Manager) RecordRegistryRetry() {
	m.registryRetries.Inc()
}

// RecordMapping counts a procedure mapping result.
func (m *Manager) RecordMapping(status string) {
	m.mappings.WithLabelValues(status).Inc()
}

// RecordMandatoryCoverage counts a mandatory coverage check result.
func (m *Manager) RecordMandatoryCoverage(result string) {
	m.mandatoryCoverage.WithLabelValues(result).Inc()
}

// RecordEventsRead adds n to the events read counter.
func (m *Manager) RecordEventsRead(n int) {
	m.eventsRead.Add(float64(n))
}

// RecordRunDuration observes a full pipeline run.
func (m *Manager) RecordRunDuration(seconds float64) {
	m.runDuration.Observe(seconds)
}

// RecordExport counts an export artifact.
func (m *Manager) RecordExport(kind string) {
	m.exportsWritten.WithLabelValues(kind).Inc()
}

// UpdateBeneficiaryCount sets the distinct beneficiary gauge.
func (m *Manager) UpdateBeneficiaryCount(n int) {
	m.beneficiaryCount.Set(float64(n))
}

// UpdateWorkerCount sets the worker gauge.
func (m *Manager) UpdateWorkerCount(n int) {
	m.workerCount.Set(float64(n))
}

// RecordHTTPRequest records an HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordError records an error with component and type labels.
func (m *Manager) RecordError(component, errorType string) {
	m.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// Global returns the process-wide manager registered on GetRegistry().
func Global() *Manager {
	return globalManager
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile dumps the custom registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteTextfile, err)
	}
	return nil
}
