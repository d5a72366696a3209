package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for URI resolution. A nil *Metrics
// and a disabled one are both valid no-ops.
type Metrics struct {
	config MetricsConfig

	// Resolution metrics
	dereferences        *prometheus.CounterVec
	dereferenceDuration *prometheus.HistogramVec
	errorsByKind        *prometheus.CounterVec

	// Proxy metrics
	proxyLookups *prometheus.CounterVec

	// Builder metrics
	builds        *prometheus.CounterVec
	buildDuration *prometheus.HistogramVec

	// Collaborator metrics
	storeOperations *prometheus.CounterVec
	documentReloads *prometheus.CounterVec
	policyDecisions *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		dereferences: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dereferences_total",
				Help:      "Total number of compound URI dereferences",
			},
			[]string{"scheme", "outcome"},
		),
		dereferenceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dereference_duration_seconds",
				Help:      "Duration of scheme dereference calls in seconds",
				Buckets:   buckets,
			},
			[]string{"scheme"},
		),
		errorsByKind: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_kind_total",
				Help:      "Total number of resolution errors by kind",
			},
			[]string{"kind"},
		),

		proxyLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "proxy_lookups_total",
				Help:      "Total number of proxy registry lookups by result",
			},
			[]string{"result"},
		),

		builds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "builds_total",
				Help:      "Total number of object builds",
			},
			[]string{"class", "status"},
		),
		buildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "build_duration_seconds",
				Help:      "Duration of root object builds in seconds",
				Buckets:   buckets,
			},
			[]string{"class"},
		),

		storeOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "local_store_operations_total",
				Help:      "Total number of local store reads and writes",
			},
			[]string{"operation", "status"},
		),
		documentReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "document_reloads_total",
				Help:      "Total number of configuration document reloads",
			},
			[]string{"status"},
		),
		policyDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_decisions_total",
				Help:      "Total number of scheme policy decisions",
			},
			[]string{"scheme", "decision"},
		),
	}

	registry.MustRegister(
		m.dereferences,
		m.dereferenceDuration,
		m.errorsByKind,
		m.proxyLookups,
		m.builds,
		m.buildDuration,
		m.storeOperations,
		m.documentReloads,
		m.policyDecisions,
	)

	return m, nil
}

func (m *Metrics) enabled() bool {
	return m != nil && m.registry != nil
}

// Resolution Metrics

// RecordDereference records one scheme dispatch with its outcome and duration.
func (m *Metrics) RecordDereference(scheme, outcome string, duration time.Duration) {
	if !m.enabled() {
		return
	}
	m.dereferences.WithLabelValues(scheme, outcome).Inc()
	m.dereferenceDuration.WithLabelValues(scheme).Observe(duration.Seconds())
}

// RecordError records a resolution error by kind.
func (m *Metrics) RecordError(kind string) {
	if !m.enabled() {
		return
	}
	m.errorsByKind.WithLabelValues(kind).Inc()
}

// Proxy Metrics

// ObserveProxyLookup records a proxy registry lookup result. It satisfies
// proxy.Observer.
func (m *Metrics) ObserveProxyLookup(result string) {
	if !m.enabled() {
		return
	}
	m.proxyLookups.WithLabelValues(result).Inc()
}

// Builder Metrics

// RecordBuild records a root object build.
func (m *Metrics) RecordBuild(class, status string, duration time.Duration) {
	if !m.enabled() {
		return
	}
	m.builds.WithLabelValues(class, status).Inc()
	m.buildDuration.WithLabelValues(class).Observe(duration.Seconds())
}

// Collaborator Metrics

// RecordStoreOperation records a local store read or write.
func (m *Metrics) RecordStoreOperation(operation, status string) {
	if !m.enabled() {
		return
	}
	m.storeOperations.WithLabelValues(operation, status).Inc()
}

// RecordDocumentReload records a watched document reload.
func (m *Metrics) RecordDocumentReload(status string) {
	if !m.enabled() {
		return
	}
	m.documentReloads.WithLabelValues(status).Inc()
}

// RecordPolicyDecision records an allow or deny decision for a scheme.
func (m *Metrics) RecordPolicyDecision(scheme string, allowed bool) {
	if !m.enabled() {
		return
	}
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	m.policyDecisions.WithLabelValues(scheme, decision).Inc()
}

// Registry returns the Prometheus registry, or nil when metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if !m.enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// NewMetricsServer returns an HTTP server exposing the metrics endpoint on
// addr, falling back to the configured listen address.
func (m *Metrics) NewMetricsServer(addr string) *http.Server {
	if addr == "" && m != nil {
		addr = m.config.ListenAddress
	}
	path := "/metrics"
	if m != nil && m.config.Path != "" {
		path = m.config.Path
	}

	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// StartMetricsServer serves the metrics endpoint on addr in the background.
// It returns nil when metrics are disabled.
func (m *Metrics) StartMetricsServer(addr string, logger *Logger) *http.Server {
	if !m.enabled() {
		return nil
	}

	server := m.NewMetricsServer(addr)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error(fmt.Sprintf("metrics server on %s stopped", server.Addr))
		}
	}()

	return server
}
