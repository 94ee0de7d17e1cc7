package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the glasspane engine. A
// disabled Metrics is a valid no-op instance; every recording method is
// safe to call on it.
type Metrics struct {
	config MetricsConfig

	// Reconciliation pass metrics
	passesTotal  *prometheus.CounterVec
	passDuration *prometheus.HistogramVec
	droppedTicks prometheus.Counter

	// Container metrics
	managedContainers prometheus.Gauge
	ineligible        *prometheus.CounterVec

	// Overlay metrics
	overlaysCreated  prometheus.Counter
	overlayReinserts prometheus.Counter

	// Classifier metrics
	nodesVisited    prometheus.Counter
	backdropsHidden prometheus.Counter

	// Host interaction metrics
	mutationsRejected *prometheus.CounterVec

	// Control channel metrics
	signalsReceived *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
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

		passesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "passes_total",
				Help:      "Total number of reconciliation passes executed",
			},
			[]string{"mode", "source"},
		),
		passDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pass_duration_seconds",
				Help:      "Duration of reconciliation passes in seconds",
				Buckets:   buckets,
			},
			[]string{"mode"},
		),
		droppedTicks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dropped_ticks_total",
				Help:      "Scheduler ticks dropped by the cadence debounce",
			},
		),
		managedContainers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "managed_containers",
				Help:      "Number of containers currently under management",
			},
		),
		ineligible: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ineligible_total",
				Help:      "Containers rejected by the eligibility filter, by first failing check",
			},
			[]string{"reason"},
		),
		overlaysCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "overlays_created_total",
				Help:      "Total number of overlay nodes created",
			},
		),
		overlayReinserts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "overlay_reinserts_total",
				Help:      "Times the overlay had to be moved back to the bottom of the tree",
			},
		),
		nodesVisited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "classifier_nodes_visited_total",
				Help:      "Nodes inspected by the subtree classifier",
			},
		),
		backdropsHidden: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backdrops_hidden_total",
				Help:      "Host backdrop/filler nodes hidden by the classifier",
			},
		),
		mutationsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mutations_rejected_total",
				Help:      "Property sets the host declined, by operation",
			},
			[]string{"op"},
		),
		signalsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signals_received_total",
				Help:      "Control channel signals received, by name",
			},
			[]string{"name"},
		),
	}

	collectors := []prometheus.Collector{
		m.passesTotal,
		m.passDuration,
		m.droppedTicks,
		m.managedContainers,
		m.ineligible,
		m.overlaysCreated,
		m.overlayReinserts,
		m.nodesVisited,
		m.backdropsHidden,
		m.mutationsRejected,
		m.signalsReceived,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return m, nil
}

// RecordPass records one completed reconciliation pass.
func (m *Metrics) RecordPass(mode, source string, duration time.Duration) {
	if m.registry == nil {
		return
	}
	m.passesTotal.WithLabelValues(mode, source).Inc()
	m.passDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordDroppedTick records a tick dropped by the debounce.
func (m *Metrics) RecordDroppedTick() {
	if m.registry == nil {
		return
	}
	m.droppedTicks.Inc()
}

// SetManagedContainers updates the managed containers gauge.
func (m *Metrics) SetManagedContainers(n int) {
	if m.registry == nil {
		return
	}
	m.managedContainers.Set(float64(n))
}

// RecordIneligible records an eligibility rejection by reason.
func (m *Metrics) RecordIneligible(reason string) {
	if m.registry == nil {
		return
	}
	m.ineligible.WithLabelValues(reason).Inc()
}

// RecordOverlayCreated counts a new overlay node.
func (m *Metrics) RecordOverlayCreated() {
	if m.registry == nil {
		return
	}
	m.overlaysCreated.Inc()
}

// RecordOverlayReinserted counts a bottom-of-tree reinsertion.
func (m *Metrics) RecordOverlayReinserted() {
	if m.registry == nil {
		return
	}
	m.overlayReinserts.Inc()
}

// RecordNodesVisited adds to the classifier visit counter.
func (m *Metrics) RecordNodesVisited(n int) {
	if m.registry == nil {
		return
	}
	m.nodesVisited.Add(float64(n))
}

// RecordBackdropsHidden adds to the hidden backdrop counter.
func (m *Metrics) RecordBackdropsHidden(n int) {
	if m.registry == nil {
		return
	}
	m.backdropsHidden.Add(float64(n))
}

// RecordMutationRejected counts a host-declined property set.
func (m *Metrics) RecordMutationRejected(op string) {
	if m.registry == nil {
		return
	}
	m.mutationsRejected.WithLabelValues(op).Inc()
}

// RecordSignal counts a received control signal.
func (m *Metrics) RecordSignal(name string) {
	if m.registry == nil {
		return
	}
	m.signalsReceived.WithLabelValues(name).Inc()
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
