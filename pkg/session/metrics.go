package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/RaphaelK12/blospray/pkg/export"
	"github.com/RaphaelK12/blospray/pkg/protocol"
)

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "blospray").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for export and render duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus collectors.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "blospray",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Session outcomes used as the "outcome" label.
const (
	OutcomeDone          = "done"
	OutcomeCanceled      = "canceled"
	OutcomeRejected      = "rejected"
	OutcomeConnectFailed = "connect_failed"
	OutcomeLost          = "connection_lost"
	OutcomeAborted       = "aborted"
)

// Metrics holds the session collectors. A nil *Metrics records nothing.
// Collectors are registered once, so create one Metrics per registry and
// share it between sessions.
type Metrics struct {
	sessionsTotal   *prometheus.CounterVec
	activeSessions  prometheus.Gauge
	messagesSent    *prometheus.CounterVec
	bytesSent       prometheus.Counter
	bytesReceived   prometheus.Counter
	framesReceived  prometheus.Counter
	cancellations   prometheus.Counter
	cacheHits       *prometheus.CounterVec
	skippedEntities prometheus.Counter
	exportDuration  prometheus.Histogram
	renderDuration  prometheus.Histogram
}

// NewMetrics creates and registers the session collectors.
//
// Metrics collected:
//   - blospray_sessions_total: Counter of finished sessions by outcome
//   - blospray_active_sessions: Gauge of connected sessions
//   - blospray_messages_sent_total: Counter of control messages by kind
//   - blospray_bytes_sent_total / blospray_bytes_received_total
//   - blospray_frames_received_total: Counter of FRAME results
//   - blospray_cancellations_total: Counter of CANCEL_RENDERING requests
//   - blospray_cache_hits_total: Counter of reused mesh data and materials
//   - blospray_skipped_entities_total: Counter of export diagnostics
//   - blospray_export_duration_seconds / blospray_render_duration_seconds
//
// Example:
//
//	m := session.NewMetrics(session.WithNamespace("renderfarm"))
//	s := session.New(cfg, session.WithMetrics(m))
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		sessionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "sessions_total",
			Help:        "Total number of finished render sessions",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of connected render sessions",
			ConstLabels: config.ConstLabels,
		}),

		messagesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "messages_sent_total",
			Help:        "Total number of control messages sent by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		bytesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "bytes_sent_total",
			Help:        "Total bytes written to render servers",
			ConstLabels: config.ConstLabels,
		}),

		bytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "bytes_received_total",
			Help:        "Total bytes read from render servers",
			ConstLabels: config.ConstLabels,
		}),

		framesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frames_received_total",
			Help:        "Total number of framebuffer updates received",
			ConstLabels: config.ConstLabels,
		}),

		cancellations: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cancellations_total",
			Help:        "Total number of cancellation requests sent",
			ConstLabels: config.ConstLabels,
		}),

		cacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cache_hits_total",
			Help:        "Total number of entities not resent because the server already has them",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		skippedEntities: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "skipped_entities_total",
			Help:        "Total number of entities skipped during export",
			ConstLabels: config.ConstLabels,
		}),

		exportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "export_duration_seconds",
			Help:        "Scene export duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		renderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_duration_seconds",
			Help:        "Render loop duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
	}
}

func (m *Metrics) sessionStarted() {
	if m != nil {
		m.activeSessions.Inc()
	}
}

func (m *Metrics) sessionEnded(outcome string, sent, received int64) {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
	m.sessionsTotal.WithLabelValues(outcome).Inc()
	m.bytesSent.Add(float64(sent))
	m.bytesReceived.Add(float64(received))
}

func (m *Metrics) connectFailed() {
	if m != nil {
		m.sessionsTotal.WithLabelValues(OutcomeConnectFailed).Inc()
	}
}

func (m *Metrics) messageSent(k protocol.Kind) {
	if m != nil {
		m.messagesSent.WithLabelValues(k.String()).Inc()
	}
}

func (m *Metrics) frameReceived() {
	if m != nil {
		m.framesReceived.Inc()
	}
}

func (m *Metrics) cancelSent() {
	if m != nil {
		m.cancellations.Inc()
	}
}

func (m *Metrics) exported(r *export.Report) {
	if m == nil || r == nil {
		return
	}
	m.cacheHits.WithLabelValues("mesh").Add(float64(r.MeshesReused))
	m.cacheHits.WithLabelValues("material").Add(float64(r.MaterialsReused))
	m.skippedEntities.Add(float64(len(r.Diagnostics)))
	m.exportDuration.Observe(r.Duration.Seconds())
}

func (m *Metrics) rendered(seconds float64) {
	if m != nil {
		m.renderDuration.Observe(seconds)
	}
}

// meteredTransport counts control messages as they are written.
type meteredTransport struct {
	*protocol.Conn
	m *Metrics
}

func (t meteredTransport) WriteMessage(b protocol.Body) error {
	err := t.Conn.WriteMessage(b)
	if cm, ok := b.(*protocol.ClientMessage); ok && err == nil {
		t.m.messageSent(cm.Type)
	}
	return err
}
