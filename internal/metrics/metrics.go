// Package metrics exposes Prometheus collectors for the contact form.
//
// Metrics collected:
//   - contactform_submissions_total: submit attempts by outcome (success|invalid)
//   - contactform_field_errors_total: rejected fields by field and kind
//   - contactform_success_resets_total: success windows that elapsed
//   - contactform_active_sessions: form instances currently held
//   - contactform_live_connections: open websocket connections
package metrics

import (
	"net/http"

	formerrors "github.com/joaovieira77/contactForm/internal/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "contactform").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry receives the collectors. Default: a fresh registry, so several
	// servers in one process (tests) do not collide.
	Registry *prometheus.Registry
}

// Option configures Config.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// Metrics holds the collectors.
type Metrics struct {
	registry        *prometheus.Registry
	submissions     *prometheus.CounterVec
	fieldErrors     *prometheus.CounterVec
	successResets   prometheus.Counter
	activeSessions  prometheus.Gauge
	liveConnections prometheus.Gauge
}

// New registers the collectors.
func New(opts ...Option) *Metrics {
	config := Config{Namespace: "contactform"}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		registry: config.Registry,
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "submissions_total",
			Help:        "Total number of contact form submit attempts",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		fieldErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "field_errors_total",
			Help:        "Total number of field validation failures",
			ConstLabels: config.ConstLabels,
		}, []string{"field", "kind"}),

		successResets: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "success_resets_total",
			Help:        "Total number of success messages cleared after the success window",
			ConstLabels: config.ConstLabels,
		}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "active_sessions",
			Help:        "Number of form instances currently held",
			ConstLabels: config.ConstLabels,
		}),

		liveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "live_connections",
			Help:        "Number of open websocket connections",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// ObserveSubmit records one submit attempt and its field failures.
func (m *Metrics) ObserveSubmit(accepted bool, failures []*formerrors.FieldError) {
	if m == nil {
		return
	}
	if accepted {
		m.submissions.WithLabelValues("success").Inc()
		return
	}
	m.submissions.WithLabelValues("invalid").Inc()
	for _, fe := range failures {
		m.fieldErrors.WithLabelValues(fe.Field, string(fe.Kind)).Inc()
	}
}

// ObserveReset records an elapsed success window.
func (m *Metrics) ObserveReset() {
	if m == nil {
		return
	}
	m.successResets.Inc()
}

// SetActiveSessions sets the session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

// ConnectionOpened increments the live connection gauge.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.liveConnections.Inc()
}

// ConnectionClosed decrements the live connection gauge.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.liveConnections.Dec()
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
