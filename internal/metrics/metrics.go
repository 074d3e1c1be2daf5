package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shieldpay"

// Metrics holds the collectors of the send engine. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry
	steps    *prometheus.CounterVec
	sends    *prometheus.CounterVec
	refresh  *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publisher",
			Name:      "steps_total",
			Help:      "Batch steps by kind (internal, external) and outcome.",
		}, []string{"kind", "outcome"}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "sends_total",
			Help:      "Send cycles by transfer mode and final outcome.",
		}, []string{"mode", "outcome"}),
		refresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresher",
			Name:      "ticks_total",
			Help:      "Balance refresh ticks by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(m.steps, m.sends, m.refresh)
	return m
}

// Step counts one batch step outcome.
func (m *Metrics) Step(kind, outcome string) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(kind, outcome).Inc()
}

// Send counts one finished send cycle.
func (m *Metrics) Send(mode, outcome string) {
	if m == nil {
		return
	}
	m.sends.WithLabelValues(mode, outcome).Inc()
}

// Refresh counts one refresher tick.
func (m *Metrics) Refresh(outcome string) {
	if m == nil {
		return
	}
	m.refresh.WithLabelValues(outcome).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
