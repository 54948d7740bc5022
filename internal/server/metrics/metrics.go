// Package metrics exposes Prometheus counters for authentication outcomes,
// gate decisions and HTTP latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "folioguard"

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics owns its registry so that several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	Logins          *prometheus.CounterVec
	PasswordChanges *prometheus.CounterVec
	GateDecisions   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "login_total",
				Help:      "Admin login attempts by outcome.",
			},
			[]string{"outcome"},
		),
		PasswordChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "password_change_total",
				Help:      "Password change attempts by outcome.",
			},
			[]string{"outcome"},
		),
		GateDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "gate_decisions_total",
				Help:      "Access states resolved by the gate, per route class.",
			},
			[]string{"state", "class"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	m.registry.MustRegister(
		m.Logins,
		m.PasswordChanges,
		m.GateDecisions,
		m.RequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Login(outcome string) {
	m.Logins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PasswordChange(outcome string) {
	m.PasswordChanges.WithLabelValues(outcome).Inc()
}

func (m *Metrics) GateDecision(state, class string) {
	m.GateDecisions.WithLabelValues(state, class).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, seconds float64) {
	m.RequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
