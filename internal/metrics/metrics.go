package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Metrics holds the counters the storefront reports. A nil *Metrics is valid and records nothing.
type Metrics struct {
	fallbacks *prometheus.CounterVec
	probes    *prometheus.CounterVec
	reverts   *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_total",
			Help:      "Primary backend failures absorbed by falling back to the hosted backend.",
		}, []string{"op"}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_total",
			Help:      "Primary backend liveness probes by result.",
		}, []string{"result"}),
		reverts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "reverts_total",
			Help:      "Optimistic cart mutations reverted after a failed write.",
		}, []string{"op"}),
	}
	reg.MustRegister(m.fallbacks, m.probes, m.reverts)
	return m
}

func (m *Metrics) Fallback(op string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(op).Inc()
}

func (m *Metrics) Probe(available bool) {
	if m == nil {
		return
	}
	result := "down"
	if available {
		result = "up"
	}
	m.probes.WithLabelValues(result).Inc()
}

// ProbeShortCircuit records a probe answered by the open breaker without a request.
func (m *Metrics) ProbeShortCircuit() {
	if m == nil {
		return
	}
	m.probes.WithLabelValues("short_circuit").Inc()
}

func (m *Metrics) Revert(op string) {
	if m == nil {
		return
	}
	m.reverts.WithLabelValues(op).Inc()
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
