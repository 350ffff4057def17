// Package metrics exposes Prometheus collectors for the events service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry      *prometheus.Registry
	registrations *prometheus.CounterVec
	published     *prometheus.CounterVec
}

// New registers the collectors, plus Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "samudaya",
			Name:      "registrations_total",
			Help:      "Registration attempts by outcome.",
		}, []string{"outcome"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "samudaya",
			Name:      "outbox_published_total",
			Help:      "Outbox messages relayed to the stream, by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		m.registrations,
		m.published,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRegistration counts one registration attempt.
func (m *Metrics) ObserveRegistration(outcome string) {
	m.registrations.WithLabelValues(outcome).Inc()
}

// ObservePublish counts one outbox relay attempt.
func (m *Metrics) ObservePublish(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.published.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
