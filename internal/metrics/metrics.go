// Package metrics holds the prometheus collectors for govrec.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namePrefix = "govrec_"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	httpRequests  *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	auditFailures prometheus.Counter
	overdueFlags  prometheus.Gauge
}

// New creates collectors on a fresh registry. Process and Go runtime
// collectors are included so /metrics is useful on its own.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: namePrefix + "http_requests_total",
			Help: "HTTP requests by route pattern and status code",
		}, []string{"route", "code"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: namePrefix + "transitions_total",
			Help: "Workflow transitions by entity and target status",
		}, []string{"entity", "to"}),
		auditFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: namePrefix + "audit_failures_total",
			Help: "Audit entries that could not be recorded",
		}),
		overdueFlags: factory.NewGauge(prometheus.GaugeOpts{
			Name: namePrefix + "overdue_flags",
			Help: "Review flags past their due date at the last check",
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest counts one HTTP request.
func (m *Metrics) ObserveRequest(route string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// ObserveTransition counts one successful workflow transition.
func (m *Metrics) ObserveTransition(entity, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(entity, to).Inc()
}

// AuditFailed counts one swallowed audit failure.
func (m *Metrics) AuditFailed() {
	if m == nil {
		return
	}
	m.auditFailures.Inc()
}

// SetOverdueFlags records the result of the latest overdue check.
func (m *Metrics) SetOverdueFlags(n int) {
	if m == nil {
		return
	}
	m.overdueFlags.Set(float64(n))
}
