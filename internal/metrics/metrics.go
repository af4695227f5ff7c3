// Package metrics holds the Prometheus collectors restodir exports.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "restodir"

// Metrics is safe to use as a nil pointer; every recorder is then a no-op.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	PolicyEvaluations *prometheus.CounterVec
	TenantOutcomes    *prometheus.CounterVec
}

// New creates and registers all collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route pattern, method and status",
			},
			[]string{"route", "method", "status"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		PolicyEvaluations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_evaluations_total",
				Help:      "Authorization decisions by subject, action and result",
			},
			[]string{"subject", "action", "result"}, // result=allow/deny/error
		),
		TenantOutcomes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tenant_outcomes_total",
				Help:      "Tenant subdomain resolutions by outcome",
			},
			[]string{"outcome"}, // pass_through/redirect/rewrite/error
		),
	}
}

// NewRegistry returns a registry with the Go and process collectors attached.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(route, method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, method, status).Inc()
	m.RequestDuration.WithLabelValues(route, method).Observe(seconds)
}

func (m *Metrics) ObservePolicy(subject, action, result string) {
	if m == nil {
		return
	}
	m.PolicyEvaluations.WithLabelValues(subject, action, result).Inc()
}

func (m *Metrics) ObserveTenant(outcome string) {
	if m == nil {
		return
	}
	m.TenantOutcomes.WithLabelValues(outcome).Inc()
}
