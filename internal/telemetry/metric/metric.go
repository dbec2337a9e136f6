// Package metric provides Prometheus metrics for the viewer token
// service.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resolution outcome label values.
const (
	ResolveOK      = "ok"
	ResolveMiss    = "miss"
	ResolveExpired = "expired"
)

// Registry holds all application metrics backed by a dedicated
// Prometheus registry, so tests can create isolated instances.
type Registry struct {
	reg *prometheus.Registry

	// Token lifecycle metrics
	TokensIssued        prometheus.Counter
	TokensResolved      *prometheus.CounterVec
	TokensSwept         prometheus.Counter
	ProjectsProvisioned prometheus.Counter

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a new metrics registry with all collectors
// registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Registry{
		reg: reg,

		TokensIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "qrifc_tokens_issued_total",
			Help: "Total number of viewer tokens issued.",
		}),
		TokensResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qrifc_tokens_resolved_total",
			Help: "Total number of token resolutions by outcome.",
		}, []string{"outcome"}),
		TokensSwept: factory.NewCounter(prometheus.CounterOpts{
			Name: "qrifc_tokens_swept_total",
			Help: "Total number of expired token rows reclaimed by the sweeper.",
		}),
		ProjectsProvisioned: factory.NewCounter(prometheus.CounterOpts{
			Name: "qrifc_projects_provisioned_total",
			Help: "Total number of projects auto-provisioned on first issuance.",
		}),

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qrifc_http_requests_total",
			Help: "Total number of HTTP requests by method, route, and status.",
		}, []string{"method", "route", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qrifc_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// MustRegister registers additional collectors. Storage engines attach
// their own gauges here.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	r.reg.MustRegister(cs...)
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gather exposes the underlying gatherer, primarily for tests.
func (r *Registry) Gather() prometheus.Gatherer {
	return r.reg
}
