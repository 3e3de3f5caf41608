// Package metrics exposes Prometheus metrics for the HTTP surface, document
// manager operations and event dispatch.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// serviceCollectors are the package metrics. They live on the default
// registry and are shared by every Registry.
func serviceCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestDuration,
		httpRequestsTotal,
		httpRequestsInFlight,
		operationDuration,
		operationsTotal,
		documentsReturned,
		eventsDispatched,
	}
}

// Registry is the set of collectors served on /metrics: the service
// metrics, the Go runtime and process collectors, and any extra collectors.
type Registry struct {
	registry *prometheus.Registry
}

// NewRegistry creates a registry. It panics if an extra collector clashes
// with a built-in one.
func NewRegistry(extra ...prometheus.Collector) *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(serviceCollectors()...)
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reg.MustRegister(extra...)
	return &Registry{registry: reg}
}

// Register adds a collector.
func (r *Registry) Register(c prometheus.Collector) error {
	return r.registry.Register(c)
}

// Handler serves the registry in the Prometheus or OpenMetrics text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Gatherer returns the underlying gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.registry }
