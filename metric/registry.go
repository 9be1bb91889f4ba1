package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns a private Prometheus registry with the framework's core
// metrics pre-registered. One Registry is created per process and shared by
// every supervisor through a functional option.
type Registry struct {
	prometheusRegistry *prometheus.Registry
	core               *Core
}

// NewRegistry creates a new metrics registry with core framework metrics
// and Go runtime collectors registered.
func NewRegistry() *Registry {
	prometheusRegistry := prometheus.NewRegistry()

	registry := &Registry{
		prometheusRegistry: prometheusRegistry,
		core:               NewCore(),
	}

	prometheusRegistry.MustRegister(
		registry.core.ServiceState,
		registry.core.LifecycleDuration,
		registry.core.HealthStatus,
		registry.core.ErrorsTotal,
		registry.core.TransactionsTotal,
	)

	prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return registry
}

// Prometheus returns the underlying Prometheus registry
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.prometheusRegistry
}

// Core returns the core framework metrics
func (r *Registry) Core() *Core {
	return r.core
}

// Handler returns an HTTP handler serving the registry in Prometheus
// exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prometheusRegistry, promhttp.HandlerOpts{})
}
