// Package metric provides the Prometheus-backed performance collaborator
// for the supervision framework. The supervisor records lifecycle phase
// durations, service states, health results, and error counts through it;
// a nil or missing registry degrades every recording to a no-op so that
// metrics can never affect a lifecycle outcome.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Core contains the framework-level metrics (not service-specific)
type Core struct {
	ServiceState      *prometheus.GaugeVec
	LifecycleDuration *prometheus.HistogramVec
	HealthStatus      *prometheus.GaugeVec
	ErrorsTotal       *prometheus.CounterVec
	TransactionsTotal *prometheus.CounterVec
}

// NewCore creates a new Core with all framework metrics
func NewCore() *Core {
	return &Core{
		ServiceState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "tutorkit",
				Subsystem: "service",
				Name:      "state",
				Help: "Service lifecycle state (0=uninitialized, 1=initializing, 2=ready, " +
					"3=starting, 4=active, 5=stopping, 6=stopped, 7=error)",
			},
			[]string{"service"},
		),

		LifecycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "tutorkit",
				Subsystem: "lifecycle",
				Name:      "phase_duration_seconds",
				Help:      "Lifecycle hook duration in seconds, labelled per service and phase",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "phase"},
		),

		HealthStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "tutorkit",
				Subsystem: "health",
				Name:      "status",
				Help:      "Health check status (0=unhealthy, 0.5=degraded, 1=healthy)",
			},
			[]string{"service"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tutorkit",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of supervision errors",
			},
			[]string{"service", "kind"},
		),

		TransactionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tutorkit",
				Subsystem: "transactions",
				Name:      "total",
				Help:      "Total number of transactions by terminal status",
			},
			[]string{"service", "status"},
		),
	}
}

// RecordServiceState updates the lifecycle state gauge for a service
func (c *Core) RecordServiceState(service string, state int) {
	c.ServiceState.WithLabelValues(service).Set(float64(state))
}

// RecordLifecycleDuration records how long a lifecycle phase took. The
// metric identity is "<service>_<phase>" split across the two labels.
func (c *Core) RecordLifecycleDuration(service, phase string, duration time.Duration) {
	c.LifecycleDuration.WithLabelValues(service, phase).Observe(duration.Seconds())
}

// RecordHealthStatus updates the health gauge for a service
func (c *Core) RecordHealthStatus(service, state string) {
	value := 0.0
	switch state {
	case "healthy":
		value = 1.0
	case "degraded":
		value = 0.5
	}
	c.HealthStatus.WithLabelValues(service).Set(value)
}

// RecordError increments the error counter for a service and error kind
func (c *Core) RecordError(service, kind string) {
	c.ErrorsTotal.WithLabelValues(service, kind).Inc()
}

// RecordTransaction increments the transaction counter for a terminal status
func (c *Core) RecordTransaction(service, status string) {
	c.TransactionsTotal.WithLabelValues(service, status).Inc()
}
