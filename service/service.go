package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/usorama/tutorkit/config"
	"github.com/usorama/tutorkit/health"
	"github.com/usorama/tutorkit/lifecycle"
	"github.com/usorama/tutorkit/metric"
)

// Hooks is the contract a concrete service implements. The supervisor owns
// the state machine and calls these methods at the right lifecycle moments;
// hooks contain only business logic and must bound their own work; the
// supervisor does not preempt a hook that never returns.
type Hooks interface {
	// Init prepares the service: open connections, load state, validate
	// configuration. No long-running work should start here.
	Init(ctx context.Context) error

	// Start begins active operation. It should return quickly, with
	// long-running work spawned in goroutines the hook owns.
	Start(ctx context.Context) error

	// Stop releases resources and terminates work started by Start.
	Stop(ctx context.Context) error

	// HealthCheck reports the current health of the service. Returning the
	// zero Status lets the supervisor derive one from the lifecycle state.
	HealthCheck(ctx context.Context) health.Status
}

// HooksFuncs adapts plain functions to the Hooks interface. Nil fields are
// no-ops (and a healthy default for the health check).
type HooksFuncs struct {
	InitFunc   func(ctx context.Context) error
	StartFunc  func(ctx context.Context) error
	StopFunc   func(ctx context.Context) error
	HealthFunc func(ctx context.Context) health.Status
}

// Init implements Hooks
func (h HooksFuncs) Init(ctx context.Context) error {
	if h.InitFunc == nil {
		return nil
	}
	return h.InitFunc(ctx)
}

// Start implements Hooks
func (h HooksFuncs) Start(ctx context.Context) error {
	if h.StartFunc == nil {
		return nil
	}
	return h.StartFunc(ctx)
}

// Stop implements Hooks
func (h HooksFuncs) Stop(ctx context.Context) error {
	if h.StopFunc == nil {
		return nil
	}
	return h.StopFunc(ctx)
}

// HealthCheck implements Hooks
func (h HooksFuncs) HealthCheck(ctx context.Context) health.Status {
	if h.HealthFunc == nil {
		return health.Status{}
	}
	return h.HealthFunc(ctx)
}

// Service is the view of a supervised unit the registry drives. Supervisor
// is the canonical implementation; tests may substitute fakes.
type Service interface {
	Name() string
	State() lifecycle.State
	Enabled() bool
	Initialize(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) health.Status
}

// Timer is the performance collaborator notified of lifecycle phase
// durations. Failures of the collaborator never affect lifecycle outcome.
type Timer interface {
	RecordLifecycleDuration(service, phase string, duration time.Duration)
}

// Option is a functional option for configuring a Supervisor
type Option func(*Supervisor)

// WithLogger sets a custom logger for the supervisor
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithConfig sets the per-service configuration record
func WithConfig(cfg config.ServiceConfig) Option {
	return func(s *Supervisor) {
		s.cfg = cfg
	}
}

// WithHealthInterval sets the periodic health-check interval. Zero keeps
// health on-demand only.
func WithHealthInterval(interval time.Duration) Option {
	return func(s *Supervisor) {
		s.cfg.HealthInterval = config.Duration(interval)
	}
}

// WithMetrics sets the metrics registry for the supervisor
func WithMetrics(registry *metric.Registry) Option {
	return func(s *Supervisor) {
		s.metrics = registry
	}
}

// WithTimer sets a custom performance collaborator, overriding the one
// derived from WithMetrics.
func WithTimer(timer Timer) Option {
	return func(s *Supervisor) {
		s.timer = timer
	}
}
