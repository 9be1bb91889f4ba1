package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/usorama/tutorkit/config"
	"github.com/usorama/tutorkit/errors"
	"github.com/usorama/tutorkit/health"
	"github.com/usorama/tutorkit/lifecycle"
	"github.com/usorama/tutorkit/metric"
	"github.com/usorama/tutorkit/pkg/retry"
)

// Lifecycle phase names used for timing and logging
const (
	phaseInitialize  = "initialize"
	phaseStart       = "start"
	phaseStop        = "stop"
	phaseHealthCheck = "health_check"
)

// Supervisor drives the lifecycle of one service. It owns the validated
// state machine, the event dispatcher, the periodic health poller, and
// transaction bracketing; the business logic lives behind the Hooks
// interface. Construct one per service with New; there is no global
// instance.
//
// Lifecycle entry points are serialized against each other; calling them
// from multiple goroutines is safe but the order of effect is whichever
// caller wins the lock.
type Supervisor struct {
	name    string
	hooks   Hooks
	cfg     config.ServiceConfig
	machine *lifecycle.Machine
	logger  *slog.Logger
	metrics *metric.Registry
	timer   Timer

	events *dispatcher

	mu       sync.Mutex // serializes lifecycle entry points
	pollDone chan struct{}
	pollWG   sync.WaitGroup

	startTime atomic.Value // time.Time; read by the health poller without s.mu

	healthChecks       atomic.Int64
	failedHealthChecks atomic.Int64
}

var _ Service = (*Supervisor)(nil)

// New creates a supervisor for the named service in the uninitialized
// state. The default configuration is enabled with on-demand health only.
func New(name string, hooks Hooks, opts ...Option) *Supervisor {
	s := &Supervisor{
		name:    name,
		hooks:   hooks,
		cfg:     config.DefaultServiceConfig(),
		machine: lifecycle.NewMachine(name),
		logger:  slog.Default().With("service", name),
		events:  newDispatcher(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.timer == nil && s.metrics != nil {
		s.timer = s.metrics.Core()
	}

	s.startTime.Store(time.Time{})

	s.recordState()
	return s
}

// Name returns the service name
func (s *Supervisor) Name() string {
	return s.name
}

// State returns the current lifecycle state
func (s *Supervisor) State() lifecycle.State {
	return s.machine.State()
}

// Enabled reports whether the service is enabled in its configuration
func (s *Supervisor) Enabled() bool {
	return s.cfg.Enabled
}

// Config returns the per-service configuration record
func (s *Supervisor) Config() config.ServiceConfig {
	return s.cfg
}

// StartTime returns when the service last entered the active state, or the
// zero time if it never has.
func (s *Supervisor) StartTime() time.Time {
	return s.startTime.Load().(time.Time)
}

// Uptime returns how long the service has been active, or zero when it is
// not active.
func (s *Supervisor) Uptime() time.Duration {
	start := s.StartTime()
	if start.IsZero() || s.State() != lifecycle.StateActive {
		return 0
	}
	return time.Since(start)
}

// Subscribe registers a listener for one event type and returns an id for
// Unsubscribe. Listeners receive every matching emission, synchronously,
// until unsubscribed or the service is stopped.
func (s *Supervisor) Subscribe(t EventType, fn Listener) int {
	return s.events.subscribe(t, fn)
}

// Unsubscribe removes a previously registered listener
func (s *Supervisor) Unsubscribe(t EventType, id int) {
	s.events.unsubscribe(t, id)
}

// Initialize moves the service from uninitialized, stopped, or error into
// ready. It runs the Init hook between the initializing and ready
// transitions; on hook failure the service lands in error and a typed
// initialization error is returned. When a health-check interval is
// configured, periodic polling begins on success.
func (s *Supervisor) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.transition(lifecycle.StateInitializing); err != nil {
		return err
	}

	s.logger.Debug("initializing")
	if err := s.runHook(ctx, phaseInitialize, s.hooks.Init, true); err != nil {
		return s.fail(errors.NewInitializationFailed(s.name, err))
	}

	if err := s.transition(lifecycle.StateReady); err != nil {
		return err
	}

	s.emit(Event{Type: EventInitialized})
	s.startHealthPolling()
	s.logger.Info("initialized")
	return nil
}

// Start moves the service from ready into active. On success the start
// timestamp is recorded; on hook failure the service lands in error.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.transition(lifecycle.StateStarting); err != nil {
		return err
	}

	s.logger.Debug("starting")
	if err := s.runHook(ctx, phaseStart, s.hooks.Start, true); err != nil {
		return s.fail(errors.NewStartFailed(s.name, err))
	}

	if err := s.transition(lifecycle.StateActive); err != nil {
		return err
	}

	s.startTime.Store(time.Now())
	s.emit(Event{Type: EventStarted})
	s.logger.Info("started")
	return nil
}

// Stop moves the service from active or ready into stopped. The Stop hook
// runs first, then internal cleanup: health polling is cancelled and the
// listener table cleared. Stop is never retried; a failed hook leaves the
// service in error.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.transition(lifecycle.StateStopping); err != nil {
		return err
	}

	s.logger.Debug("stopping")
	hookErr := s.runHook(ctx, phaseStop, s.hooks.Stop, false)

	// cleanup happens regardless of hook outcome so a failed stop cannot
	// leave a poller running against an errored service
	s.stopHealthPolling()

	if hookErr != nil {
		err := s.fail(errors.NewStopFailed(s.name, hookErr))
		s.events.clear()
		return err
	}

	if err := s.transition(lifecycle.StateStopped); err != nil {
		return err
	}

	s.startTime.Store(time.Time{})
	s.emit(Event{Type: EventStopped})
	s.events.clear()
	s.logger.Info("stopped")
	return nil
}

// Health reports the current health of the service. It never changes
// state and never propagates a hook failure: a panicking health check
// degrades to an unhealthy status carrying the sanitized message. Every
// call emits a health_check event with the resulting status.
func (s *Supervisor) Health(ctx context.Context) health.Status {
	s.healthChecks.Add(1)

	start := time.Now()
	status := s.checkHealth(ctx)
	s.observePhase(phaseHealthCheck, start)

	if !status.IsHealthy() {
		s.failedHealthChecks.Add(1)
	}

	status = status.WithMetrics(&health.Metrics{
		Uptime:             s.Uptime(),
		HealthChecks:       s.healthChecks.Load(),
		FailedHealthChecks: s.failedHealthChecks.Load(),
		LastActivity:       time.Now(),
	})

	if s.metrics != nil {
		s.metrics.Core().RecordHealthStatus(s.name, status.State)
	}

	s.emit(Event{Type: EventHealthChecked, Status: status})
	return status
}

// checkHealth invokes the hook with panic isolation and fills in a
// state-derived status when the hook declines to provide one.
func (s *Supervisor) checkHealth(ctx context.Context) (status health.Status) {
	defer func() {
		if r := recover(); r != nil {
			status = health.NewUnhealthy(s.name,
				health.SanitizeMessage(fmt.Sprintf("health check panic: %v", r)))
		}
	}()

	status = s.hooks.HealthCheck(ctx)
	if status.State == "" {
		status = s.defaultStatus()
	}
	status.Service = s.name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}
	return status
}

// defaultStatus derives a health status from the lifecycle state alone
func (s *Supervisor) defaultStatus() health.Status {
	switch st := s.State(); st {
	case lifecycle.StateActive:
		return health.NewHealthy(s.name, "Service operating normally")
	case lifecycle.StateReady:
		return health.NewHealthy(s.name, "Service ready")
	case lifecycle.StateInitializing, lifecycle.StateStarting, lifecycle.StateStopping:
		return health.NewDegraded(s.name, "Service is "+st.String())
	default:
		return health.NewUnhealthy(s.name, "Service is "+st.String())
	}
}

// transition validates a state change, recording and wrapping rejections
func (s *Supervisor) transition(to lifecycle.State) error {
	if err := s.machine.Transition(to); err != nil {
		werr := errors.NewInvalidStateTransition(s.name, err)
		s.recordError(werr)
		return werr
	}
	s.recordState()
	return nil
}

// fail moves the service to the error state and emits the error event.
// The typed error is returned for the caller to re-raise.
func (s *Supervisor) fail(werr *errors.ServiceError) error {
	if err := s.machine.Transition(lifecycle.StateErrored); err != nil {
		s.logger.Error("could not enter error state", "error", err)
	}
	s.recordState()
	s.recordError(werr)
	s.emit(Event{Type: EventErrored, Err: werr})
	s.logger.Error("lifecycle operation failed",
		"kind", string(werr.Kind),
		"severity", werr.Severity.String(),
		"error", werr.Err)
	return werr
}

// runHook invokes one lifecycle hook with panic isolation, phase timing,
// and, for initialize and start, the optional retry policy.
func (s *Supervisor) runHook(ctx context.Context, phase string, fn func(context.Context) error, retryable bool) error {
	start := time.Now()
	defer s.observePhase(phase, start)

	call := func() error {
		return safeCall(ctx, phase, fn)
	}

	if retryable && s.cfg.Retry != nil {
		return retry.Do(ctx, s.cfg.Retry.Std(), call)
	}
	return call()
}

// safeCall converts a hook panic into an error
func safeCall(ctx context.Context, phase string, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s hook: %v", phase, r)
		}
	}()
	return fn(ctx)
}

// observePhase reports a phase duration to the timing collaborator. A
// collaborator failure must never affect the lifecycle outcome, so panics
// are swallowed and logged.
func (s *Supervisor) observePhase(phase string, start time.Time) {
	if s.timer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("timing collaborator failed", "phase", phase, "panic", r)
		}
	}()
	s.timer.RecordLifecycleDuration(s.name, phase, time.Since(start))
}

func (s *Supervisor) recordState() {
	if s.metrics != nil {
		s.metrics.Core().RecordServiceState(s.name, int(s.machine.State()))
	}
}

func (s *Supervisor) recordError(err *errors.ServiceError) {
	if s.metrics != nil {
		s.metrics.Core().RecordError(s.name, string(err.Kind))
	}
}

func (s *Supervisor) recordTransaction(status string) {
	if s.metrics != nil {
		s.metrics.Core().RecordTransaction(s.name, status)
	}
}

func (s *Supervisor) emit(ev Event) {
	ev.Service = s.name
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	s.events.emit(ev, s.logger)
}

// startHealthPolling begins the periodic health ticker when an interval is
// configured. Callers hold s.mu.
func (s *Supervisor) startHealthPolling() {
	interval := s.cfg.HealthInterval.Std()
	if interval <= 0 || s.pollDone != nil {
		return
	}

	done := make(chan struct{})
	s.pollDone = done
	s.pollWG.Add(1)
	go s.pollHealth(interval, done)
}

// stopHealthPolling cancels the ticker and waits for the poller goroutine
// to exit, guaranteeing no health_check event fires after Stop returns.
// Callers hold s.mu.
func (s *Supervisor) stopHealthPolling() {
	if s.pollDone == nil {
		return
	}
	close(s.pollDone)
	s.pollWG.Wait()
	s.pollDone = nil
}

func (s *Supervisor) pollHealth(interval time.Duration, done chan struct{}) {
	defer s.pollWG.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			// a tick racing cancellation is a no-op
			switch s.State() {
			case lifecycle.StateStopping, lifecycle.StateStopped:
				continue
			}
			s.Health(context.Background())
		}
	}
}
