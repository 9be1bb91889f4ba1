package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/usorama/tutorkit/errors"
	"github.com/usorama/tutorkit/health"
	"github.com/usorama/tutorkit/lifecycle"
)

// Registry is the process-wide directory of supervised services. Services
// register with declared dependency names; the registry maintains an
// initialization order in which every service appears after all of its
// transitively declared dependencies, and drives bulk lifecycle operations
// in that order (reverse order for shutdown).
//
// Construct one Registry per process (or per test) and pass references to
// it; there is no global instance.
type Registry struct {
	mu       sync.RWMutex
	services map[string]Service
	deps     map[string][]string
	order    []string
	logger   *slog.Logger
	monitor  *health.Monitor
}

// RegistryOption is a functional option for configuring a Registry
type RegistryOption func(*Registry)

// WithRegistryLogger sets a custom logger for the registry
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty service registry
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		services: make(map[string]Service),
		deps:     make(map[string][]string),
		logger:   slog.Default().With("component", "registry"),
		monitor:  health.NewMonitor(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a service under a process-unique name with its declared
// dependencies. Every dependency must already be registered: dependencies
// cannot be declared forward. The service is inserted into the
// initialization order immediately after its latest-occurring dependency,
// which maintains the total-order invariant incrementally without a full
// topological re-sort.
func (r *Registry) Register(name string, svc Service, dependencies ...string) error {
	if name == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	if svc == nil {
		return fmt.Errorf("service cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[name]; exists {
		return errors.NewDuplicateRegistration(name)
	}

	// insertion point: one past the latest dependency in the order
	idx := 0
	for _, dep := range dependencies {
		if _, exists := r.services[dep]; !exists {
			return errors.NewDependencyMissing(name, dep)
		}
		pos := slices.Index(r.order, dep)
		if pos+1 > idx {
			idx = pos + 1
		}
	}

	r.services[name] = svc
	r.deps[name] = slices.Clone(dependencies)
	r.order = slices.Insert(r.order, idx, name)

	r.logger.Debug("service registered",
		"service", name,
		"dependencies", dependencies,
		"position", idx)
	return nil
}

// Get returns the registered service instance by name
func (r *Registry) Get(name string) (Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	svc, exists := r.services[name]
	if !exists {
		return nil, errors.NewServiceNotFound(name)
	}
	return svc, nil
}

// Dependencies returns the declared dependency names of a registered service
func (r *Registry) Dependencies(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.deps[name])
}

// InitializationOrder returns a copy of the current dependency-respecting
// order. stopAll always walks the exact reverse of this order.
func (r *Registry) InitializationOrder() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Unregister stops a service if it is ready or active, then removes it
// from the registry and the order. Unknown names are a no-op.
func (r *Registry) Unregister(ctx context.Context, name string) {
	r.mu.Lock()
	svc, exists := r.services[name]
	r.mu.Unlock()

	if !exists {
		return
	}

	switch svc.State() {
	case lifecycle.StateReady, lifecycle.StateActive:
		if err := svc.Stop(ctx); err != nil {
			r.logger.Error("stop during unregister failed", "service", name, "error", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.services, name)
	delete(r.deps, name)
	if pos := slices.Index(r.order, name); pos >= 0 {
		r.order = slices.Delete(r.order, pos, pos+1)
	}
	r.monitor.Remove(name)
}

// InitializeAll walks the initialization order and initializes every
// service still uninitialized. It is fail-fast: the first failure aborts
// the walk, leaving later services untouched, so a broken dependency can
// never let dependents start in an inconsistent world.
func (r *Registry) InitializeAll(ctx context.Context) error {
	for _, name := range r.InitializationOrder() {
		svc, err := r.Get(name)
		if err != nil {
			continue // unregistered concurrently
		}
		if !svc.Enabled() {
			r.logger.Debug("skipping disabled service", "service", name)
			continue
		}
		if svc.State() != lifecycle.StateUninitialized {
			continue
		}

		if err := svc.Initialize(ctx); err != nil {
			r.logger.Error("initialization aborted", "service", name, "error", err)
			return errors.New(errors.KindInitializationFailed, name, errors.SeverityCritical,
				"initializeAll aborted", err)
		}
	}
	return nil
}

// StartAll walks the initialization order and starts every ready service.
// It is best-effort: one subsystem refusing to start does not prevent
// independent subsystems from running. Failures are logged and joined
// into the returned error.
func (r *Registry) StartAll(ctx context.Context) error {
	var errs []error
	for _, name := range r.InitializationOrder() {
		svc, err := r.Get(name)
		if err != nil {
			continue
		}
		if !svc.Enabled() || svc.State() != lifecycle.StateReady {
			continue
		}

		if err := svc.Start(ctx); err != nil {
			r.logger.Error("service failed to start", "service", name, "error", err)
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// StopAll walks the exact reverse of the initialization order and stops
// every active or ready service. It is best-effort: every service gets a
// stop attempt regardless of earlier failures.
func (r *Registry) StopAll(ctx context.Context) error {
	order := r.InitializationOrder()
	slices.Reverse(order)

	var errs []error
	for _, name := range order {
		svc, err := r.Get(name)
		if err != nil {
			continue
		}

		switch svc.State() {
		case lifecycle.StateActive, lifecycle.StateReady:
			if err := svc.Stop(ctx); err != nil {
				r.logger.Error("service failed to stop", "service", name, "error", err)
				errs = append(errs, err)
			}
		}
	}
	return stderrors.Join(errs...)
}

// Health polls every registered service and returns a name to status map.
// A health call that panics degrades to an unhealthy entry rather than
// aborting the map.
func (r *Registry) Health(ctx context.Context) map[string]health.Status {
	r.mu.RLock()
	services := make(map[string]Service, len(r.services))
	for name, svc := range r.services {
		services[name] = svc
	}
	r.mu.RUnlock()

	statuses := make(map[string]health.Status, len(services))
	for name, svc := range services {
		statuses[name] = r.pollService(ctx, name, svc)
		r.monitor.Update(name, statuses[name])
	}
	return statuses
}

func (r *Registry) pollService(ctx context.Context, name string, svc Service) (status health.Status) {
	defer func() {
		if rec := recover(); rec != nil {
			status = health.NewUnhealthy(name,
				health.SanitizeMessage(fmt.Sprintf("health poll panic: %v", rec)))
		}
	}()
	return svc.Health(ctx)
}

// AggregatedHealth folds the live per-service health map into one
// system-wide verdict with counts and a timestamp. It is computed on every
// call and never cached.
func (r *Registry) AggregatedHealth(ctx context.Context) health.Aggregated {
	return health.Aggregate(r.Health(ctx))
}

// Monitor returns the last-known-status table populated by Health polls
func (r *Registry) Monitor() *health.Monitor {
	return r.monitor
}

// Clear stops all services and discards every registration. Intended for
// test teardown.
func (r *Registry) Clear(ctx context.Context) {
	if err := r.StopAll(ctx); err != nil {
		r.logger.Error("stop during clear failed", "error", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.services = make(map[string]Service)
	r.deps = make(map[string][]string)
	r.order = nil
	r.monitor.Clear()
}

// Count returns the number of registered services
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.services)
}
