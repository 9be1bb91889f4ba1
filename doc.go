// Package tutorkit provides the service lifecycle backbone for the Virtual
// Tutor platform: a supervised state machine for long-running services, a
// dependency-ordered registry for bringing whole systems up and down, and
// the health, metrics, and error surfaces that go with them.
//
// # Philosophy
//
// Business services implement a small Hooks interface and nothing else.
// Everything operational (state validation, ordered startup, health
// polling, retry, metrics, transactional bracketing of multi-step writes)
// lives in the framework and is identical across every service. There are
// no singletons: every supervisor and registry is an explicit value wired
// by the caller, which keeps tests isolated and embedding flexible.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│            Registry                 │  dependency order,
//	│ (InitializeAll / StartAll / StopAll)│  aggregated health
//	└─────────────────────────────────────┘
//	           ↓ drives
//	┌─────────────────────────────────────┐
//	│           Supervisor                │  state machine, events,
//	│  (Initialize, Start, Stop, Health)  │  polling, transactions
//	└─────────────────────────────────────┘
//	           ↓ calls
//	┌─────────────────────────────────────┐
//	│             Hooks                   │  Init, Start, Stop,
//	│       (your business logic)         │  HealthCheck
//	└─────────────────────────────────────┘
//
// # Packages
//
// Core:
//   - lifecycle: service state machine and legal-transition table
//   - service: Supervisor, Hooks, Registry, events, transactions
//   - health: per-service status, aggregation, message sanitization
//   - errors: typed error taxonomy with kinds and severities
//
// Infrastructure:
//   - metric: Prometheus collaborator (state, durations, health, errors)
//   - config: YAML configuration with per-service records
//   - pkg/retry: exponential backoff for initialize and start hooks
//
// # Usage
//
// Register services with their dependencies, then drive them as a group:
//
//	registry := service.NewRegistry()
//	store := service.New("session-store", storeHooks,
//	    service.WithMetrics(metrics),
//	    service.WithHealthInterval(15*time.Second))
//	users := service.New("user-manager", userHooks)
//
//	registry.Register("session-store", store)
//	registry.Register("user-manager", users, "session-store")
//
//	if err := registry.InitializeAll(ctx); err != nil {
//	    return err // fail-fast: dependents never saw a broken world
//	}
//	registry.StartAll(ctx)
//	defer registry.StopAll(ctx) // reverse dependency order
//
// The cmd/tutorkit binary shows the full wiring including the HTTP health
// surface and Prometheus endpoint.
package tutorkit
