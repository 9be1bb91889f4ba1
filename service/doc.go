// Package service provides supervised lifecycle management for long-running
// application services.
//
// A Supervisor wraps a Hooks implementation and drives it through the
// lifecycle state machine: Initialize, Start, Stop, and periodic Health
// checks, with structured logging, Prometheus metrics, retry on
// initialization, and typed lifecycle events.
//
// A Registry holds named services with declared dependencies and runs bulk
// lifecycle operations in dependency order: fail-fast InitializeAll,
// best-effort StartAll, and reverse-order best-effort StopAll. It also
// exposes health and inventory endpoints via HTTPHandler.
//
// InTransaction brackets multi-step state changes with an operation log
// that is committed on success and rolled back on error or panic.
package service
