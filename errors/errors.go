// Package errors provides the standardized error taxonomy for the service
// supervision framework. Every error produced by the supervisor or registry
// carries the originating service name, a kind from a closed taxonomy, a
// severity, and, where applicable, the wrapped original cause.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a supervision error. The set is closed: callers switch on
// kinds rather than matching error strings.
type Kind string

// Supervision error kinds
const (
	KindInitializationFailed   Kind = "initialization_failed"
	KindStartFailed            Kind = "start_failed"
	KindStopFailed             Kind = "stop_failed"
	KindInvalidStateTransition Kind = "invalid_state_transition"
	KindDependencyMissing      Kind = "dependency_missing"
	KindHealthCheckFailed      Kind = "health_check_failed"
	KindTransactionFailed      Kind = "transaction_failed"
	KindServiceNotFound        Kind = "service_not_found"
	KindDuplicateRegistration  Kind = "duplicate_registration"
)

// Severity indicates how serious an error is for operators
type Severity int

// Severity levels, ordered from least to most serious
const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the string representation of Severity
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ServiceError is the concrete error type for all supervision failures
type ServiceError struct {
	Kind     Kind
	Service  string
	Severity Severity
	Message  string
	Err      error
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Service, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Service, msg)
}

// Unwrap returns the wrapped cause
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// New creates a ServiceError with explicit kind and severity. Prefer the
// kind-specific constructors below; they pick the conventional severity.
func New(kind Kind, service string, severity Severity, message string, cause error) *ServiceError {
	return &ServiceError{
		Kind:     kind,
		Service:  service,
		Severity: severity,
		Message:  message,
		Err:      cause,
	}
}

// NewInitializationFailed wraps a failed initialize hook
func NewInitializationFailed(service string, cause error) *ServiceError {
	return New(KindInitializationFailed, service, SeverityHigh, "initialization failed", cause)
}

// NewStartFailed wraps a failed start hook
func NewStartFailed(service string, cause error) *ServiceError {
	return New(KindStartFailed, service, SeverityHigh, "start failed", cause)
}

// NewStopFailed wraps a failed stop hook
func NewStopFailed(service string, cause error) *ServiceError {
	return New(KindStopFailed, service, SeverityHigh, "stop failed", cause)
}

// NewInvalidStateTransition wraps a rejected lifecycle transition
func NewInvalidStateTransition(service string, cause error) *ServiceError {
	return New(KindInvalidStateTransition, service, SeverityLow, "invalid state transition", cause)
}

// NewDependencyMissing reports a registration whose dependency is not registered
func NewDependencyMissing(service, dependency string) *ServiceError {
	return New(KindDependencyMissing, service, SeverityMedium,
		fmt.Sprintf("dependency %q is not registered", dependency), nil)
}

// NewHealthCheckFailed wraps a failed health-check hook
func NewHealthCheckFailed(service string, cause error) *ServiceError {
	return New(KindHealthCheckFailed, service, SeverityMedium, "health check failed", cause)
}

// NewTransactionFailed wraps a rolled-back transaction, naming the transaction id
func NewTransactionFailed(service, txID string, cause error) *ServiceError {
	return New(KindTransactionFailed, service, SeverityMedium,
		fmt.Sprintf("transaction %s failed", txID), cause)
}

// NewServiceNotFound reports a lookup of an unregistered service
func NewServiceNotFound(service string) *ServiceError {
	return New(KindServiceNotFound, service, SeverityLow, "service not registered", nil)
}

// NewDuplicateRegistration reports a second registration under an existing name
func NewDuplicateRegistration(service string) *ServiceError {
	return New(KindDuplicateRegistration, service, SeverityLow, "service already registered", nil)
}

// KindOf returns the kind of a supervision error, or false if err does not
// carry one anywhere in its chain.
func KindOf(err error) (Kind, bool) {
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// SeverityOf returns the severity of a supervision error, defaulting to
// SeverityLow for errors outside the taxonomy.
func SeverityOf(err error) Severity {
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se.Severity
	}
	return SeverityLow
}

// Is provides compatibility with the standard errors package
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As provides compatibility with the standard errors package
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
