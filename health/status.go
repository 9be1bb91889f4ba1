// Package health provides health status reporting and aggregation for
// supervised services
package health

import (
	"regexp"
	"strings"
	"time"
)

// Health state values for Status.State
const (
	StateHealthy   = "healthy"
	StateDegraded  = "degraded"
	StateUnhealthy = "unhealthy"
)

// Pre-compiled regexes for error message sanitization
var (
	httpURLRegex    = regexp.MustCompile(`https?://[^\s]+`)
	wsURLRegex      = regexp.MustCompile(`wss?://[^\s]+`)
	unixPathRegex   = regexp.MustCompile(`/[a-zA-Z0-9/_.-]+`)
	ipAddrRegex     = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	portRegex       = regexp.MustCompile(`:\d{2,5}\b`)
	credentialRegex = regexp.MustCompile(`(?i)(password|token|key|secret|credential)[^a-zA-Z]*[:=][^,\s}]+`)
)

// Status represents the health of one supervised service at a point in time
type Status struct {
	Service   string    `json:"service"`
	Healthy   bool      `json:"healthy"`
	State     string    `json:"state"` // "healthy", "degraded", "unhealthy"
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Metrics   *Metrics  `json:"metrics,omitempty"`
}

// Metrics contains health-related runtime metrics for a service
type Metrics struct {
	Uptime             time.Duration `json:"uptime"`
	HealthChecks       int64         `json:"health_checks"`
	FailedHealthChecks int64         `json:"failed_health_checks"`
	LastActivity       time.Time     `json:"last_activity,omitempty"`
}

// IsHealthy returns true if the status is healthy
func (s Status) IsHealthy() bool {
	return s.State == StateHealthy
}

// IsDegraded returns true if the status is degraded
func (s Status) IsDegraded() bool {
	return s.State == StateDegraded
}

// IsUnhealthy returns true if the status is unhealthy
func (s Status) IsUnhealthy() bool {
	return s.State == StateUnhealthy
}

// WithMetrics returns a copy of the status with metrics attached
func (s Status) WithMetrics(metrics *Metrics) Status {
	s.Metrics = metrics
	return s
}

// NewHealthy creates a new healthy status
func NewHealthy(service, message string) Status {
	return Status{
		Service:   service,
		Healthy:   true,
		State:     StateHealthy,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewDegraded creates a new degraded status
func NewDegraded(service, message string) Status {
	return Status{
		Service:   service,
		Healthy:   false,
		State:     StateDegraded,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewUnhealthy creates a new unhealthy status
func NewUnhealthy(service, message string) Status {
	return Status{
		Service:   service,
		Healthy:   false,
		State:     StateUnhealthy,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// FromError converts a health-check error into an unhealthy status. The
// error message is sanitized before being embedded so that connection
// strings and credentials never leak into health output. A nil error maps
// to a healthy status.
func FromError(service string, err error) Status {
	if err == nil {
		return NewHealthy(service, "Service operating normally")
	}
	return NewUnhealthy(service, SanitizeMessage(err.Error()))
}

// SanitizeMessage removes potentially sensitive information from a message
// before it is exposed through health output.
//
// Sanitization patterns:
//   - URLs (http://, https://, ws://, wss://) -> [URL]
//   - Unix file paths -> [PATH]
//   - IP addresses -> [IP]
//   - Port numbers (:8080) -> [PORT]
//   - Credentials (password=X, token=X, key=X, secret=X) -> [REDACTED]
func SanitizeMessage(msg string) string {
	if msg == "" {
		return ""
	}

	sanitized := msg

	// URLs first, they contain paths
	sanitized = httpURLRegex.ReplaceAllString(sanitized, "[URL]")
	sanitized = wsURLRegex.ReplaceAllString(sanitized, "[URL]")
	sanitized = unixPathRegex.ReplaceAllString(sanitized, "[PATH]")
	sanitized = ipAddrRegex.ReplaceAllString(sanitized, "[IP]")
	sanitized = portRegex.ReplaceAllString(sanitized, "[PORT]")

	lower := strings.ToLower(sanitized)
	if strings.Contains(lower, "password") || strings.Contains(lower, "token") ||
		strings.Contains(lower, "key") || strings.Contains(lower, "secret") ||
		strings.Contains(lower, "credential") {
		sanitized = credentialRegex.ReplaceAllString(sanitized, "[REDACTED]")
	}

	return sanitized
}
