package health

import "time"

// Aggregated is the system-wide health verdict folded from every registered
// service's individual status. It is computed on demand and never cached:
// the counts and timestamp always reflect the moment of the call.
type Aggregated struct {
	Status    string            `json:"status"` // "healthy", "degraded", "unhealthy"
	Total     int               `json:"total"`
	Healthy   int               `json:"healthy"`
	Degraded  int               `json:"degraded"`
	Unhealthy int               `json:"unhealthy"`
	Services  map[string]Status `json:"services"`
	Timestamp time.Time         `json:"timestamp"`
}

// IsHealthy returns true if the overall status is healthy
func (a Aggregated) IsHealthy() bool {
	return a.Status == StateHealthy
}

// IsDegraded returns true if the overall status is degraded
func (a Aggregated) IsDegraded() bool {
	return a.Status == StateDegraded
}

// IsUnhealthy returns true if the overall status is unhealthy
func (a Aggregated) IsUnhealthy() bool {
	return a.Status == StateUnhealthy
}

// Aggregate folds a per-service status map into one system verdict.
// The rules are:
//   - unhealthy if any service is unhealthy
//   - otherwise degraded if any service is degraded
//   - otherwise healthy (including the empty map)
func Aggregate(statuses map[string]Status) Aggregated {
	agg := Aggregated{
		Total:     len(statuses),
		Services:  make(map[string]Status, len(statuses)),
		Timestamp: time.Now(),
	}

	for name, status := range statuses {
		agg.Services[name] = status
		switch {
		case status.IsUnhealthy():
			agg.Unhealthy++
		case status.IsDegraded():
			agg.Degraded++
		default:
			agg.Healthy++
		}
	}

	switch {
	case agg.Unhealthy > 0:
		agg.Status = StateUnhealthy
	case agg.Degraded > 0:
		agg.Status = StateDegraded
	default:
		agg.Status = StateHealthy
	}

	return agg
}
