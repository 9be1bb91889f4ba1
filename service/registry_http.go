package service

import (
	"encoding/json"
	"net/http"

	"github.com/usorama/tutorkit/lifecycle"
)

// HTTPHandler returns a mux exposing the registry's health and inventory
// endpoints:
//
//	GET /health    aggregated system health (503 when unhealthy)
//	GET /healthz   liveness probe
//	GET /readyz    readiness probe (all enabled services active)
//	GET /services  registered service inventory
func (r *Registry) HTTPHandler() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", r.handleSystemHealth)
	mux.HandleFunc("/healthz", r.handleLiveness)
	mux.HandleFunc("/readyz", r.handleReadiness)
	mux.HandleFunc("/services", r.handleServiceList)
	return mux
}

// handleSystemHealth returns aggregated system health
func (r *Registry) handleSystemHealth(w http.ResponseWriter, req *http.Request) {
	aggregated := r.AggregatedHealth(req.Context())

	w.Header().Set("Content-Type", "application/json")
	if aggregated.IsUnhealthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(aggregated); err != nil {
		r.logger.Error("failed to encode system health response", "error", err)
	}
}

// handleLiveness is a simple liveness probe
func (r *Registry) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReadiness checks whether every enabled service is active
func (r *Registry) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	r.mu.RLock()
	ready := true
	for _, svc := range r.services {
		if !svc.Enabled() {
			continue
		}
		if svc.State() != lifecycle.StateActive {
			ready = false
			break
		}
	}
	r.mu.RUnlock()

	if ready {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("NOT READY"))
	}
}

// handleServiceList returns the registered service inventory in
// initialization order
func (r *Registry) handleServiceList(w http.ResponseWriter, _ *http.Request) {
	r.mu.RLock()
	services := make([]map[string]any, 0, len(r.order))
	for _, name := range r.order {
		svc := r.services[name]
		services = append(services, map[string]any{
			"name":         name,
			"state":        svc.State().String(),
			"enabled":      svc.Enabled(),
			"dependencies": r.deps[name],
		})
	}
	r.mu.RUnlock()

	response := map[string]any{
		"services": services,
		"count":    len(services),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		r.logger.Error("failed to encode services list", "error", err)
	}
}
