// Package http provides the HTTP server and handlers for the resolver.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	// ready indicates if the server is ready to accept traffic.
	ready atomic.Bool
	check func(ctx context.Context) error
}

// NewHealthHandler creates a new HealthHandler. check, when non-nil, is run
// on every readiness probe.
func NewHealthHandler(check func(ctx context.Context) error) *HealthHandler {
	h := &HealthHandler{check: check}
	h.ready.Store(true)
	return h
}

// SetReady sets the readiness status.
func (h *HealthHandler) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Healthz handles the /healthz endpoint.
// Returns 200 OK if the server is alive.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Readyz handles the /readyz endpoint.
// Returns 200 OK if the key set currently resolves, 503 otherwise.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !h.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
		return
	}

	if h.check != nil {
		if err := h.check(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}
