// Package handler contains the HTTP handlers for the operational endpoints.
package handler

import (
	"net/http"
	"time"

	"github.com/skintools/empirescan/internal/domain"
)

// HealthHandler serves the liveness endpoint. It reports the session state but
// always answers 200 while the process runs: a reconnecting session is a
// degraded scanner, not a dead one, and restarting the process would only
// reset the backoff.
type HealthHandler struct {
	state func() domain.ConnectionState
}

// NewHealthHandler creates a HealthHandler reading the session state through
// state. A nil state (health-only mode, no session) reports "idle".
func NewHealthHandler(state func() domain.ConnectionState) *HealthHandler {
	return &HealthHandler{state: state}
}

// HealthCheck responds with liveness and the current session state.
// GET /health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	sessionState := "idle"
	if h.state != nil {
		sessionState = h.state().String()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"session_state": sessionState,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})
}
