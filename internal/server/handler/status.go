package handler

import (
	"net/http"

	"github.com/skintools/empirescan/internal/scanner"
)

// StatusHandler serves the pipeline counter snapshot.
type StatusHandler struct {
	status func() scanner.Status
}

// NewStatusHandler creates a StatusHandler reading snapshots through status.
func NewStatusHandler(status func() scanner.Status) *StatusHandler {
	return &StatusHandler{status: status}
}

// GetStatus responds with the current pipeline counters.
// GET /status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if h.status == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "scanner not running"})
		return
	}
	writeJSON(w, http.StatusOK, h.status())
}
