package handlers

import (
	"net/http"

	"looprender/internal/httpkit"
)

// Health answers liveness probes. Always open, never authenticated.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	httpkit.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
