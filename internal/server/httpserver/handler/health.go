package handler

import (
	"net/http"
	"time"

	"github.com/RubioRobin/qr-ifc-viewer/internal/infra/buildinfo"
)

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Root handles GET / with service identification and an endpoint
// index.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"service": "qrifc-server",
		"version": buildinfo.Version,
		"endpoints": map[string]string{
			"health":       "/api/health",
			"createToken":  "POST /api/tokens",
			"resolveToken": "GET /api/tokens/{token}",
		},
	})
}
