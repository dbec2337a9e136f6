package handler

import (
	"encoding/json"
	"net/http"

	"github.com/RubioRobin/qr-ifc-viewer/internal/core/service"
	"github.com/RubioRobin/qr-ifc-viewer/internal/telemetry/logger"
)

// CreateTokenRequest is the POST /api/tokens request body.
type CreateTokenRequest struct {
	ProjectSlug  string `json:"projectSlug"`
	IFCGlobalID  string `json:"ifcGlobalId"`
	ModelVersion string `json:"modelVersion"`
	ExpiryDays   int    `json:"expiryDays"`
}

// CreateTokenResponse is the POST /api/tokens response body.
type CreateTokenResponse struct {
	ViewerURL string `json:"viewerUrl"`
	Token     string `json:"token"`
}

// CreateToken handles POST /api/tokens.
func (h *Handler) CreateToken(w http.ResponseWriter, r *http.Request) {
	var req CreateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.ProjectSlug == "" || req.IFCGlobalID == "" {
		h.writeError(w, r, http.StatusBadRequest,
			"Missing required fields: projectSlug and ifcGlobalId are required")
		return
	}

	tok, err := h.issuer.Issue(r.Context(), &service.IssueRequest{
		ProjectSlug:  req.ProjectSlug,
		IFCGlobalID:  req.IFCGlobalID,
		ModelVersion: req.ModelVersion,
		ExpiryDays:   req.ExpiryDays,
	})
	if err != nil {
		h.handleIssueError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, CreateTokenResponse{
		ViewerURL: h.viewerBaseURL + "/view/" + tok,
		Token:     tok,
	})
}

// ResolveToken handles GET /api/tokens/{token}. Unknown and expired
// tokens are indistinguishable to the caller.
func (h *Handler) ResolveToken(w http.ResponseWriter, r *http.Request) {
	tok := r.PathValue("token")

	view, err := h.issuer.Resolve(r.Context(), tok)
	if err != nil {
		logger.L(r.Context(), h.logger).Error("token resolution failed", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	if view == nil {
		h.writeError(w, r, http.StatusNotFound, "Token not found or expired")
		return
	}

	h.writeJSON(w, r, http.StatusOK, view)
}

// Preflight answers CORS preflight requests that reach the handler.
func (h *Handler) Preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
