// Package handler provides the HTTP request handlers for the viewer
// token API.
//
// Responses are plain JSON objects; errors carry a single "error"
// field with a caller-facing message. Internal entity identifiers
// never appear in any response.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/RubioRobin/qr-ifc-viewer/internal/core/domain"
	"github.com/RubioRobin/qr-ifc-viewer/internal/core/service"
	"github.com/RubioRobin/qr-ifc-viewer/internal/telemetry/logger"
)

// Handler holds the dependencies shared by all endpoints.
type Handler struct {
	issuer        *service.Issuer
	viewerBaseURL string
	logger        *slog.Logger
}

// New creates a new Handler.
func New(issuer *service.Issuer, viewerBaseURL string, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		issuer:        issuer,
		viewerBaseURL: strings.TrimRight(viewerBaseURL, "/"),
		logger:        log,
	}
}

// writeJSON writes a JSON response body.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.L(r.Context(), h.logger).Error("failed to encode response", "error", err)
	}
}

// writeError writes a plain error body: {"error": message}.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.writeJSON(w, r, status, map[string]string{"error": message})
}

// handleIssueError maps issuance failures to the wire contract:
// argument and validation problems are the caller's fault (400); an
// unresolvable model version surfaces its message verbatim on a 500,
// since the message names the project and version and is actionable
// for the minting client; everything else is an opaque 500.
func (h *Handler) handleIssueError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.GetErrorCode(err)
	switch {
	case strings.HasPrefix(code, "QV-ARG-"), strings.HasSuffix(code, "-4001"):
		h.writeError(w, r, http.StatusBadRequest, errorMessage(err))
	case domain.IsNotFound(err):
		h.writeError(w, r, http.StatusInternalServerError, errorMessage(err))
	default:
		logger.L(r.Context(), h.logger).Error("token issuance failed", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "Internal server error")
	}
}

// errorMessage extracts the caller-facing message from a domain error,
// preferring the detail text over the generic code message.
func errorMessage(err error) string {
	var de *domain.DomainError
	if errors.As(err, &de) {
		if de.Details != "" {
			return de.Details
		}
		return de.Message
	}
	return err.Error()
}
