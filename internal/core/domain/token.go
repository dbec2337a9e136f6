// Package domain defines the core domain models for the viewer token
// service.
package domain

import (
	"strings"
	"time"
)

// Viewer token constraints.
const (
	// MinTokenLength is the minimum accepted token string length.
	// 22 Base64 RawURL characters encode 128 bits of entropy.
	MinTokenLength = 22

	MaxTokenLength    = 128
	MaxGlobalIDLength = 64
)

// ViewerToken is a short-lived capability binding one model element
// (an IFC GlobalId) to one model version. The token string is the
// primary key: opaque, globally unique, and unguessable. Tokens are
// created on issuance, never mutated, and deleted only by the expiry
// sweep. Logical expiry is independent of physical deletion: a token
// becomes unusable at ExpiresAt even if the row survives until the
// next sweep.
type ViewerToken struct {
	// Token is the opaque, unique, unguessable token string.
	Token string `json:"token"`

	// ProjectID references the owning Project.
	ProjectID string `json:"project_id"`

	// ModelVersionID references the bound ModelVersion.
	ModelVersionID string `json:"model_version_id"`

	// IFCGlobalID identifies the element inside the model.
	IFCGlobalID string `json:"ifc_global_id"`

	// ExpiresAt is the absolute expiry timestamp (Unix milliseconds).
	ExpiresAt int64 `json:"expires_at"`

	// CreatedAt is the creation timestamp (Unix milliseconds).
	CreatedAt int64 `json:"created_at"`
}

// IsLive reports whether the token is live at the given instant.
// A token is live iff ExpiresAt is strictly in the future.
func (t *ViewerToken) IsLive(now time.Time) bool {
	return t.ExpiresAt > now.UnixMilli()
}

// Validate validates the token fields against constraints.
func (t *ViewerToken) Validate() error {
	var violations []string

	if t.Token == "" {
		violations = append(violations, "token is required")
	} else if len(t.Token) < MinTokenLength {
		violations = append(violations, "token shorter than 22 characters")
	} else if len(t.Token) > MaxTokenLength {
		violations = append(violations, "token exceeds 128 characters")
	}
	if t.ProjectID == "" {
		violations = append(violations, "project_id is required")
	}
	if t.ModelVersionID == "" {
		violations = append(violations, "model_version_id is required")
	}
	if t.IFCGlobalID == "" {
		violations = append(violations, "ifc_global_id is required")
	}
	if len(t.IFCGlobalID) > MaxGlobalIDLength {
		violations = append(violations, "ifc_global_id exceeds 64 characters")
	}
	if t.ExpiresAt <= 0 {
		violations = append(violations, "expires_at is required")
	}

	if len(violations) > 0 {
		return ErrTokenValidation.WithDetails(strings.Join(violations, "; "))
	}
	return nil
}

// Clone creates a copy of the token.
func (t *ViewerToken) Clone() *ViewerToken {
	clone := *t
	return &clone
}

// ExpiresAtTime returns ExpiresAt as time.Time.
func (t *ViewerToken) ExpiresAtTime() time.Time {
	return time.UnixMilli(t.ExpiresAt)
}

// CreatedAtTime returns CreatedAt as time.Time.
func (t *ViewerToken) CreatedAtTime() time.Time {
	return time.UnixMilli(t.CreatedAt)
}

// TokenData is the denormalized join of a ViewerToken with its parent
// Project and ModelVersion rows. It is the storage engine's signature
// read: a reader always observes either the complete flat record or
// nothing, never a token without its parents.
type TokenData struct {
	Token       string
	ProjectSlug string
	ProjectName string
	Version     string
	IFCFileURL  string
	IFCGlobalID string
	ExpiresAt   int64
}

// IsLive reports whether the joined token is live at the given instant.
func (d *TokenData) IsLive(now time.Time) bool {
	return d.ExpiresAt > now.UnixMilli()
}
