// Package domain defines the core domain models for the viewer token
// service.
package domain

import (
	"strings"
	"testing"
	"time"
)

func validToken() *ViewerToken {
	now := time.Now()
	return &ViewerToken{
		Token:          "hC9hFTn0RlYvcqk2XIs1Mz5fdoE",
		ProjectID:      "prj-01hqv3x7r8k9m2n4p6q8s0t1u3",
		ModelVersionID: "ver-01hqv3x7r8k9m2n4p6q8s0t1u4",
		IFCGlobalID:    "2N6fP$0vX5kNm_g2XqWcCp",
		ExpiresAt:      now.Add(time.Hour).UnixMilli(),
		CreatedAt:      now.UnixMilli(),
	}
}

// TestViewerToken_IsLive tests the strict liveness boundary.
func TestViewerToken_IsLive(t *testing.T) {
	now := time.Now()

	t.Run("future expiry is live", func(t *testing.T) {
		tok := validToken()
		tok.ExpiresAt = now.Add(time.Minute).UnixMilli()
		if !tok.IsLive(now) {
			t.Error("token expiring in the future should be live")
		}
	})

	t.Run("past expiry is not live", func(t *testing.T) {
		tok := validToken()
		tok.ExpiresAt = now.Add(-time.Minute).UnixMilli()
		if tok.IsLive(now) {
			t.Error("expired token should not be live")
		}
	})

	t.Run("expiry exactly now is not live", func(t *testing.T) {
		tok := validToken()
		tok.ExpiresAt = now.UnixMilli()
		if tok.IsLive(now) {
			t.Error("liveness requires expires_at strictly in the future")
		}
	})
}

// TestViewerToken_Validate tests field constraints.
func TestViewerToken_Validate(t *testing.T) {
	t.Run("valid token passes", func(t *testing.T) {
		if err := validToken().Validate(); err != nil {
			t.Errorf("Validate failed: %v", err)
		}
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		mutations := map[string]func(*ViewerToken){
			"token":            func(v *ViewerToken) { v.Token = "" },
			"project_id":       func(v *ViewerToken) { v.ProjectID = "" },
			"model_version_id": func(v *ViewerToken) { v.ModelVersionID = "" },
			"ifc_global_id":    func(v *ViewerToken) { v.IFCGlobalID = "" },
			"expires_at":       func(v *ViewerToken) { v.ExpiresAt = 0 },
		}

		for field, mutate := range mutations {
			tok := validToken()
			mutate(tok)
			err := tok.Validate()
			if err == nil {
				t.Errorf("Validate should fail with missing %s", field)
				continue
			}
			if !IsDomainError(err, "QV-TOKN-4001") {
				t.Errorf("Validate error code = %s, want QV-TOKN-4001", GetErrorCode(err))
			}
		}
	})

	t.Run("short token rejected", func(t *testing.T) {
		tok := validToken()
		tok.Token = "short"
		if err := tok.Validate(); err == nil {
			t.Error("Validate should reject token below minimum length")
		}
	})

	t.Run("oversized global id rejected", func(t *testing.T) {
		tok := validToken()
		tok.IFCGlobalID = strings.Repeat("x", MaxGlobalIDLength+1)
		if err := tok.Validate(); err == nil {
			t.Error("Validate should reject oversized ifc_global_id")
		}
	})
}

// TestViewerToken_Clone tests deep copy independence.
func TestViewerToken_Clone(t *testing.T) {
	tok := validToken()
	clone := tok.Clone()
	clone.IFCGlobalID = "other"

	if tok.IFCGlobalID == "other" {
		t.Error("mutating the clone should not affect the original")
	}
}

// TestTokenData_IsLive tests liveness on the denormalized view.
func TestTokenData_IsLive(t *testing.T) {
	now := time.Now()
	data := &TokenData{ExpiresAt: now.Add(-time.Second).UnixMilli()}
	if data.IsLive(now) {
		t.Error("expired token data should not be live")
	}

	data.ExpiresAt = now.Add(time.Second).UnixMilli()
	if !data.IsLive(now) {
		t.Error("future token data should be live")
	}
}
