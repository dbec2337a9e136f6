// Package service provides the domain services for the viewer token
// lifecycle.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/RubioRobin/qr-ifc-viewer/internal/core/domain"
	"github.com/RubioRobin/qr-ifc-viewer/internal/telemetry/metric"
	"github.com/RubioRobin/qr-ifc-viewer/pkg/token"
)

// Store defines the storage contract for the token lifecycle. Both
// physical backends implement it with identical logical behavior; the
// Issuer never observes which durability discipline backs it.
type Store interface {
	// CreateProject creates a new project.
	// Returns domain.ErrProjectConflict if the slug exists.
	CreateProject(ctx context.Context, slug, name string) (string, error)

	// GetProjectBySlug retrieves a project by its slug.
	// Returns domain.ErrProjectNotFound if absent.
	GetProjectBySlug(ctx context.Context, slug string) (*domain.Project, error)

	// CreateModelVersion creates a new model version.
	// Returns domain.ErrVersionConflict if (projectID, version) exists.
	CreateModelVersion(ctx context.Context, projectID, version, ifcFileURL string) (string, error)

	// GetModelVersion retrieves the exact labeled version of a project.
	// Returns domain.ErrVersionNotFound if absent.
	GetModelVersion(ctx context.Context, projectID, version string) (*domain.ModelVersion, error)

	// GetLatestModelVersion retrieves the most-recently-created version
	// of a project, ties broken by insertion order.
	// Returns domain.ErrVersionNotFound if the project has no versions.
	GetLatestModelVersion(ctx context.Context, projectID string) (*domain.ModelVersion, error)

	// CreateToken persists a new viewer token.
	// Returns domain.ErrTokenConflict if the token string exists.
	CreateToken(ctx context.Context, t *domain.ViewerToken) error

	// GetTokenData retrieves the denormalized token view in one read.
	// Returns domain.ErrTokenNotFound if absent; never partial data.
	GetTokenData(ctx context.Context, tok string) (*domain.TokenData, error)

	// DeleteExpiredTokens bulk removes all tokens with expires_at < now.
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int, error)

	// Close releases the underlying storage resources.
	Close() error
}

// Issuance policy defaults.
const (
	// DefaultExpiryDays is the default token validity in calendar days.
	DefaultExpiryDays = 90

	// maxMintAttempts bounds regeneration on token collision. The
	// entropy budget makes collision astronomically unlikely, but the
	// write path still has to absorb the store's conflict error.
	maxMintAttempts = 3
)

// Issuer handles token issuance and resolution.
type Issuer struct {
	store   Store
	logger  *slog.Logger
	metrics *metric.Registry
}

// NewIssuer creates a new Issuer.
func NewIssuer(store Store, logger *slog.Logger, metrics *metric.Registry) *Issuer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Issuer{
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

// IssueRequest contains parameters for token issuance.
type IssueRequest struct {
	ProjectSlug  string // Required
	IFCGlobalID  string // Required
	ModelVersion string // Optional, defaults to "latest"
	ExpiryDays   int    // Optional, defaults to 90 calendar days
}

// Issue mints a viewer token binding one model element to one model
// version.
//
// An unknown project slug silently provisions the project with the
// slug as its display name: first-touch issuance is deliberately
// low-friction. The provisioning is sticky even if the call later
// fails on version resolution. Model versions are never auto-created;
// a missing version is fatal to the call.
func (s *Issuer) Issue(ctx context.Context, req *IssueRequest) (string, error) {
	// 1. Validate required fields
	if req.ProjectSlug == "" {
		return "", domain.ErrMissingArgument.WithDetails("project_slug is required")
	}
	if req.IFCGlobalID == "" {
		return "", domain.ErrMissingArgument.WithDetails("ifc_global_id is required")
	}

	versionLabel := req.ModelVersion
	if versionLabel == "" {
		versionLabel = domain.LatestVersion
	}
	expiryDays := req.ExpiryDays
	if expiryDays <= 0 {
		expiryDays = DefaultExpiryDays
	}

	// 2. Resolve or provision the project
	project, err := s.resolveProject(ctx, req.ProjectSlug)
	if err != nil {
		return "", err
	}

	// 3. Resolve the model version
	version, err := s.resolveVersion(ctx, project, versionLabel)
	if err != nil {
		return "", err
	}

	// 4. Compute expiry in calendar days, not fixed 24h multiples, so
	// DST transitions behave consistently with the host clock.
	expiresAt := time.Now().AddDate(0, 0, expiryDays)

	// 5. Mint and persist, regenerating on the (astronomically rare)
	// token collision.
	tok, err := s.mint(ctx, project.ID, version.ID, req.IFCGlobalID, expiresAt)
	if err != nil {
		return "", err
	}

	if s.metrics != nil {
		s.metrics.TokensIssued.Inc()
	}
	s.logger.Info("viewer token issued",
		"project_slug", project.Slug,
		"model_version", version.Version,
		"expires_at", expiresAt.UTC().Format(time.RFC3339))

	return tok, nil
}

// resolveProject fetches the project by slug, creating it with the
// slug as display name when absent.
func (s *Issuer) resolveProject(ctx context.Context, slug string) (*domain.Project, error) {
	project, err := s.store.GetProjectBySlug(ctx, slug)
	if err == nil {
		return project, nil
	}
	if !domain.IsNotFound(err) {
		return nil, domain.ErrStorageError.WithCause(err)
	}

	if _, err := s.store.CreateProject(ctx, slug, slug); err != nil {
		// A concurrent issuance may have provisioned the project
		// between the lookup and the create; fetch the winner.
		if !domain.IsConflict(err) {
			return nil, domain.ErrStorageError.WithCause(err)
		}
	} else {
		s.logger.Info("project auto-provisioned", "project_slug", slug)
		if s.metrics != nil {
			s.metrics.ProjectsProvisioned.Inc()
		}
	}

	project, err = s.store.GetProjectBySlug(ctx, slug)
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	return project, nil
}

// resolveVersion resolves the "latest" sentinel or an exact label.
func (s *Issuer) resolveVersion(ctx context.Context, project *domain.Project, label string) (*domain.ModelVersion, error) {
	var (
		version *domain.ModelVersion
		err     error
	)
	if label == domain.LatestVersion {
		version, err = s.store.GetLatestModelVersion(ctx, project.ID)
	} else {
		version, err = s.store.GetModelVersion(ctx, project.ID, label)
	}
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.ErrVersionNotFound.WithDetails(
				fmt.Sprintf("model version '%s' not found for project '%s'", label, project.Slug),
			)
		}
		return nil, domain.ErrStorageError.WithCause(err)
	}
	return version, nil
}

// mint generates a token string and persists the row, retrying a small
// bounded number of times on collision.
func (s *Issuer) mint(ctx context.Context, projectID, versionID, globalID string, expiresAt time.Time) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxMintAttempts; attempt++ {
		tok, err := token.Generate()
		if err != nil {
			return "", domain.ErrInternalServer.WithCause(err)
		}

		row := &domain.ViewerToken{
			Token:          tok,
			ProjectID:      projectID,
			ModelVersionID: versionID,
			IFCGlobalID:    globalID,
			ExpiresAt:      expiresAt.UnixMilli(),
			CreatedAt:      time.Now().UnixMilli(),
		}
		if err := row.Validate(); err != nil {
			return "", err
		}

		err = s.store.CreateToken(ctx, row)
		if err == nil {
			return tok, nil
		}
		if !domain.IsConflict(err) {
			return "", domain.ErrStorageError.WithCause(err)
		}

		s.logger.Warn("token collision, regenerating", "attempt", attempt+1)
		lastErr = err
	}
	return "", domain.ErrTokenConflict.WithDetails(
		fmt.Sprintf("exhausted %d mint attempts", maxMintAttempts)).WithCause(lastErr)
}

// ResolvedView is the caller-facing shape of a resolved token. It
// exposes no internal identifiers.
type ResolvedView struct {
	ProjectSlug  string    `json:"projectSlug"`
	ProjectName  string    `json:"projectName"`
	ModelVersion string    `json:"modelVersion"`
	IFCFileURL   string    `json:"ifcFileUrl"`
	IFCGlobalID  string    `json:"ifcGlobalId"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Resolve looks up a token and returns its denormalized view, or nil
// when the token is unknown or no longer live.
//
// Liveness is re-evaluated here on every call: an expired-but-not-yet-
// swept row is indistinguishable from a deleted one. Sweep cadence
// never affects correctness.
func (s *Issuer) Resolve(ctx context.Context, tok string) (*ResolvedView, error) {
	if tok == "" {
		return nil, nil
	}

	data, err := s.store.GetTokenData(ctx, tok)
	if err != nil {
		if domain.IsNotFound(err) {
			if s.metrics != nil {
				s.metrics.TokensResolved.WithLabelValues(metric.ResolveMiss).Inc()
			}
			return nil, nil
		}
		return nil, domain.ErrStorageError.WithCause(err)
	}

	if !data.IsLive(time.Now()) {
		if s.metrics != nil {
			s.metrics.TokensResolved.WithLabelValues(metric.ResolveExpired).Inc()
		}
		return nil, nil
	}

	if s.metrics != nil {
		s.metrics.TokensResolved.WithLabelValues(metric.ResolveOK).Inc()
	}
	return &ResolvedView{
		ProjectSlug:  data.ProjectSlug,
		ProjectName:  data.ProjectName,
		ModelVersion: data.Version,
		IFCFileURL:   data.IFCFileURL,
		IFCGlobalID:  data.IFCGlobalID,
		ExpiresAt:    time.UnixMilli(data.ExpiresAt),
	}, nil
}

// Sweep bulk deletes tokens whose expiry is before now. It is used by
// the background sweeper and the admin tool, never by the request path.
func (s *Issuer) Sweep(ctx context.Context, now time.Time) (int, error) {
	count, err := s.store.DeleteExpiredTokens(ctx, now)
	if err != nil {
		return 0, domain.ErrStorageError.WithCause(err)
	}
	if s.metrics != nil && count > 0 {
		s.metrics.TokensSwept.Add(float64(count))
	}
	return count, nil
}
