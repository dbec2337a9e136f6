// Package domain defines the core domain models for the viewer token
// service.
package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Entity constraints.
const (
	MaxSlugLength = 128
	MaxNameLength = 256

	// ProjectIDPrefix is the prefix for project IDs.
	ProjectIDPrefix = "prj-"
)

// Project is a building/site namespace identified by a human-chosen
// slug. The slug is externally chosen, globally unique, and immutable.
// Projects are created administratively or auto-provisioned on first
// issuance, and are never deleted by this subsystem.
type Project struct {
	// ID is the opaque internal identifier.
	// Format: prj-{ulid_lowercase}, 30 characters total.
	ID string `json:"id"`

	// Slug is the unique, externally chosen identifier.
	Slug string `json:"slug"`

	// Name is the human-readable display name.
	Name string `json:"name"`

	// CreatedAt is the creation timestamp (Unix milliseconds).
	CreatedAt int64 `json:"created_at"`
}

// NewProject creates a new Project with a generated ID.
func NewProject(slug, name string) (*Project, error) {
	id, err := GenerateID(ProjectIDPrefix)
	if err != nil {
		return nil, err
	}

	return &Project{
		ID:        id,
		Slug:      slug,
		Name:      name,
		CreatedAt: time.Now().UnixMilli(),
	}, nil
}

// GenerateID generates a prefixed lowercase ULID identifier.
func GenerateID(prefix string) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", ErrInternalServer.WithCause(err)
	}
	return prefix + strings.ToLower(id.String()), nil
}

// Validate validates the project fields against constraints.
func (p *Project) Validate() error {
	var violations []string

	if p.Slug == "" {
		violations = append(violations, "slug is required")
	}
	if len(p.Slug) > MaxSlugLength {
		violations = append(violations, "slug exceeds 128 characters")
	}
	if p.Name == "" {
		violations = append(violations, "name is required")
	}
	if len(p.Name) > MaxNameLength {
		violations = append(violations, "name exceeds 256 characters")
	}

	if len(violations) > 0 {
		return ErrProjectValidation.WithDetails(strings.Join(violations, "; "))
	}
	return nil
}

// Clone creates a copy of the project.
func (p *Project) Clone() *Project {
	clone := *p
	return &clone
}

// CreatedAtTime returns CreatedAt as time.Time.
func (p *Project) CreatedAtTime() time.Time {
	return time.UnixMilli(p.CreatedAt)
}
