// Package domain defines the core domain models for the viewer token
// service.
package domain

import (
	"strings"
	"time"
)

// Model version constraints.
const (
	MaxVersionLength = 128
	MaxFileURLLength = 2048

	// VersionIDPrefix is the prefix for model version IDs.
	VersionIDPrefix = "ver-"

	// LatestVersion is the sentinel label that resolves to the
	// most-recently-created version of a project.
	LatestVersion = "latest"
)

// ModelVersion is one dated snapshot of a building model's geometry
// file, scoped to a Project. The (ProjectID, Version) pair is unique.
// Model versions are immutable once created.
type ModelVersion struct {
	// ID is the opaque internal identifier.
	// Format: ver-{ulid_lowercase}, 30 characters total.
	ID string `json:"id"`

	// ProjectID references the owning Project.
	ProjectID string `json:"project_id"`

	// Version is the string label, unique within the project.
	Version string `json:"version"`

	// IFCFileURL points to the externally hosted model artifact.
	IFCFileURL string `json:"ifc_file_url"`

	// CreatedAt is the creation timestamp (Unix milliseconds).
	CreatedAt int64 `json:"created_at"`

	// Seq is the store-assigned insertion sequence. It breaks ties
	// between versions whose creation timestamps share a resolution
	// granularity: the last inserted wins.
	Seq uint64 `json:"seq"`
}

// NewModelVersion creates a new ModelVersion with a generated ID.
// The insertion sequence is assigned by the store at write time.
func NewModelVersion(projectID, version, ifcFileURL string) (*ModelVersion, error) {
	id, err := GenerateID(VersionIDPrefix)
	if err != nil {
		return nil, err
	}

	return &ModelVersion{
		ID:         id,
		ProjectID:  projectID,
		Version:    version,
		IFCFileURL: ifcFileURL,
		CreatedAt:  time.Now().UnixMilli(),
	}, nil
}

// Newer reports whether v was created after other. Creation timestamps
// are compared first; equal timestamps fall back to the insertion
// sequence.
func (v *ModelVersion) Newer(other *ModelVersion) bool {
	if v.CreatedAt != other.CreatedAt {
		return v.CreatedAt > other.CreatedAt
	}
	return v.Seq > other.Seq
}

// Validate validates the model version fields against constraints.
func (v *ModelVersion) Validate() error {
	var violations []string

	if v.ProjectID == "" {
		violations = append(violations, "project_id is required")
	}
	if v.Version == "" {
		violations = append(violations, "version is required")
	}
	if v.Version == LatestVersion {
		violations = append(violations, `version label "latest" is reserved`)
	}
	if len(v.Version) > MaxVersionLength {
		violations = append(violations, "version exceeds 128 characters")
	}
	if v.IFCFileURL == "" {
		violations = append(violations, "ifc_file_url is required")
	}
	if len(v.IFCFileURL) > MaxFileURLLength {
		violations = append(violations, "ifc_file_url exceeds 2048 characters")
	}

	if len(violations) > 0 {
		return ErrVersionValidation.WithDetails(strings.Join(violations, "; "))
	}
	return nil
}

// Clone creates a copy of the model version.
func (v *ModelVersion) Clone() *ModelVersion {
	clone := *v
	return &clone
}

// CreatedAtTime returns CreatedAt as time.Time.
func (v *ModelVersion) CreatedAtTime() time.Time {
	return time.UnixMilli(v.CreatedAt)
}
