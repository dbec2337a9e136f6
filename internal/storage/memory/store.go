package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/RubioRobin/qr-ifc-viewer/internal/core/domain"
	"github.com/RubioRobin/qr-ifc-viewer/internal/storage/snapshot"
)

// versionKey builds the uniqueness key for a (project, label) pair.
// NUL never appears in IDs or labels.
func versionKey(projectID, version string) string {
	return projectID + "\x00" + version
}

// Config configures the memory backend.
type Config struct {
	// Dir is the snapshot directory.
	Dir string

	// SnapshotKeep bounds the retained snapshot generations.
	SnapshotKeep int

	// Passphrase enables snapshot encryption when non-empty.
	Passphrase []byte

	Logger *slog.Logger
}

// Store is the embedded backend. All entity maps sit behind one
// RWMutex; every mutating call re-serializes the full dataset to a
// fresh snapshot before its write lock is released, so the newest
// on-disk generation always reflects the last acknowledged write.
type Store struct {
	mu sync.RWMutex

	projects     map[string]*domain.Project      // by ID
	projectSlugs map[string]string               // slug -> ID
	versions     map[string]*domain.ModelVersion // by ID
	versionKeys  map[string]string               // (projectID, label) -> ID
	byProject    map[string][]string             // projectID -> version IDs
	tokens       map[string]*domain.ViewerToken  // by token string

	verSeq uint64

	snaps  *snapshot.Manager
	logger *slog.Logger
}

// Open loads the newest valid snapshot (if any) and returns a ready
// store.
func Open(cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	snapCfg := snapshot.DefaultConfig(cfg.Dir)
	if cfg.SnapshotKeep > 0 {
		snapCfg.RetentionCount = cfg.SnapshotKeep
	}
	snapCfg.Passphrase = cfg.Passphrase

	mgr, err := snapshot.NewManager(snapCfg)
	if err != nil {
		return nil, err
	}

	s := &Store{
		projects:     make(map[string]*domain.Project),
		projectSlugs: make(map[string]string),
		versions:     make(map[string]*domain.ModelVersion),
		versionKeys:  make(map[string]string),
		byProject:    make(map[string][]string),
		tokens:       make(map[string]*domain.ViewerToken),
		snaps:        mgr,
		logger:       logger,
	}

	state, info, err := mgr.Load()
	if err != nil {
		if errors.Is(err, snapshot.ErrNoSnapshots) {
			return s, nil
		}
		return nil, fmt.Errorf("memory: load snapshot: %w", err)
	}

	for _, p := range state.Projects {
		s.projects[p.ID] = p
		s.projectSlugs[p.Slug] = p.ID
	}
	for _, v := range state.Versions {
		s.versions[v.ID] = v
		s.versionKeys[versionKey(v.ProjectID, v.Version)] = v.ID
		s.byProject[v.ProjectID] = append(s.byProject[v.ProjectID], v.ID)
	}
	for _, t := range state.Tokens {
		s.tokens[t.Token] = t
	}
	s.verSeq = state.VersionSeq

	logger.Info("snapshot restored",
		"snapshot_id", info.ID,
		"projects", len(s.projects),
		"versions", len(s.versions),
		"tokens", len(s.tokens))
	return s, nil
}

// flush serializes the current dataset to a new snapshot generation.
// Callers hold the write lock.
func (s *Store) flush() error {
	state := &snapshot.State{
		Projects:   make([]*domain.Project, 0, len(s.projects)),
		Versions:   make([]*domain.ModelVersion, 0, len(s.versions)),
		Tokens:     make([]*domain.ViewerToken, 0, len(s.tokens)),
		VersionSeq: s.verSeq,
	}
	for _, p := range s.projects {
		state.Projects = append(state.Projects, p)
	}
	for _, v := range s.versions {
		state.Versions = append(state.Versions, v)
	}
	for _, t := range s.tokens {
		state.Tokens = append(state.Tokens, t)
	}

	if _, err := s.snaps.Create(state); err != nil {
		return err
	}
	if err := s.snaps.Prune(); err != nil {
		s.logger.Warn("snapshot prune failed", "error", err)
	}
	return nil
}

// CreateProject creates a project. On flush failure the in-memory
// insert is rolled back so memory never runs ahead of disk.
func (s *Store) CreateProject(ctx context.Context, slug, name string) (string, error) {
	p, err := domain.NewProject(slug, name)
	if err != nil {
		return "", err
	}
	if err := p.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projectSlugs[slug]; ok {
		return "", domain.ErrProjectConflict.WithDetails(fmt.Sprintf("slug '%s' already exists", slug))
	}

	s.projects[p.ID] = p
	s.projectSlugs[p.Slug] = p.ID
	if err := s.flush(); err != nil {
		delete(s.projects, p.ID)
		delete(s.projectSlugs, p.Slug)
		return "", domain.ErrStorageError.WithCause(err)
	}
	return p.ID, nil
}

// GetProjectBySlug retrieves a project by slug.
func (s *Store) GetProjectBySlug(ctx context.Context, slug string) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.projectSlugs[slug]
	if !ok {
		return nil, domain.ErrProjectNotFound.WithDetails(fmt.Sprintf("slug '%s'", slug))
	}
	return s.projects[id].Clone(), nil
}

// CreateModelVersion creates a model version under a project.
func (s *Store) CreateModelVersion(ctx context.Context, projectID, version, ifcFileURL string) (string, error) {
	v, err := domain.NewModelVersion(projectID, version, ifcFileURL)
	if err != nil {
		return "", err
	}
	if err := v.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[projectID]; !ok {
		return "", domain.ErrProjectNotFound.WithDetails(fmt.Sprintf("id '%s'", projectID))
	}
	key := versionKey(projectID, version)
	if _, ok := s.versionKeys[key]; ok {
		return "", domain.ErrVersionConflict.WithDetails(
			fmt.Sprintf("version '%s' already exists for project '%s'", version, projectID))
	}

	s.verSeq++
	v.Seq = s.verSeq

	s.versions[v.ID] = v
	s.versionKeys[key] = v.ID
	s.byProject[projectID] = append(s.byProject[projectID], v.ID)
	if err := s.flush(); err != nil {
		s.verSeq--
		delete(s.versions, v.ID)
		delete(s.versionKeys, key)
		ids := s.byProject[projectID]
		s.byProject[projectID] = ids[:len(ids)-1]
		return "", domain.ErrStorageError.WithCause(err)
	}
	return v.ID, nil
}

// GetModelVersion retrieves the exact labeled version of a project.
func (s *Store) GetModelVersion(ctx context.Context, projectID, version string) (*domain.ModelVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.versionKeys[versionKey(projectID, version)]
	if !ok {
		return nil, domain.ErrVersionNotFound.WithDetails(
			fmt.Sprintf("version '%s' for project '%s'", version, projectID))
	}
	return s.versions[id].Clone(), nil
}

// GetLatestModelVersion retrieves the most-recently-created version of
// a project, insertion order breaking timestamp ties.
func (s *Store) GetLatestModelVersion(ctx context.Context, projectID string) (*domain.ModelVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.ModelVersion
	for _, id := range s.byProject[projectID] {
		v := s.versions[id]
		if latest == nil || v.Newer(latest) {
			latest = v
		}
	}
	if latest == nil {
		return nil, domain.ErrVersionNotFound.WithDetails(
			fmt.Sprintf("project '%s' has no versions", projectID))
	}
	return latest.Clone(), nil
}

// CreateToken persists a viewer token.
func (s *Store) CreateToken(ctx context.Context, t *domain.ViewerToken) error {
	if err := t.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[t.Token]; ok {
		return domain.ErrTokenConflict
	}
	if _, ok := s.projects[t.ProjectID]; !ok {
		return domain.ErrProjectNotFound.WithDetails(fmt.Sprintf("id '%s'", t.ProjectID))
	}
	if _, ok := s.versions[t.ModelVersionID]; !ok {
		return domain.ErrVersionNotFound.WithDetails(fmt.Sprintf("id '%s'", t.ModelVersionID))
	}

	row := t.Clone()
	s.tokens[row.Token] = row
	if err := s.flush(); err != nil {
		delete(s.tokens, row.Token)
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}

// GetTokenData retrieves the denormalized token view under one read
// lock, so the join is always internally consistent.
func (s *Store) GetTokenData(ctx context.Context, tok string) (*domain.TokenData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tokens[tok]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	p, ok := s.projects[t.ProjectID]
	if !ok {
		return nil, domain.ErrStorageError.WithDetails(
			fmt.Sprintf("token references missing project '%s'", t.ProjectID))
	}
	v, ok := s.versions[t.ModelVersionID]
	if !ok {
		return nil, domain.ErrStorageError.WithDetails(
			fmt.Sprintf("token references missing version '%s'", t.ModelVersionID))
	}

	return &domain.TokenData{
		Token:       t.Token,
		ProjectSlug: p.Slug,
		ProjectName: p.Name,
		Version:     v.Version,
		IFCFileURL:  v.IFCFileURL,
		IFCGlobalID: t.IFCGlobalID,
		ExpiresAt:   t.ExpiresAt,
	}, nil
}

// DeleteExpiredTokens removes every token with expires_at < now and
// returns the removal count.
func (s *Store) DeleteExpiredTokens(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []*domain.ViewerToken
	for _, t := range s.tokens {
		if t.ExpiresAt < cutoff {
			removed = append(removed, t)
		}
	}
	if len(removed) == 0 {
		return 0, nil
	}

	for _, t := range removed {
		delete(s.tokens, t.Token)
	}
	if err := s.flush(); err != nil {
		for _, t := range removed {
			s.tokens[t.Token] = t
		}
		return 0, domain.ErrStorageError.WithCause(err)
	}
	return len(removed), nil
}

// Close flushes a final snapshot.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}
