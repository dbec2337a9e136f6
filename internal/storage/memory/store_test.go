package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/RubioRobin/qr-ifc-viewer/internal/core/domain"
)

func openTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(Config{Dir: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedVersion(t *testing.T, s *Store, projectID, label string) string {
	t.Helper()
	id, err := s.CreateModelVersion(context.Background(), projectID, label, "https://models.example.com/"+label+".ifc")
	if err != nil {
		t.Fatalf("CreateModelVersion(%s): %v", label, err)
	}
	return id
}

func TestStore_ProjectLifecycle(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()

	id, err := s.CreateProject(ctx, "sample-office-building", "Sample Office Building")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	p, err := s.GetProjectBySlug(ctx, "sample-office-building")
	if err != nil {
		t.Fatalf("GetProjectBySlug: %v", err)
	}
	if p.ID != id || p.Name != "Sample Office Building" {
		t.Fatalf("project mismatch: %+v", p)
	}

	if _, err := s.CreateProject(ctx, "sample-office-building", "Duplicate"); !domain.IsConflict(err) {
		t.Fatalf("duplicate slug err = %v, want conflict", err)
	}
	if _, err := s.GetProjectBySlug(ctx, "missing"); !domain.IsNotFound(err) {
		t.Fatalf("missing slug err = %v, want not found", err)
	}
}

func TestStore_CreateProjectValidates(t *testing.T) {
	s := openTestStore(t, t.TempDir())

	if _, err := s.CreateProject(context.Background(), "", ""); !domain.IsDomainError(err, "QV-PROJ-4001") {
		t.Fatalf("err = %v, want project validation error", err)
	}
}

func TestStore_VersionLifecycle(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()

	pid, err := s.CreateProject(ctx, "p1", "P1")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	v1 := seedVersion(t, s, pid, "v1")
	seedVersion(t, s, pid, "v2")

	got, err := s.GetModelVersion(ctx, pid, "v1")
	if err != nil {
		t.Fatalf("GetModelVersion: %v", err)
	}
	if got.ID != v1 {
		t.Fatalf("version ID = %s, want %s", got.ID, v1)
	}

	if _, err := s.CreateModelVersion(ctx, pid, "v1", "https://x/dup.ifc"); !domain.IsConflict(err) {
		t.Fatalf("duplicate version err = %v, want conflict", err)
	}
	if _, err := s.GetModelVersion(ctx, pid, "v9"); !domain.IsNotFound(err) {
		t.Fatalf("missing version err = %v, want not found", err)
	}
	if _, err := s.CreateModelVersion(ctx, "prj-missing", "v1", "https://x/a.ifc"); !domain.IsNotFound(err) {
		t.Fatalf("orphan version err = %v, want not found", err)
	}
}

func TestStore_LatestBreaksTimestampTies(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()

	pid, err := s.CreateProject(ctx, "p1", "P1")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	// Versions created back to back can share a millisecond timestamp;
	// the insertion sequence must decide.
	seedVersion(t, s, pid, "v1")
	seedVersion(t, s, pid, "v2")
	seedVersion(t, s, pid, "v3")

	latest, err := s.GetLatestModelVersion(ctx, pid)
	if err != nil {
		t.Fatalf("GetLatestModelVersion: %v", err)
	}
	if latest.Version != "v3" {
		t.Fatalf("latest = %s, want v3", latest.Version)
	}

	pid2, err := s.CreateProject(ctx, "p2", "P2")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if _, err := s.GetLatestModelVersion(ctx, pid2); !domain.IsNotFound(err) {
		t.Fatalf("empty project latest err = %v, want not found", err)
	}
}

func TestStore_TokenLifecycle(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()

	pid, err := s.CreateProject(ctx, "sample-office-building", "Sample Office Building")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	vid := seedVersion(t, s, pid, "2024-06")

	tok := &domain.ViewerToken{
		Token:          "2N6fP0vX5kNm_g2XqWcCpAbc",
		ProjectID:      pid,
		ModelVersionID: vid,
		IFCGlobalID:    "1kTvXnbbzCWw8lcMd1dR4o",
		ExpiresAt:      time.Now().Add(time.Hour).UnixMilli(),
		CreatedAt:      time.Now().UnixMilli(),
	}
	if err := s.CreateToken(ctx, tok); err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	if err := s.CreateToken(ctx, tok); !domain.IsConflict(err) {
		t.Fatalf("duplicate token err = %v, want conflict", err)
	}

	data, err := s.GetTokenData(ctx, tok.Token)
	if err != nil {
		t.Fatalf("GetTokenData: %v", err)
	}
	if data.ProjectSlug != "sample-office-building" || data.Version != "2024-06" {
		t.Fatalf("token data mismatch: %+v", data)
	}
	if data.IFCGlobalID != tok.IFCGlobalID {
		t.Fatalf("IFCGlobalID = %s, want %s", data.IFCGlobalID, tok.IFCGlobalID)
	}

	if _, err := s.GetTokenData(ctx, "nope-nope-nope-nope-nope"); !domain.IsNotFound(err) {
		t.Fatalf("missing token err = %v, want not found", err)
	}
}

func TestStore_DeleteExpiredTokens(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()

	pid, err := s.CreateProject(ctx, "p1", "P1")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	vid := seedVersion(t, s, pid, "v1")

	now := time.Now()
	mk := func(tok string, expiresAt time.Time) {
		t.Helper()
		err := s.CreateToken(ctx, &domain.ViewerToken{
			Token:          tok,
			ProjectID:      pid,
			ModelVersionID: vid,
			IFCGlobalID:    "g1",
			ExpiresAt:      expiresAt.UnixMilli(),
			CreatedAt:      now.UnixMilli(),
		})
		if err != nil {
			t.Fatalf("CreateToken(%s): %v", tok, err)
		}
	}

	mk("expired-aaaaaaaaaaaaaaaaaa", now.Add(-time.Hour))
	mk("boundary-aaaaaaaaaaaaaaaaa", now)
	mk("live-aaaaaaaaaaaaaaaaaaaaa", now.Add(time.Hour))

	// Only strictly-before-cutoff rows go; the boundary row survives.
	n, err := s.DeleteExpiredTokens(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpiredTokens: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted = %d, want 1", n)
	}

	if _, err := s.GetTokenData(ctx, "expired-aaaaaaaaaaaaaaaaaa"); !domain.IsNotFound(err) {
		t.Fatalf("expired token still present: %v", err)
	}
	if _, err := s.GetTokenData(ctx, "boundary-aaaaaaaaaaaaaaaaa"); err != nil {
		t.Fatalf("boundary token gone: %v", err)
	}

	// Idempotent: a second sweep finds nothing.
	n, err = s.DeleteExpiredTokens(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpiredTokens: %v", err)
	}
	if n != 0 {
		t.Fatalf("second sweep deleted = %d, want 0", n)
	}
}

func TestStore_ReopenRestoresState(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1, err := Open(Config{Dir: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	pid, err := s1.CreateProject(ctx, "p1", "P1")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	vid, err := s1.CreateModelVersion(ctx, pid, "v1", "https://models.example.com/v1.ifc")
	if err != nil {
		t.Fatalf("CreateModelVersion: %v", err)
	}
	tok := &domain.ViewerToken{
		Token:          "2N6fP0vX5kNm_g2XqWcCpAbc",
		ProjectID:      pid,
		ModelVersionID: vid,
		IFCGlobalID:    "g1",
		ExpiresAt:      time.Now().Add(time.Hour).UnixMilli(),
		CreatedAt:      time.Now().UnixMilli(),
	}
	if err := s1.CreateToken(ctx, tok); err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2 := openTestStore(t, dir)
	data, err := s2.GetTokenData(ctx, tok.Token)
	if err != nil {
		t.Fatalf("GetTokenData after reopen: %v", err)
	}
	if data.ProjectSlug != "p1" || data.Version != "v1" {
		t.Fatalf("restored data mismatch: %+v", data)
	}

	// The restored sequence counter keeps advancing, so latest still
	// points at the newest insert.
	if _, err := s2.CreateModelVersion(ctx, pid, "v2", "https://models.example.com/v2.ifc"); err != nil {
		t.Fatalf("CreateModelVersion after reopen: %v", err)
	}
	latest, err := s2.GetLatestModelVersion(ctx, pid)
	if err != nil {
		t.Fatalf("GetLatestModelVersion: %v", err)
	}
	if latest.Version != "v2" {
		t.Fatalf("latest after reopen = %s, want v2", latest.Version)
	}
}

func TestStore_EncryptedReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	pass := []byte("correct horse battery")

	s1, err := Open(Config{Dir: dir, Passphrase: pass})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s1.CreateProject(ctx, "p1", "P1"); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(Config{Dir: dir, Passphrase: pass})
	if err != nil {
		t.Fatalf("Open with passphrase: %v", err)
	}
	defer s2.Close()
	if _, err := s2.GetProjectBySlug(ctx, "p1"); err != nil {
		t.Fatalf("GetProjectBySlug after encrypted reopen: %v", err)
	}

	if _, err := Open(Config{Dir: dir}); err == nil {
		t.Fatal("expected open without passphrase to fail")
	}
}

func TestStore_GetTokenDataConsistentUnderWrites(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()

	pid, err := s.CreateProject(ctx, "p1", "P1")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	vid := seedVersion(t, s, pid, "v1")

	tok := &domain.ViewerToken{
		Token:          "2N6fP0vX5kNm_g2XqWcCpAbc",
		ProjectID:      pid,
		ModelVersionID: vid,
		IFCGlobalID:    "g1",
		ExpiresAt:      time.Now().Add(time.Hour).UnixMilli(),
		CreatedAt:      time.Now().UnixMilli(),
	}
	if err := s.CreateToken(ctx, tok); err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			label := "w" + string(rune('a'+i))
			if _, err := s.CreateModelVersion(ctx, pid, label, "https://x/"+label+".ifc"); err != nil {
				return
			}
		}
	}()

	for i := 0; i < 50; i++ {
		data, err := s.GetTokenData(ctx, tok.Token)
		if err != nil {
			t.Fatalf("GetTokenData: %v", err)
		}
		if data.ProjectSlug != "p1" || data.Version != "v1" {
			t.Fatalf("inconsistent read: %+v", data)
		}
	}
	<-done
}

func TestStore_SnapshotKeepBoundsDiskGenerations(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Config{Dir: dir, SnapshotKeep: 2})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	// Every mutating call flushes a fresh snapshot; the keep bound
	// must hold on disk regardless of how recent the files are.
	pid, err := s.CreateProject(ctx, "p1", "P1")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	for i := 0; i < 10; i++ {
		label := fmt.Sprintf("v%d", i)
		if _, err := s.CreateModelVersion(ctx, pid, label, "https://x/"+label+".ifc"); err != nil {
			t.Fatalf("CreateModelVersion(%s): %v", label, err)
		}
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.snap"))
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(files) > 2 {
		t.Fatalf("%d snapshot files retained, snapshot keep is 2", len(files))
	}

	// Reopen proves the surviving newest generation is the live one.
	s.Close()
	s2, err := Open(Config{Dir: dir, SnapshotKeep: 2})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { s2.Close() })

	if _, err := s2.GetModelVersion(ctx, pid, "v9"); err != nil {
		t.Fatalf("GetModelVersion after reopen: %v", err)
	}
}
