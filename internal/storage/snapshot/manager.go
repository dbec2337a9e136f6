package snapshot

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/RubioRobin/qr-ifc-viewer/internal/core/domain"
)

// Magic bytes identify snapshot files.
var magicBytes = []byte("QVSNAP01")

const (
	filePrefix    = "snapshot-"
	fileExtension = ".snap"
	checksumSize  = 32
	headerVersion = 1

	DefaultRetentionCount = 5
	DefaultRetentionDays  = 7
)

var (
	ErrInvalidMagic     = errors.New("snapshot: invalid magic bytes")
	ErrChecksumMismatch = errors.New("snapshot: checksum mismatch")
	ErrNoSnapshots      = errors.New("snapshot: no snapshots available")
)

// State is the full dataset captured by a snapshot.
type State struct {
	Projects   []*domain.Project      `json:"projects"`
	Versions   []*domain.ModelVersion `json:"versions"`
	Tokens     []*domain.ViewerToken  `json:"tokens"`
	VersionSeq uint64                 `json:"version_seq"`
}

type snapshotHeader struct {
	Version      int    `json:"version"`
	CreatedAt    int64  `json:"created_at"`
	ProjectCount uint64 `json:"project_count"`
	VersionCount uint64 `json:"version_count"`
	TokenCount   uint64 `json:"token_count"`
	Encrypted    bool   `json:"encrypted"`
	Salt         []byte `json:"salt,omitempty"`
}

// Config configures the snapshot manager.
type Config struct {
	Dir string

	// RetentionCount caps the number of retained generations.
	RetentionCount int

	// RetentionDays expires generations older than this many days
	// from within the count cap. It never raises the cap.
	RetentionDays int

	// Passphrase enables body encryption when non-empty. The key is
	// derived once per manager; the salt travels in each file header.
	Passphrase []byte
}

func DefaultConfig(dir string) Config {
	return Config{
		Dir:            dir,
		RetentionCount: DefaultRetentionCount,
		RetentionDays:  DefaultRetentionDays,
	}
}

type Manager struct {
	cfg        Config
	passphrase []byte
	cipher     *Cipher
	salt       []byte
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("snapshot: dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
		return nil, fmt.Errorf("snapshot: create dir: %w", err)
	}
	if cfg.RetentionCount == 0 {
		cfg.RetentionCount = DefaultRetentionCount
	}
	if cfg.RetentionDays == 0 {
		cfg.RetentionDays = DefaultRetentionDays
	}

	m := &Manager{cfg: cfg, passphrase: cfg.Passphrase}
	if len(cfg.Passphrase) > 0 {
		cipher, salt, err := NewCipher(cfg.Passphrase, nil)
		if err != nil {
			return nil, err
		}
		m.cipher = cipher
		m.salt = salt
	}
	return m, nil
}

// Info contains metadata about a snapshot file.
type Info struct {
	ID           string `json:"id"`
	ProjectCount int64  `json:"project_count"`
	VersionCount int64  `json:"version_count"`
	TokenCount   int64  `json:"token_count"`
	CreatedAt    int64  `json:"created_at"`
	Size         int64  `json:"size"`
	Path         string `json:"path"`
	Checksum     string `json:"checksum"`
}

// Create writes the given state to a new snapshot file. The write is
// atomic: data goes to a temp file which is fsynced and renamed into
// place, so readers never observe a partial snapshot.
func (m *Manager) Create(state *State) (*Info, error) {
	now := time.Now()
	id := m.generateID(now)

	tempPath := filepath.Join(m.cfg.Dir, id+".tmp")
	file, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("snapshot: create temp file: %w", err)
	}
	defer os.Remove(tempPath)

	hash := sha256.New()
	writer := io.MultiWriter(file, hash)

	if _, err := writer.Write(magicBytes); err != nil {
		file.Close()
		return nil, err
	}

	hdr := snapshotHeader{
		Version:      headerVersion,
		CreatedAt:    now.UnixMilli(),
		ProjectCount: uint64(len(state.Projects)),
		VersionCount: uint64(len(state.Versions)),
		TokenCount:   uint64(len(state.Tokens)),
		Encrypted:    m.cipher != nil,
		Salt:         m.salt,
	}

	hdrJSON, err := json.Marshal(hdr)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: marshal header: %w", err)
	}

	var hdrLen [4]byte
	binary.BigEndian.PutUint32(hdrLen[:], uint32(len(hdrJSON)))
	if _, err := writer.Write(hdrLen[:]); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write header length: %w", err)
	}
	if _, err := writer.Write(hdrJSON); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write header: %w", err)
	}

	data, err := json.Marshal(state)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: marshal state: %w", err)
	}
	if m.cipher != nil {
		data, err = m.cipher.Seal(data)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("snapshot: encrypt: %w", err)
		}
	}

	var dataLen [4]byte
	binary.BigEndian.PutUint32(dataLen[:], uint32(len(data)))
	if _, err := writer.Write(dataLen[:]); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write data length: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write data: %w", err)
	}

	// Finalize checksum trailer (not included in hash).
	sum := hash.Sum(nil)
	if _, err := file.Write(sum); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write checksum: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: sync: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("snapshot: close: %w", err)
	}

	stat, err := os.Stat(tempPath)
	if err != nil {
		return nil, err
	}

	finalPath := filepath.Join(m.cfg.Dir, id+fileExtension)
	if err := os.Rename(tempPath, finalPath); err != nil {
		return nil, fmt.Errorf("snapshot: rename: %w", err)
	}

	return &Info{
		ID:           id,
		ProjectCount: int64(len(state.Projects)),
		VersionCount: int64(len(state.Versions)),
		TokenCount:   int64(len(state.Tokens)),
		CreatedAt:    now.UnixMilli(),
		Size:         stat.Size(),
		Path:         finalPath,
		Checksum:     hex.EncodeToString(sum),
	}, nil
}

// Load restores state from the latest valid snapshot. Corrupted files
// are skipped in favor of the next-newest generation.
func (m *Manager) Load() (*State, *Info, error) {
	snapshots, err := m.List()
	if err != nil {
		return nil, nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil, ErrNoSnapshots
	}

	for i := len(snapshots) - 1; i >= 0; i-- {
		state, info, err := m.loadFile(snapshots[i].Path)
		if err == nil {
			return state, info, nil
		}
		if errors.Is(err, ErrChecksumMismatch) || errors.Is(err, ErrInvalidMagic) {
			continue
		}
		return nil, nil, err
	}

	return nil, nil, ErrNoSnapshots
}

func (m *Manager) loadFile(path string) (*State, *Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	if stat.Size() < int64(len(magicBytes))+checksumSize {
		return nil, nil, ErrChecksumMismatch
	}

	// Verify checksum over everything before the trailer.
	hashedLen := stat.Size() - checksumSize
	expected := make([]byte, checksumSize)
	if _, err := io.ReadFull(io.NewSectionReader(f, hashedLen, checksumSize), expected); err != nil {
		return nil, nil, err
	}
	h := sha256.New()
	if _, err := io.CopyN(h, io.NewSectionReader(f, 0, hashedLen), hashedLen); err != nil {
		return nil, nil, err
	}
	if !bytes.Equal(h.Sum(nil), expected) {
		return nil, nil, ErrChecksumMismatch
	}

	br := bufio.NewReader(io.NewSectionReader(f, 0, hashedLen))

	magic := make([]byte, len(magicBytes))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, nil, err
	}
	if !bytes.Equal(magic, magicBytes) {
		return nil, nil, ErrInvalidMagic
	}

	var hdrLenBuf [4]byte
	if _, err := io.ReadFull(br, hdrLenBuf[:]); err != nil {
		return nil, nil, err
	}
	hdrLen := binary.BigEndian.Uint32(hdrLenBuf[:])
	if hdrLen == 0 {
		return nil, nil, fmt.Errorf("snapshot: empty header")
	}
	hdrJSON := make([]byte, hdrLen)
	if _, err := io.ReadFull(br, hdrJSON); err != nil {
		return nil, nil, err
	}

	var hdr snapshotHeader
	if err := json.Unmarshal(hdrJSON, &hdr); err != nil {
		return nil, nil, fmt.Errorf("snapshot: unmarshal header: %w", err)
	}

	var dataLenBuf [4]byte
	if _, err := io.ReadFull(br, dataLenBuf[:]); err != nil {
		return nil, nil, err
	}
	dataSize := binary.BigEndian.Uint32(dataLenBuf[:])
	data := make([]byte, dataSize)
	if _, err := io.ReadFull(br, data); err != nil {
		return nil, nil, err
	}

	if hdr.Encrypted {
		if len(m.passphrase) == 0 {
			return nil, nil, fmt.Errorf("snapshot: file is encrypted but no passphrase configured")
		}
		cipher, err := m.cipherForSalt(hdr.Salt)
		if err != nil {
			return nil, nil, err
		}
		plain, err := cipher.Open(data)
		if err != nil {
			return nil, nil, fmt.Errorf("snapshot: decrypt: %w", err)
		}
		data = plain
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, nil, fmt.Errorf("snapshot: unmarshal state: %w", err)
	}

	info := &Info{
		ID:           strings.TrimSuffix(filepath.Base(path), fileExtension),
		ProjectCount: int64(hdr.ProjectCount),
		VersionCount: int64(hdr.VersionCount),
		TokenCount:   int64(hdr.TokenCount),
		CreatedAt:    hdr.CreatedAt,
		Size:         stat.Size(),
		Path:         path,
		Checksum:     hex.EncodeToString(expected),
	}
	return &state, info, nil
}

// cipherForSalt returns the manager's cipher when the salt matches its
// own, or derives one for a foreign salt (snapshots written by a
// previous process).
func (m *Manager) cipherForSalt(salt []byte) (*Cipher, error) {
	if m.cipher != nil && bytes.Equal(salt, m.salt) {
		return m.cipher, nil
	}
	cipher, _, err := NewCipher(m.passphrase, salt)
	return cipher, err
}

// List lists snapshot files oldest first (metadata only).
func (m *Manager) List() ([]*Info, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileExtension) {
			paths = append(paths, filepath.Join(m.cfg.Dir, name))
		}
	}
	sort.Strings(paths)

	var infos []*Info
	for _, p := range paths {
		stat, err := os.Stat(p)
		if err != nil {
			continue
		}
		infos = append(infos, &Info{
			ID:   strings.TrimSuffix(filepath.Base(p), fileExtension),
			Path: p,
			Size: stat.Size(),
		})
	}
	return infos, nil
}

// Prune applies the retention policy and deletes old snapshots.
// RetentionCount is a hard cap on retained generations; RetentionDays
// additionally expires stale generations within that cap. The cap must
// stay a cap under any snapshot cadence, including one snapshot per
// write, so age never extends what the count allows. The newest
// snapshot always survives.
func (m *Manager) Prune() error {
	infos, err := m.List()
	if err != nil {
		return err
	}
	if len(infos) <= 1 {
		return nil
	}

	// infos is sorted oldest-first. Everything beyond the newest
	// RetentionCount goes.
	cut := len(infos) - m.cfg.RetentionCount
	if cut < 0 {
		cut = 0
	}
	if cut > len(infos)-1 {
		cut = len(infos) - 1
	}
	doomed := infos[:cut]
	kept := infos[cut:]

	if m.cfg.RetentionDays > 0 {
		cutoff := time.Now().Add(-time.Duration(m.cfg.RetentionDays) * 24 * time.Hour)
		for _, info := range kept[:len(kept)-1] {
			st, err := os.Stat(info.Path)
			if err != nil {
				continue
			}
			if st.ModTime().Before(cutoff) {
				doomed = append(doomed, info)
			}
		}
	}

	for _, info := range doomed {
		_ = os.Remove(info.Path)
	}
	return nil
}

// generateID builds a millisecond-resolution lexicographically sortable
// file ID, disambiguated when multiple snapshots land in the same
// millisecond.
func (m *Manager) generateID(t time.Time) string {
	ts := fmt.Sprintf("%013d", t.UnixMilli())
	seq := 1

	entries, _ := os.ReadDir(m.cfg.Dir)
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, filePrefix+ts+"-") || !strings.HasSuffix(name, fileExtension) {
			continue
		}
		seq++
	}

	return fmt.Sprintf("%s%s-%04d", filePrefix, ts, seq)
}
