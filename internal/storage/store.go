package storage

import (
	"fmt"
	"log/slog"

	"github.com/RubioRobin/qr-ifc-viewer/internal/core/service"
	"github.com/RubioRobin/qr-ifc-viewer/internal/storage/memory"
	"github.com/RubioRobin/qr-ifc-viewer/internal/telemetry/metric"
)

// Backend names accepted by Open.
const (
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config selects and configures a storage backend.
type Config struct {
	// Backend is "badger" or "memory".
	Backend string

	// DataDir is the backend's on-disk root.
	DataDir string

	// SnapshotKeep bounds retained snapshot generations (memory
	// backend only).
	SnapshotKeep int

	// EncryptionPassphrase enables snapshot encryption when non-empty
	// (memory backend only).
	EncryptionPassphrase string

	Logger  *slog.Logger
	Metrics *metric.Registry
}

// Open opens the configured backend.
func Open(cfg Config) (service.Store, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("storage: data_dir is required")
	}

	switch cfg.Backend {
	case BackendBadger:
		return openBadger(cfg)
	case BackendMemory:
		var passphrase []byte
		if cfg.EncryptionPassphrase != "" {
			passphrase = []byte(cfg.EncryptionPassphrase)
		}
		return memory.Open(memory.Config{
			Dir:          cfg.DataDir,
			SnapshotKeep: cfg.SnapshotKeep,
			Passphrase:   passphrase,
			Logger:       cfg.Logger,
		})
	default:
		return nil, fmt.Errorf("storage: unknown backend %q (want %q or %q)",
			cfg.Backend, BackendBadger, BackendMemory)
	}
}
