// Package config defines the server configuration structure.
package config

import "time"

// ServerConfig is the root configuration for qrifc-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Storage StorageSection `koanf:"storage"`
	Sweep   SweepSection   `koanf:"sweep"`
	Log     LogSection     `koanf:"log"`
}

// ServerSection configures the request surface.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http"`

	// ViewerBaseURL is the public base used to build viewer links,
	// e.g. "https://viewer.example.com". The issued token is appended
	// as /view/{token}.
	ViewerBaseURL string `koanf:"viewer_base_url"`

	// CORSOrigins lists allowed cross-origin requesters. "*" allows
	// any origin.
	CORSOrigins []string `koanf:"cors_origins"`

	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

// HTTPConfig configures the HTTP listener.
type HTTPConfig struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`
}

// RateLimitConfig configures per-client request throttling.
type RateLimitConfig struct {
	Enabled bool    `koanf:"enabled"`
	RPS     float64 `koanf:"rps"`
	Burst   int     `koanf:"burst"`
}

// StorageSection configures the storage backend.
type StorageSection struct {
	// Backend is "badger" or "memory".
	Backend string `koanf:"backend"`

	DataDir string `koanf:"data_dir"`

	// SnapshotKeep bounds retained snapshot generations (memory
	// backend).
	SnapshotKeep int `koanf:"snapshot_keep"`

	// EncryptionPassphrase enables snapshot encryption when set
	// (memory backend).
	EncryptionPassphrase string `koanf:"encryption_passphrase"`
}

// SweepSection configures the expired-token sweeper.
type SweepSection struct {
	Interval time.Duration `koanf:"interval"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
