// Package config defines the server configuration structure.
package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr      = "127.0.0.1:3001"
	DefaultViewerBaseURL = "http://localhost:3001"

	DefaultBackend      = "badger"
	DefaultDataDir      = "/var/lib/qrifc-server/data"
	DefaultSnapshotKeep = 5

	DefaultSweepInterval = time.Hour

	DefaultRateLimitRPS   = 10
	DefaultRateLimitBurst = 20

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr: DefaultHTTPAddr,
			},
			ViewerBaseURL: DefaultViewerBaseURL,
			CORSOrigins:   []string{"*"},
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimitRPS,
				Burst:   DefaultRateLimitBurst,
			},
		},
		Storage: StorageSection{
			Backend:      DefaultBackend,
			DataDir:      DefaultDataDir,
			SnapshotKeep: DefaultSnapshotKeep,
		},
		Sweep: SweepSection{
			Interval: DefaultSweepInterval,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
