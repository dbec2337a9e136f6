package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig(t *testing.T) *ServerConfig {
	t.Helper()
	cfg := Default()
	cfg.Storage.DataDir = t.TempDir()
	return cfg
}

func TestVerify_Defaults(t *testing.T) {
	if err := Verify(validConfig(t)); err != nil {
		t.Fatalf("Verify(default) = %v", err)
	}
}

func TestVerify_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantSub string
	}{
		{
			name:    "missing addr",
			mutate:  func(c *ServerConfig) { c.Server.HTTP.Addr = "" },
			wantSub: "server.http.addr",
		},
		{
			name:    "cert without key",
			mutate:  func(c *ServerConfig) { c.Server.HTTP.TLSCertFile = "/etc/tls/cert.pem" },
			wantSub: "tls_cert_file",
		},
		{
			name:    "relative viewer base url",
			mutate:  func(c *ServerConfig) { c.Server.ViewerBaseURL = "/viewer" },
			wantSub: "viewer_base_url",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *ServerConfig) { c.Storage.Backend = "sqlite" },
			wantSub: "storage.backend",
		},
		{
			name:    "missing data dir",
			mutate:  func(c *ServerConfig) { c.Storage.DataDir = "" },
			wantSub: "storage.data_dir",
		},
		{
			name:    "zero snapshot keep",
			mutate:  func(c *ServerConfig) { c.Storage.SnapshotKeep = 0 },
			wantSub: "snapshot_keep",
		},
		{
			name:    "zero sweep interval",
			mutate:  func(c *ServerConfig) { c.Sweep.Interval = 0 },
			wantSub: "sweep.interval",
		},
		{
			name: "rate limit without rps",
			mutate: func(c *ServerConfig) {
				c.Server.RateLimit.Enabled = true
				c.Server.RateLimit.RPS = 0
			},
			wantSub: "rate_limit.rps",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := Verify(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Fatalf("err = %v, want substring %q", err, tt.wantSub)
			}
		})
	}
}

func TestDefault_Values(t *testing.T) {
	cfg := Default()
	if cfg.Storage.Backend != "badger" {
		t.Fatalf("default backend = %s", cfg.Storage.Backend)
	}
	if cfg.Sweep.Interval != time.Hour {
		t.Fatalf("default sweep interval = %s", cfg.Sweep.Interval)
	}
	if cfg.Log.Format != "json" {
		t.Fatalf("default log format = %s", cfg.Log.Format)
	}
}

func TestSanitize_MasksPassphrase(t *testing.T) {
	cfg := Default()
	cfg.Storage.EncryptionPassphrase = "correct horse battery"

	got := Sanitize(cfg)
	if strings.Contains(got.Storage.EncryptionPassphrase, "horse") {
		t.Fatalf("passphrase leaked: %s", got.Storage.EncryptionPassphrase)
	}
	// Original untouched.
	if cfg.Storage.EncryptionPassphrase != "correct horse battery" {
		t.Fatal("Sanitize mutated the original config")
	}

	if Sanitize(Default()).Storage.EncryptionPassphrase != "" {
		t.Fatal("empty passphrase should stay empty")
	}
}
