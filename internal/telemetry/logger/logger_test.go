package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Format: "json", Output: &buf})

	l.Info("server started", "addr", ":8080")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "server started" || entry["addr"] != ":8080" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn", Format: "json", Output: &buf})

	l.Info("should be dropped")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %s", buf.String())
	}

	l.Warn("should appear")
	if buf.Len() == 0 {
		t.Fatal("warn not logged")
	}
}

func TestSetLevel_Dynamic(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Format: "json", Output: &buf})
	defer SetLevel("info")

	SetLevel("error")
	l.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info logged after SetLevel(error): %s", buf.String())
	}
	if GetLevel() != "error" {
		t.Fatalf("GetLevel = %s, want error", GetLevel())
	}

	SetLevel("debug")
	l.Debug("now visible")
	if buf.Len() == 0 {
		t.Fatal("debug not logged after SetLevel(debug)")
	}
}

func TestRedaction(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Format: "json", Output: &buf})

	l.Info("token issued", "token", "2N6fP0vX5kNm_g2XqWcCpAbc", "project_slug", "p1")

	out := buf.String()
	if strings.Contains(out, "2N6fP0vX5kNm_g2XqWcCpAbc") {
		t.Fatalf("raw token leaked into log: %s", out)
	}
	if !strings.Contains(out, redactedValue) {
		t.Fatalf("expected redaction placeholder: %s", out)
	}
	if !strings.Contains(out, "p1") {
		t.Fatalf("non-sensitive attribute lost: %s", out)
	}
}

func TestIsSensitiveKey(t *testing.T) {
	for _, key := range []string{"token", "viewer_token", "Authorization", "encryption_passphrase"} {
		if !IsSensitiveKey(key) {
			t.Errorf("IsSensitiveKey(%q) = false, want true", key)
		}
	}
	for _, key := range []string{"project_slug", "version", "addr"} {
		if IsSensitiveKey(key) {
			t.Errorf("IsSensitiveKey(%q) = true, want false", key)
		}
	}
}

func TestMaskToken(t *testing.T) {
	if got := MaskToken("2N6fP0vX5kNm_g2XqWcCpAbc"); got != "2N6f...pAbc" {
		t.Fatalf("MaskToken = %q", got)
	}
	if got := MaskToken("short"); got != "***" {
		t.Fatalf("MaskToken(short) = %q", got)
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	if got := RequestIDFromContext(ctx); got != "req-123" {
		t.Fatalf("RequestIDFromContext = %q", got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("empty context request ID = %q", got)
	}

	var buf bytes.Buffer
	l := New(Config{Level: "info", Format: "json", Output: &buf})
	L(ctx, l).Info("handled")
	if !strings.Contains(buf.String(), "req-123") {
		t.Fatalf("request ID missing from log: %s", buf.String())
	}
}
