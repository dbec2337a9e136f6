// Package token generates opaque viewer tokens.
package token

import (
	"strings"
	"testing"
)

// TestGenerate tests default token generation.
func TestGenerate(t *testing.T) {
	t.Run("sufficient length", func(t *testing.T) {
		tok, err := Generate()
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		// 21 bytes -> 28 Base64 RawURL characters.
		if len(tok) != 28 {
			t.Errorf("Token length = %d, want 28", len(tok))
		}
	})

	t.Run("url safe alphabet", func(t *testing.T) {
		const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
		for i := 0; i < 50; i++ {
			tok, err := Generate()
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			for _, r := range tok {
				if !strings.ContainsRune(alphabet, r) {
					t.Fatalf("Token %q contains non-URL-safe character %q", tok, r)
				}
			}
		}
	})

	t.Run("unique tokens", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 1000; i++ {
			tok, err := Generate()
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			if seen[tok] {
				t.Fatal("Duplicate token generated")
			}
			seen[tok] = true
		}
	})
}

// TestGenerateWithLength tests custom token lengths.
func TestGenerateWithLength(t *testing.T) {
	tests := []struct {
		bytes int
		chars int
	}{
		{16, 22},
		{21, 28},
		{32, 43},
	}

	for _, tt := range tests {
		tok, err := GenerateWithLength(tt.bytes)
		if err != nil {
			t.Fatalf("GenerateWithLength(%d) failed: %v", tt.bytes, err)
		}
		if len(tok) != tt.chars {
			t.Errorf("GenerateWithLength(%d) length = %d, want %d", tt.bytes, len(tok), tt.chars)
		}
	}
}

// TestGenerateBytes tests raw byte generation.
func TestGenerateBytes(t *testing.T) {
	b, err := GenerateBytes(32)
	if err != nil {
		t.Fatalf("GenerateBytes failed: %v", err)
	}
	if len(b) != 32 {
		t.Errorf("GenerateBytes length = %d, want 32", len(b))
	}

	b2, err := GenerateBytes(32)
	if err != nil {
		t.Fatalf("GenerateBytes failed: %v", err)
	}
	if string(b) == string(b2) {
		t.Error("Two generated byte slices should differ")
	}
}
