package snapshot

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Encryption errors.
var (
	ErrPassphraseTooWeak = errors.New("snapshot: passphrase too weak (minimum 8 characters)")
	ErrDecryptionFailed  = errors.New("snapshot: decryption failed: wrong passphrase or corrupted data")
)

const (
	// MinPassphraseLength is the minimum passphrase length.
	MinPassphraseLength = 8

	// SaltLength is the salt length used in key derivation. The salt
	// is stored in the snapshot header so the key can be re-derived
	// on load.
	SaltLength = 16

	// Argon2id parameters for passphrase key derivation.
	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = chacha20poly1305.KeySize
)

// Cipher seals and opens snapshot bodies with ChaCha20-Poly1305.
// A fresh nonce is generated per Seal and prepended to the output.
type Cipher struct {
	key []byte
}

// NewCipher derives an encryption key from passphrase and salt using
// Argon2id. If salt is nil a new random salt is generated; the caller
// must persist it alongside the ciphertext.
func NewCipher(passphrase, salt []byte) (*Cipher, []byte, error) {
	if len(passphrase) < MinPassphraseLength {
		return nil, nil, ErrPassphraseTooWeak
	}
	if salt == nil {
		salt = make([]byte, SaltLength)
		if _, err := rand.Read(salt); err != nil {
			return nil, nil, fmt.Errorf("snapshot: generate salt: %w", err)
		}
	}
	if len(salt) != SaltLength {
		return nil, nil, fmt.Errorf("snapshot: invalid salt length %d", len(salt))
	}

	key := argon2.IDKey(passphrase, salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return &Cipher{key: key}, salt, nil
}

// Seal encrypts plaintext and returns nonce-prefixed ciphertext.
func (c *Cipher) Seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return nil, fmt.Errorf("snapshot: init cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("snapshot: generate nonce: %w", err)
	}

	out := make([]byte, 0, len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, nil), nil
}

// Open decrypts nonce-prefixed ciphertext produced by Seal.
func (c *Cipher) Open(ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return nil, fmt.Errorf("snapshot: init cipher: %w", err)
	}
	if len(ciphertext) < aead.NonceSize() {
		return nil, ErrDecryptionFailed
	}

	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plain, nil
}

// ZeroKey wipes the derived key from memory.
func (c *Cipher) ZeroKey() {
	for i := range c.key {
		c.key[i] = 0
	}
}
