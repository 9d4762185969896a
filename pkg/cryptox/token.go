package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Token size constants (in bytes before encoding).
const (
	// TokenSize128 provides 128 bits of entropy (22 chars base64url).
	TokenSize128 = 16
	// TokenSize256 provides 256 bits of entropy (43 chars base64url).
	TokenSize256 = 32
)

// GenerateToken creates a cryptographically secure random token of the
// specified byte length. The token is returned as a base64url-encoded string
// (URL-safe, no padding).
//
// Common sizes:
//   - TokenSize128 (16 bytes): CSRF tokens, short-lived nonces
//   - TokenSize256 (32 bytes): refresh tokens, API keys (recommended)
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// MustGenerateToken is like GenerateToken but panics on error.
// Use this only during initialization where failure is unrecoverable.
func MustGenerateToken(size int) string {
	token, err := GenerateToken(size)
	if err != nil {
		panic(fmt.Sprintf("cryptox: failed to generate token: %v", err))
	}
	return token
}

// Fingerprinter produces deterministic keyed digests of opaque tokens.
// Fingerprints are what gets stored in the revocation/CSRF cache so the raw
// token value never lands in shared storage, and the key prevents an attacker
// with cache read access from precomputing lookups for stolen tokens.
type Fingerprinter struct {
	key []byte
}

// NewFingerprinter creates a Fingerprinter with the given key. The key may be
// empty, in which case digests are unkeyed (still one-way, just without the
// lookup protection). Keys longer than 64 bytes are rejected by BLAKE2b.
func NewFingerprinter(key []byte) (*Fingerprinter, error) {
	// Probe the key once so misconfiguration fails at startup, not per request.
	if _, err := blake2b.New256(key); err != nil {
		return nil, fmt.Errorf("cryptox: invalid fingerprint key: %w", err)
	}
	return &Fingerprinter{key: key}, nil
}

// Fingerprint returns the base64url-encoded keyed BLAKE2b-256 digest of token.
// The output is deterministic for a given key, suitable as a cache key.
func (f *Fingerprinter) Fingerprint(token string) string {
	h, _ := blake2b.New256(f.key)
	_, _ = h.Write([]byte(token))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
