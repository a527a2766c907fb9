package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Token sizes in bytes before encoding.
const (
	// TokenSize128 is 22 chars once encoded.
	TokenSize128 = 16
	// TokenSize256 is 43 chars once encoded. Verification and reset tokens use it.
	TokenSize256 = 32
)

// GenerateToken returns size random bytes as an unpadded base64url string, so
// the token can be placed in a URL path without escaping.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("cryptox: token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintToken returns the SHA-256 of token as base64url (43 chars).
// Only fingerprints are persisted; lookups are exact matches on this value.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
