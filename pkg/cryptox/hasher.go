package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Supported password hashing algorithms.
const (
	AlgorithmArgon2id = "argon2id"
	AlgorithmBcrypt   = "bcrypt"
)

// Argon2id defaults, OWASP minimums for the id variant.
const (
	DefaultArgonMemory  = 19 * 1024 // KiB
	DefaultArgonTime    = 2
	DefaultArgonThreads = 1
	DefaultBcryptCost   = 10

	argonKeyLength  = 32
	argonSaltLength = 16

	// Bounds accepted from stored digests.
	maxArgonMemory = 1 << 20 // KiB
	maxArgonTime   = 16
	minArgonKey    = 16
	maxArgonKey    = 128
	minArgonSalt   = 8
)

var (
	// ErrPasswordMismatch is returned by Verify when the password does not
	// match the stored digest.
	ErrPasswordMismatch = errors.New("cryptox: password does not match")

	// ErrUnknownDigest is returned by Verify when the digest is in a format
	// no supported algorithm produced.
	ErrUnknownDigest = errors.New("cryptox: unrecognised password digest")
)

// HasherConfig is the immutable configuration for a Hasher. Zero values are
// replaced with the package defaults.
type HasherConfig struct {
	// Algorithm used for new digests: "argon2id" (default) or "bcrypt".
	Algorithm string

	ArgonMemory  uint32
	ArgonTime    uint32
	ArgonThreads uint8

	BcryptCost int

	// Pepper is appended to every password before hashing. Changing it
	// invalidates all existing digests.
	Pepper string
}

// Hasher turns passwords into self-describing digests and checks them again.
// It is safe for concurrent use.
type Hasher struct {
	cfg HasherConfig
}

// NewHasher validates the config and returns a Hasher.
func NewHasher(cfg HasherConfig) (*Hasher, error) {
	if cfg.Algorithm == "" {
		cfg.Algorithm = AlgorithmArgon2id
	}
	if cfg.ArgonMemory == 0 {
		cfg.ArgonMemory = DefaultArgonMemory
	}
	if cfg.ArgonTime == 0 {
		cfg.ArgonTime = DefaultArgonTime
	}
	if cfg.ArgonThreads == 0 {
		cfg.ArgonThreads = DefaultArgonThreads
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultBcryptCost
	}

	switch cfg.Algorithm {
	case AlgorithmArgon2id:
	case AlgorithmBcrypt:
		if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("cryptox: bcrypt cost %d out of range [%d, %d]",
				cfg.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
		}
	default:
		return nil, fmt.Errorf("cryptox: unsupported hash algorithm %q", cfg.Algorithm)
	}

	return &Hasher{cfg: cfg}, nil
}

// Algorithm returns the algorithm used for new digests.
func (h *Hasher) Algorithm() string { return h.cfg.Algorithm }

// Hash produces a digest of the password with a fresh random salt.
func (h *Hasher) Hash(password string) (string, error) {
	switch h.cfg.Algorithm {
	case AlgorithmBcrypt:
		return h.hashBcrypt(password)
	default:
		return h.hashArgon2id(password)
	}
}

// Verify recomputes the digest of password and compares it against encoded in
// constant time. Both argon2id and bcrypt digests are accepted regardless of
// the configured algorithm so existing accounts keep working after a switch.
func (h *Hasher) Verify(password, encoded string) error {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		return h.verifyArgon2id(password, encoded)
	case strings.HasPrefix(encoded, "$2a$"),
		strings.HasPrefix(encoded, "$2b$"),
		strings.HasPrefix(encoded, "$2y$"):
		return h.verifyBcrypt(password, encoded)
	default:
		return ErrUnknownDigest
	}
}

func (h *Hasher) hashArgon2id(password string) (string, error) {
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("cryptox: read salt: %w", err)
	}

	hash := argon2.IDKey(
		[]byte(password+h.cfg.Pepper),
		salt,
		h.cfg.ArgonTime,
		h.cfg.ArgonMemory,
		h.cfg.ArgonThreads,
		argonKeyLength,
	)

	// PHC string format
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.cfg.ArgonMemory,
		h.cfg.ArgonTime,
		h.cfg.ArgonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

func (h *Hasher) verifyArgon2id(password, encoded string) error {
	// ["", "argon2id", "v=19", "m=X,t=Y,p=Z", "salt", "hash"]
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return fmt.Errorf("%w: expected 6 parts", ErrUnknownDigest)
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return fmt.Errorf("%w: wrong argon2 version", ErrUnknownDigest)
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return fmt.Errorf("%w: parameters: %v", ErrUnknownDigest, err)
	}

	if mem == 0 || mem > maxArgonMemory || iters == 0 || iters > maxArgonTime || par == 0 {
		return fmt.Errorf("%w: parameters out of range", ErrUnknownDigest)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) < minArgonSalt {
		return fmt.Errorf("%w: salt", ErrUnknownDigest)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) < minArgonKey || len(expected) > maxArgonKey {
		return fmt.Errorf("%w: hash", ErrUnknownDigest)
	}

	computed := argon2.IDKey(
		[]byte(password+h.cfg.Pepper),
		salt,
		iters,
		mem,
		par,
		uint32(len(expected)), // #nosec G115 - digest length is always small
	)

	if subtle.ConstantTimeCompare(computed, expected) == 1 {
		return nil
	}
	return ErrPasswordMismatch
}

// bcrypt only reads the first 72 bytes, so long peppered passwords are
// pre-hashed before they reach it.
func (h *Hasher) bcryptInput(password string) []byte {
	in := []byte(password + h.cfg.Pepper)
	if len(in) > 72 {
		in = []byte(FingerprintToken(string(in)))
	}
	return in
}

func (h *Hasher) hashBcrypt(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword(h.bcryptInput(password), h.cfg.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("cryptox: bcrypt: %w", err)
	}
	return string(out), nil
}

func (h *Hasher) verifyBcrypt(password, encoded string) error {
	err := bcrypt.CompareHashAndPassword([]byte(encoded), h.bcryptInput(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrPasswordMismatch
	default:
		return fmt.Errorf("%w: %v", ErrUnknownDigest, err)
	}
}
