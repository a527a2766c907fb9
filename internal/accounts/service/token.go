package service

import (
	"time"

	"github.com/aussiebroadwan/accounts/pkg/cryptox"
)

const (
	DefaultVerificationTTL = 24 * time.Hour
	DefaultResetTTL        = time.Hour
)

// IssuedToken is a freshly minted single-use token. Raw goes to the user and
// is never persisted; Fingerprint and ExpiresAt are stored together.
type IssuedToken struct {
	Raw         string
	Fingerprint string
	ExpiresAt   time.Time
}

// TokenIssuer mints opaque verification and reset tokens.
type TokenIssuer struct {
	Size int
	TTL  time.Duration
}

func (ti TokenIssuer) Issue(now time.Time) (IssuedToken, error) {
	size := ti.Size
	if size <= 0 {
		size = cryptox.TokenSize256
	}

	raw, err := cryptox.GenerateToken(size)
	if err != nil {
		return IssuedToken{}, err
	}

	return IssuedToken{
		Raw:         raw,
		Fingerprint: cryptox.FingerprintToken(raw),
		ExpiresAt:   now.Add(ti.TTL).UTC(),
	}, nil
}
