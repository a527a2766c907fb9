package service

import (
	"errors"
	"time"

	"github.com/aussiebroadwan/accounts/pkg/jwtx"
)

// Session is the credential handed back after login or registration.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// SessionIssuer signs session credentials that carry only the account id.
type SessionIssuer struct {
	Keys   *jwtx.KeyManager
	Issuer string
	TTL    time.Duration
}

func (s *SessionIssuer) ttl() time.Duration {
	if s.TTL <= 0 {
		return jwtx.DefaultSessionTTL
	}
	return s.TTL
}

var (
	errNoSigningKey = errors.New("session issuer has no signing key")
	errNoVerifier   = errors.New("session issuer has no verifier")
)

// Issue signs a session for userID valid from now.
func (s *SessionIssuer) Issue(userID string, now time.Time) (Session, error) {
	if s.Keys == nil || s.Keys.Signer == nil {
		return Session{}, errNoSigningKey
	}

	claims := jwtx.NewSessionClaims(userID, s.Issuer, s.ttl(), now)
	token, err := s.Keys.Signer.Sign(claims)
	if err != nil {
		return Session{}, err
	}

	return Session{Token: token, ExpiresAt: claims.ExpiresAtTime()}, nil
}

// Verify checks a session credential at now and returns its subject.
func (s *SessionIssuer) Verify(raw string, now time.Time) (string, error) {
	if s.Keys == nil || s.Keys.Verifier == nil {
		return "", errNoVerifier
	}

	claims, err := s.Keys.Verifier.VerifyAt(raw, now)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
