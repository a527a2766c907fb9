package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a session credential and returns its claims.
type Verifier interface {
	Verify(token string) (Claims, error)
	VerifyAt(token string, now time.Time) (Claims, error)
}

var (
	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// EdDSAVerifier validates credentials signed by any key in its KeySet.
type EdDSAVerifier struct {
	keys   *KeySet
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// NewVerifierEdDSA returns a verifier that requires iss == issuer (unless
// issuer is empty) and tolerates leeway of clock skew on exp/nbf.
func NewVerifierEdDSA(keys *KeySet, issuer string, leeway time.Duration) *EdDSAVerifier {
	return &EdDSAVerifier{keys: keys, issuer: issuer, leeway: leeway, now: time.Now}
}

// Verify checks signature, algorithm, issuer and validity window against
// the wall clock.
func (v *EdDSAVerifier) Verify(tokenStr string) (Claims, error) {
	return v.VerifyAt(tokenStr, v.now())
}

// VerifyAt is Verify with the validity window checked at now.
func (v *EdDSAVerifier) VerifyAt(tokenStr string, now time.Time) (Claims, error) {
	// exp/nbf are checked below against now, not by the parser.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("jwtx: missing kid")
		}
		pub, err := v.keys.Get(kid)
		if err != nil {
			return nil, fmt.Errorf("jwtx: kid %q: %w", kid, err)
		}
		return pub, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return Claims{}, fmt.Errorf("jwtx: parse or verify: %w", err)
	}

	if err := claims.ValidateIssuer(v.issuer); err != nil {
		return Claims{}, err
	}
	if claims.Subject == "" {
		return Claims{}, ErrInvalidClaim
	}
	if err := claims.ValidateTime(now, v.leeway); err != nil {
		return Claims{}, err
	}
	return claims, nil
}
