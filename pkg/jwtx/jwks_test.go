package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEd25519JWKRoundTrip(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	j := NewEd25519JWK(Thumbprint(pub), pub)
	require.Equal(t, "OKP", j.Kty)
	require.Equal(t, "sig", j.Use)
	require.Equal(t, "EdDSA", j.Alg)

	parsed, err := parseJWK(j)
	require.NoError(t, err)
	require.Equal(t, pub, parsed)

	raw, err := json.Marshal(JWKS{Keys: []JWK{j}})
	require.NoError(t, err)
	require.NotContains(t, string(raw), `"y"`)
}

func TestJWK_PEM(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	pemStr, err := NewEd25519JWK("k", pub).PEM()
	require.NoError(t, err)

	block, _ := pem.Decode([]byte(pemStr))
	require.NotNil(t, block)
	require.Equal(t, "PUBLIC KEY", block.Type)

	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	require.NoError(t, err)
	require.Equal(t, pub, key)
}

func TestParseJWKRejectsForeignKeys(t *testing.T) {
	_, err := parseJWK(JWK{Kty: "RSA", Alg: "RS256"})
	require.Error(t, err)

	_, err = parseJWK(JWK{Kty: "OKP", Crv: "X25519", X: "AAAA"})
	require.Error(t, err)

	_, err = parseJWK(JWK{Kty: "OKP", Crv: "Ed25519", X: "AAAA"})
	require.Error(t, err)
}

func TestKeySetResetAndDedup(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	j := NewEd25519JWK("k1", pub)

	ks := NewKeySet()
	require.False(t, ks.IsReady())
	require.NoError(t, ks.AddJWK(j))
	require.NoError(t, ks.AddJWK(j))
	require.Len(t, ks.PublicJWKS().Keys, 1)
	require.True(t, ks.IsReady())

	pub2, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	require.NoError(t, ks.ResetFromJWKS(JWKS{Keys: []JWK{NewEd25519JWK("k2", pub2)}}))

	_, err = ks.Get("k1")
	require.ErrorIs(t, err, ErrNoKey)
	got, err := ks.Get("k2")
	require.NoError(t, err)
	require.Equal(t, pub2, got)
}
