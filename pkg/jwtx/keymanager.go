package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/accounts/pkg/cryptox"
)

// KeyManager wires a signing key, its KeySet and a Verifier together.
type KeyManager struct {
	Signer   Signer
	Verifier Verifier
	KeySet   *KeySet
}

// KeyManagerOptions configures NewKeyManager.
type KeyManagerOptions struct {
	// Issuer is required and enforced on verification.
	Issuer string

	// KeyFile is a PKCS8 PEM Ed25519 private key. It is created on first use.
	// Empty means an ephemeral in-memory key: sessions end on restart.
	KeyFile string

	// Leeway is the allowed clock skew when verifying exp/nbf.
	Leeway time.Duration
}

// NewKeyManager loads or generates the signing key and returns a ready manager.
func NewKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, errors.New("jwtx: Issuer is required")
	}

	var (
		pemKey []byte
		err    error
	)
	if opts.KeyFile != "" {
		pemKey, err = cryptox.LoadOrCreateEd25519Key(opts.KeyFile)
	} else {
		pemKey, err = cryptox.GenerateEd25519Key()
	}
	if err != nil {
		return nil, fmt.Errorf("jwtx: signing key: %w", err)
	}

	signer, err := NewSignerEdDSA("", pemKey)
	if err != nil {
		return nil, err
	}

	keyset := NewKeySet()
	if err := keyset.AddSigner(signer); err != nil {
		return nil, fmt.Errorf("jwtx: add signer to keyset: %w", err)
	}

	return &KeyManager{
		Signer:   signer,
		Verifier: NewVerifierEdDSA(keyset, opts.Issuer, opts.Leeway),
		KeySet:   keyset,
	}, nil
}

// IsReady reports whether signing keys are loaded.
func (km *KeyManager) IsReady() bool {
	return km != nil && km.KeySet.IsReady()
}
