package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/accounts/pkg/jwtx"
)

// sessionLeeway is the clock skew tolerated when verifying session exp/nbf.
const sessionLeeway = 30 * time.Second

// InitSessionKeys creates the KeyManager that signs session credentials.
//
// With session_key_file unset the Ed25519 key is generated in memory and all
// sessions end when the process restarts. With it set, the key is read from
// (or created at) that PEM file and sessions survive restarts.
func InitSessionKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyManager, error) {
	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{
		Issuer:  cfg.SessionIssuer,
		KeyFile: cfg.SessionKeyFile,
		Leeway:  sessionLeeway,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session keys: %w", err)
	}

	mode := "ephemeral"
	if cfg.SessionKeyFile != "" {
		mode = "persistent"
	}
	logger.Info("session signing key loaded",
		"mode", mode,
		"kid", km.Signer.KID(),
		"alg", km.Signer.Alg(),
	)
	return km, nil
}
