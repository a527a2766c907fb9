package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/accounts/internal/accounts/mail"
	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/postgres"
	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/sqlite"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
)

// OpenStore connects the configured record store and applies its migrations.
func OpenStore(cfg Config, logger *slog.Logger) (store.Store, error) {
	var (
		st  store.Store
		err error
	)

	switch cfg.DatabaseDriver {
	case DriverPostgres:
		st, err = postgres.NewStore(cfg.DatabaseURL)
	default:
		st, err = sqlite.NewStore(sqlite.FileDSN(cfg.DatabaseFile))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := st.ApplyMigrations(); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}

	logger.Info("database migrations applied successfully", "driver", cfg.DatabaseDriver)
	return st, nil
}

// NewHasher loads the pepper and builds the password hasher.
func NewHasher(cfg Config) (*cryptox.Hasher, error) {
	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		return nil, err
	}

	return cryptox.NewHasher(cryptox.HasherConfig{
		Algorithm:  cfg.HashAlgorithm,
		BcryptCost: cfg.BcryptCost,
		Pepper:     pepper,
	})
}

// NewNotifier builds the mail dispatcher on the configured transport.
func NewNotifier(cfg Config, logger *slog.Logger) (service.Notifier, error) {
	renderer, err := mail.NewRenderer(cfg.ProductName, cfg.ClientURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load mail templates: %w", err)
	}

	var transport mail.Transport
	switch cfg.MailDriver {
	case MailDriverSMTP:
		transport, err = mail.NewSMTPTransport(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
			Timeout:  cfg.MailTimeout,
		})
		if err != nil {
			return nil, err
		}
	default:
		logger.Warn("mail driver is log: messages are written to the log, not sent")
		transport = &mail.LogTransport{Logger: logger}
	}

	return &mail.Dispatcher{
		Renderer:        renderer,
		Transport:       transport,
		VerificationTTL: cfg.VerificationTokenTTL,
		ResetTTL:        cfg.ResetTokenTTL,
	}, nil
}
