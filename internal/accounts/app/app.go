package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/accounts/internal/accounts/http"
	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
)

// BuildVersion is overridden at build time with -ldflags "-X ...app.BuildVersion=...".
var BuildVersion = "v0.1.0"

// Application encapsulates the accounts service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db         store.Store
	keyManager *jwtx.KeyManager

	accountService      *service.AccountService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg Config) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "accounts-service",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
}

// New creates an Application with all dependencies initialized.
func New(cfg Config, logger *slog.Logger) (*Application, error) {
	app := &Application{cfg: cfg, logger: logger}

	db, err := OpenStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	app.db = db

	if err := app.initServices(); err != nil {
		_ = db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler returns the fully wired HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("accounts service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			_ = app.db.Close()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests, stops housekeeping and closes the store.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down accounts service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("accounts service stopped")
	return nil
}

func (app *Application) initServices() error {
	keyManager, err := InitSessionKeys(app.cfg, app.logger)
	if err != nil {
		return err
	}
	app.keyManager = keyManager

	hasher, err := NewHasher(app.cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize password hasher: %w", err)
	}

	notifier, err := NewNotifier(app.cfg, app.logger)
	if err != nil {
		return err
	}

	app.accountService = &service.AccountService{
		Store:  app.db,
		Hasher: hasher,
		Sessions: &service.SessionIssuer{
			Keys:   app.keyManager,
			Issuer: app.cfg.SessionIssuer,
			TTL:    app.cfg.SessionTTL,
		},
		Notifier: notifier,
		Config: service.AccountConfig{
			VerificationTTL:     app.cfg.VerificationTokenTTL,
			ResetTTL:            app.cfg.ResetTokenTTL,
			ClientURL:           app.cfg.ClientURL,
			ConcealUnknownEmail: app.cfg.ConcealUnknownEmail,
			MailTimeout:         app.cfg.MailTimeout,
		},
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager.KeySet,
		app.keyManager.Verifier,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.Accounts = app.accountService
	router.Cookies = httpapi.CookieConfig{Secure: !app.cfg.IsDev()}
	router.DevErrors = app.cfg.IsDev()
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// RunHousekeeping performs one cleanup pass against the configured store.
func RunHousekeeping(ctx context.Context, cfg Config, logger *slog.Logger) (int64, error) {
	db, err := OpenStore(cfg, logger)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	hk := service.NewHousekeepingService(db, logger, cfg.HousekeepingInterval)
	return hk.RunOnce(slogx.WithContext(ctx, logger), time.Now().UTC())
}
