package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/aussiebroadwan/accounts/pkg/idx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const DefaultMailTimeout = 10 * time.Second

// PasswordHasher is satisfied by *cryptox.Hasher.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) error
}

// AccountConfig is fixed at construction.
type AccountConfig struct {
	VerificationTTL time.Duration
	ResetTTL        time.Duration

	// ClientURL is the front-end origin reset links point at.
	ClientURL string

	// ConcealUnknownEmail makes ForgotPassword succeed silently for unknown
	// addresses instead of reporting NotFound.
	ConcealUnknownEmail bool

	MailTimeout time.Duration
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User    domain.UserView
	Session Session
}

// AccountService drives the account lifecycle: registration, email
// verification, login and password reset.
type AccountService struct {
	Store    store.Store
	Hasher   PasswordHasher
	Sessions *SessionIssuer
	Notifier Notifier
	Config   AccountConfig

	// Now defaults to time.Now. Tests pin it.
	Now func() time.Time
}

func (s *AccountService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *AccountService) verificationIssuer() TokenIssuer {
	ttl := s.Config.VerificationTTL
	if ttl <= 0 {
		ttl = DefaultVerificationTTL
	}
	return TokenIssuer{Size: cryptox.TokenSize256, TTL: ttl}
}

func (s *AccountService) resetIssuer() TokenIssuer {
	ttl := s.Config.ResetTTL
	if ttl <= 0 {
		ttl = DefaultResetTTL
	}
	return TokenIssuer{Size: cryptox.TokenSize256, TTL: ttl}
}

// Register creates an unverified account, signs the caller in and sends the
// verification code.
func (s *AccountService) Register(ctx context.Context, username, email, password string) (AuthResult, error) {
	log := slogx.FromContext(ctx)
	now := s.now()

	username = strings.TrimSpace(username)
	email = domain.NormalizeEmail(email)

	if err := validate(validation.Errors{
		"username": validation.Validate(username, validation.Required),
		"email":    validation.Validate(email, validation.Required, is.Email),
		"password": validation.Validate(password, validation.Required),
	}); err != nil {
		return AuthResult{}, err
	}

	digest, err := s.Hasher.Hash(password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return AuthResult{}, dependency(err)
	}

	verification, err := s.verificationIssuer().Issue(now)
	if err != nil {
		log.Error("failed to issue verification token", slog.Any("error", err))
		return AuthResult{}, dependency(err)
	}

	user := domain.User{
		ID:                         idx.NewAt(now).String(),
		Username:                   username,
		Email:                      email,
		PasswordHash:               digest,
		IsVerified:                 false,
		VerificationTokenHash:      &verification.Fingerprint,
		VerificationTokenExpiresAt: &verification.ExpiresAt,
		CreatedAt:                  now,
		UpdatedAt:                  now,
	}

	session, err := s.Sessions.Issue(user.ID, now)
	if err != nil {
		log.Error("failed to issue session", slog.Any("error", err))
		return AuthResult{}, dependency(err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Users().GetUserByEmail(ctx, email); err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, store.ErrNotFound) {
			return dependency(err)
		}

		if _, err := tx.Users().GetUserByUsername(ctx, username); err == nil {
			return ErrUsernameTaken
		} else if !errors.Is(err, store.ErrNotFound) {
			return dependency(err)
		}

		if err := tx.Users().CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return err
			}
			return dependency(err)
		}
		return nil
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		// Lost a race with a concurrent registration between check and insert.
		err = s.conflictFor(ctx, email)
	}
	if err != nil {
		if KindOf(err) == KindConflict {
			log.Info("registration conflict", slog.String("username", username), slog.Any("reason", err))
		} else {
			log.Error("failed to create user", slog.Any("error", err))
		}
		return AuthResult{}, err
	}

	log.Info("user registered", slog.String("user_id", user.ID))

	s.notify(ctx, "verification", email, func(ctx context.Context) error {
		return s.Notifier.SendVerification(ctx, email, verification.Raw)
	})

	return AuthResult{User: user.View(), Session: session}, nil
}

func (s *AccountService) conflictFor(ctx context.Context, email string) error {
	if _, err := s.Store.Users().GetUserByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	}
	return ErrUsernameTaken
}

// Login checks credentials for a verified account and records the login.
func (s *AccountService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	log := slogx.FromContext(ctx)
	now := s.now()

	email = domain.NormalizeEmail(email)
	if err := validate(validation.Errors{
		"email":    validation.Validate(email, validation.Required),
		"password": validation.Validate(password, validation.Required),
	}); err != nil {
		return AuthResult{}, err
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("login for unknown email", slog.String("email", slogx.RedactEmail(email)))
			return AuthResult{}, ErrUserNotFound
		}
		log.Error("failed to fetch user", slog.Any("error", err))
		return AuthResult{}, dependency(err)
	}

	if err := s.Hasher.Verify(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			log.Info("login with invalid password", slog.String("user_id", user.ID))
			return AuthResult{}, ErrInvalidCredentials
		}
		log.Error("failed to verify password", slog.String("user_id", user.ID), slog.Any("error", err))
		return AuthResult{}, dependency(err)
	}

	if !user.IsVerified {
		log.Info("login before email verification", slog.String("user_id", user.ID))
		return AuthResult{}, ErrEmailNotVerified
	}

	session, err := s.Sessions.Issue(user.ID, now)
	if err != nil {
		log.Error("failed to issue session", slog.Any("error", err))
		return AuthResult{}, dependency(err)
	}

	if err := s.Store.Users().UpdateLastLogin(ctx, user.ID, now); err != nil {
		log.Error("failed to record login", slog.String("user_id", user.ID), slog.Any("error", err))
		return AuthResult{}, dependency(err)
	}
	user.LastLogin = &now
	user.UpdatedAt = now

	log.Info("user logged in", slog.String("user_id", user.ID))
	return AuthResult{User: user.View(), Session: session}, nil
}

// VerifyEmail consumes a verification code and marks the account verified.
func (s *AccountService) VerifyEmail(ctx context.Context, code string) (domain.UserView, error) {
	log := slogx.FromContext(ctx)
	now := s.now()

	code = strings.TrimSpace(code)
	if err := validate(validation.Errors{
		"code": validation.Validate(code, validation.Required),
	}); err != nil {
		return domain.UserView{}, err
	}

	user, err := s.Store.Users().ConsumeVerificationToken(ctx, cryptox.FingerprintToken(code), now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("invalid or expired verification code")
			return domain.UserView{}, ErrInvalidOrExpiredToken
		}
		log.Error("failed to consume verification code", slog.Any("error", err))
		return domain.UserView{}, dependency(err)
	}

	log.Info("email verified", slog.String("user_id", user.ID))

	s.notify(ctx, "welcome", user.Email, func(ctx context.Context) error {
		return s.Notifier.SendWelcome(ctx, user.Email, user.Username)
	})

	return user.View(), nil
}

// ForgotPassword issues a reset token, replacing any pending one, and mails
// the reset link.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	log := slogx.FromContext(ctx)
	now := s.now()

	email = domain.NormalizeEmail(email)
	if err := validate(validation.Errors{
		"email": validation.Validate(email, validation.Required),
	}); err != nil {
		return err
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("password reset for unknown email", slog.String("email", slogx.RedactEmail(email)))
			if s.Config.ConcealUnknownEmail {
				return nil
			}
			return ErrUserNotFound
		}
		log.Error("failed to fetch user", slog.Any("error", err))
		return dependency(err)
	}

	reset, err := s.resetIssuer().Issue(now)
	if err != nil {
		log.Error("failed to issue reset token", slog.Any("error", err))
		return dependency(err)
	}

	if err := s.Store.Users().SetResetToken(ctx, user.ID, reset.Fingerprint, reset.ExpiresAt, now); err != nil {
		log.Error("failed to store reset token", slog.String("user_id", user.ID), slog.Any("error", err))
		return dependency(err)
	}

	log.Info("password reset requested", slog.String("user_id", user.ID))

	link := ResetURL(s.Config.ClientURL, reset.Raw)
	s.notify(ctx, "password_reset", user.Email, func(ctx context.Context) error {
		return s.Notifier.SendPasswordReset(ctx, user.Email, link)
	})

	return nil
}

// ResetPassword consumes a reset token and replaces the password digest.
func (s *AccountService) ResetPassword(ctx context.Context, token, password string) error {
	log := slogx.FromContext(ctx)
	now := s.now()

	if err := validate(validation.Errors{
		"password": validation.Validate(password, validation.Required),
	}); err != nil {
		return err
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidOrExpiredToken
	}

	digest, err := s.Hasher.Hash(password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return dependency(err)
	}

	user, err := s.Store.Users().ConsumeResetToken(ctx, cryptox.FingerprintToken(token), digest, now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("invalid or expired reset token")
			return ErrInvalidOrExpiredToken
		}
		log.Error("failed to consume reset token", slog.Any("error", err))
		return dependency(err)
	}

	log.Info("password reset", slog.String("user_id", user.ID))

	s.notify(ctx, "reset_success", user.Email, func(ctx context.Context) error {
		return s.Notifier.SendResetSuccess(ctx, user.Email)
	})

	return nil
}

// Me returns the account behind a session subject.
func (s *AccountService) Me(ctx context.Context, userID string) (domain.UserView, error) {
	id, err := idx.Parse(userID)
	if err != nil {
		return domain.UserView{}, ErrUserNotFound
	}

	user, err := s.Store.Users().GetUserByID(ctx, id.String())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.UserView{}, ErrUserNotFound
		}
		return domain.UserView{}, dependency(err)
	}
	return user.View(), nil
}

// ResetURL builds the front-end link for a raw reset token.
func ResetURL(clientURL, token string) string {
	return strings.TrimRight(clientURL, "/") + "/reset-password/" + token
}

// notify runs send after the state change has been persisted. Failures are
// logged and never undo or fail the operation.
func (s *AccountService) notify(ctx context.Context, kind, to string, send func(context.Context) error) {
	if s.Notifier == nil {
		return
	}

	timeout := s.Config.MailTimeout
	if timeout <= 0 {
		timeout = DefaultMailTimeout
	}

	// Detached so a client hanging up does not abort delivery.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := send(ctx); err != nil {
		slogx.FromContext(ctx).Warn("notification dispatch failed",
			slog.String("kind", kind),
			slog.String("to", slogx.RedactEmail(to)),
			slog.Any("error", err),
		)
	}
}
