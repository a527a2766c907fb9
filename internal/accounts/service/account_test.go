package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/sqlite"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.svc.Register(ctx, "alice", "  Alice@Example.com ", "pw123456")
	require.NoError(t, err)
	require.False(t, res.User.IsVerified)
	require.Equal(t, "alice@example.com", res.User.Email)
	require.NotEmpty(t, res.Session.Token)
	require.True(t, res.Session.ExpiresAt.After(h.clock))

	subject, err := h.svc.Sessions.Verify(res.Session.Token, h.clock)
	require.NoError(t, err)
	require.Equal(t, res.User.ID, subject)

	stored, err := h.store.Users().GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, res.User.ID, stored.ID)
	require.False(t, stored.IsVerified)
	require.NotEqual(t, "pw123456", stored.PasswordHash)
	require.NoError(t, h.hasher.Verify("pw123456", stored.PasswordHash))
	require.True(t, stored.HasPendingVerification(h.clock))

	code := h.notifier.last(t, "verification", "alice@example.com").Payload
	require.NotEmpty(t, code)
	require.Equal(t, cryptox.FingerprintToken(code), *stored.VerificationTokenHash)
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cases := []struct {
		name                      string
		username, email, password string
		field                     string
	}{
		{"missing username", "", "a@x.com", "pw", "username"},
		{"blank username", "   ", "a@x.com", "pw", "username"},
		{"missing email", "alice", "", "pw", "email"},
		{"malformed email", "alice", "not-an-email", "pw", "email"},
		{"missing password", "alice", "a@x.com", "", "password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.Register(ctx, tc.username, tc.email, tc.password)
			require.ErrorIs(t, err, ErrInvalidRequest)
			require.Equal(t, KindValidation, KindOf(err))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			require.Contains(t, verr.FieldMessages(), tc.field)
		})
	}

	require.Zero(t, h.notifier.count("verification"))
}

func TestRegisterConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.register(t, "alice", "a@x.com", "pw123456")

	_, err := h.svc.Register(ctx, "alice2", "A@X.com", "pw123456")
	require.ErrorIs(t, err, ErrEmailTaken)
	require.Equal(t, KindConflict, KindOf(err))

	_, err = h.svc.Register(ctx, "alice", "other@x.com", "pw123456")
	require.ErrorIs(t, err, ErrUsernameTaken)
	require.Equal(t, KindConflict, KindOf(err))

	require.Equal(t, 1, h.notifier.count("verification"))
}

func TestRegisterKeepsAccountWhenDispatchFails(t *testing.T) {
	h := newHarness(t)
	h.notifier.fail = true

	res, err := h.svc.Register(context.Background(), "alice", "a@x.com", "pw123456")
	require.NoError(t, err)

	_, err = h.store.Users().GetUserByID(context.Background(), res.User.ID)
	require.NoError(t, err)
	require.Equal(t, 1, h.notifier.count("verification"))
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, code := h.register(t, "alice", "a@x.com", "pw123456")

	t.Run("unknown email", func(t *testing.T) {
		_, err := h.svc.Login(ctx, "nobody@x.com", "pw123456")
		require.ErrorIs(t, err, ErrUserNotFound)
		require.Equal(t, KindNotFound, KindOf(err))
	})

	t.Run("empty fields", func(t *testing.T) {
		_, err := h.svc.Login(ctx, "", "pw123456")
		require.Equal(t, KindValidation, KindOf(err))
		_, err = h.svc.Login(ctx, "a@x.com", "")
		require.Equal(t, KindValidation, KindOf(err))
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := h.svc.Login(ctx, "a@x.com", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		require.Equal(t, KindUnauthorized, KindOf(err))
	})

	t.Run("unverified account is forbidden", func(t *testing.T) {
		_, err := h.svc.Login(ctx, "a@x.com", "pw123456")
		require.ErrorIs(t, err, ErrEmailNotVerified)
		require.Equal(t, KindForbidden, KindOf(err))
	})

	_, err := h.svc.VerifyEmail(ctx, code)
	require.NoError(t, err)

	t.Run("verified account logs in", func(t *testing.T) {
		h.advance(time.Minute)

		res, err := h.svc.Login(ctx, " A@X.COM ", "pw123456")
		require.NoError(t, err)
		require.NotEmpty(t, res.Session.Token)
		require.NotNil(t, res.User.LastLogin)
		require.True(t, res.User.LastLogin.Equal(h.clock))

		stored, err := h.store.Users().GetUserByID(ctx, res.User.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.LastLogin)
		require.WithinDuration(t, h.clock, *stored.LastLogin, time.Millisecond)
	})
}

func TestVerifyEmailIsSingleUse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	id, code := h.register(t, "alice", "a@x.com", "pw123456")

	user, err := h.svc.VerifyEmail(ctx, code)
	require.NoError(t, err)
	require.Equal(t, id, user.ID)
	require.True(t, user.IsVerified)
	require.Equal(t, "alice", h.notifier.last(t, "welcome", "a@x.com").Payload)

	_, err = h.svc.VerifyEmail(ctx, code)
	require.ErrorIs(t, err, ErrInvalidOrExpiredToken)
	require.Equal(t, KindInvalidToken, KindOf(err))

	stored, err := h.store.Users().GetUserByID(ctx, id)
	require.NoError(t, err)
	require.True(t, stored.IsVerified)
	require.Nil(t, stored.VerificationTokenHash)
	require.Nil(t, stored.VerificationTokenExpiresAt)
}

func TestVerifyEmailExpiry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, late := h.register(t, "late", "late@x.com", "pw123456")
	_, onTime := h.register(t, "ontime", "ontime@x.com", "pw123456")

	h.advance(DefaultVerificationTTL - time.Second)
	_, err := h.svc.VerifyEmail(ctx, onTime)
	require.NoError(t, err)

	// The boundary itself is already expired.
	h.advance(time.Second)
	_, err = h.svc.VerifyEmail(ctx, late)
	require.ErrorIs(t, err, ErrInvalidOrExpiredToken)

	h.advance(time.Hour)
	_, err = h.svc.VerifyEmail(ctx, late)
	require.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestVerifyEmailRejectsEmptyAndUnknownCodes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.VerifyEmail(ctx, "  ")
	require.Equal(t, KindValidation, KindOf(err))

	_, err = h.svc.VerifyEmail(ctx, "never-issued")
	require.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestForgotPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email is reported by default", func(t *testing.T) {
		h := newHarness(t)
		err := h.svc.ForgotPassword(ctx, "nobody@x.com")
		require.ErrorIs(t, err, ErrUserNotFound)
		require.Zero(t, h.notifier.count("password_reset"))
	})

	t.Run("unknown email is concealed when configured", func(t *testing.T) {
		h := newHarness(t)
		h.svc.Config.ConcealUnknownEmail = true
		require.NoError(t, h.svc.ForgotPassword(ctx, "nobody@x.com"))
		require.Zero(t, h.notifier.count("password_reset"))
	})

	t.Run("empty email", func(t *testing.T) {
		h := newHarness(t)
		require.Equal(t, KindValidation, KindOf(h.svc.ForgotPassword(ctx, "")))
	})

	t.Run("a newer request replaces the pending token", func(t *testing.T) {
		h := newHarness(t)
		id := h.registerVerified(t, "alice", "a@x.com", "pw123456")

		require.NoError(t, h.svc.ForgotPassword(ctx, "a@x.com"))
		first := resetTokenFrom(t, h.notifier.last(t, "password_reset", "a@x.com").Payload)

		require.NoError(t, h.svc.ForgotPassword(ctx, "A@x.com"))
		second := resetTokenFrom(t, h.notifier.last(t, "password_reset", "a@x.com").Payload)
		require.NotEqual(t, first, second)

		stored, err := h.store.Users().GetUserByID(ctx, id)
		require.NoError(t, err)
		require.True(t, stored.HasPendingReset(h.clock))
		require.Equal(t, cryptox.FingerprintToken(second), *stored.ResetTokenHash)

		require.ErrorIs(t, h.svc.ResetPassword(ctx, first, "newpw789"), ErrInvalidOrExpiredToken)
		require.NoError(t, h.svc.ResetPassword(ctx, second, "newpw789"))
	})
}

func TestResetPassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	id := h.registerVerified(t, "alice", "a@x.com", "pw123456")
	before, err := h.store.Users().GetUserByID(ctx, id)
	require.NoError(t, err)

	require.NoError(t, h.svc.ForgotPassword(ctx, "a@x.com"))
	token := resetTokenFrom(t, h.notifier.last(t, "password_reset", "a@x.com").Payload)

	require.Equal(t, KindValidation, KindOf(h.svc.ResetPassword(ctx, token, "")))
	require.ErrorIs(t, h.svc.ResetPassword(ctx, "", "newpw789"), ErrInvalidOrExpiredToken)

	require.NoError(t, h.svc.ResetPassword(ctx, token, "newpw789"))
	h.notifier.last(t, "reset_success", "a@x.com")

	after, err := h.store.Users().GetUserByID(ctx, id)
	require.NoError(t, err)
	require.NotEqual(t, before.PasswordHash, after.PasswordHash)
	require.ErrorIs(t, h.hasher.Verify("pw123456", after.PasswordHash), cryptox.ErrPasswordMismatch)
	require.NoError(t, h.hasher.Verify("newpw789", after.PasswordHash))
	require.Nil(t, after.ResetTokenHash)
	require.Nil(t, after.ResetTokenExpiresAt)

	require.ErrorIs(t, h.svc.ResetPassword(ctx, token, "another1"), ErrInvalidOrExpiredToken)
}

func TestResetPasswordExpiry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.registerVerified(t, "alice", "a@x.com", "pw123456")
	require.NoError(t, h.svc.ForgotPassword(ctx, "a@x.com"))
	token := resetTokenFrom(t, h.notifier.last(t, "password_reset", "a@x.com").Payload)

	h.advance(DefaultResetTTL)
	require.ErrorIs(t, h.svc.ResetPassword(ctx, token, "newpw789"), ErrInvalidOrExpiredToken)

	_, err := h.svc.Login(ctx, "a@x.com", "pw123456")
	require.NoError(t, err)
}

func TestMe(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	id, _ := h.register(t, "alice", "a@x.com", "pw123456")

	view, err := h.svc.Me(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "alice", view.Username)

	_, err = h.svc.Me(ctx, "01J00000000000000000000000")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestScenarioRegisterVerifyLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.svc.Register(ctx, "alice", "a@x.com", "pw123456")
	require.NoError(t, err)
	require.False(t, res.User.IsVerified)
	code := h.notifier.last(t, "verification", "a@x.com").Payload

	_, err = h.svc.VerifyEmail(ctx, "wrong-code")
	require.ErrorIs(t, err, ErrInvalidOrExpiredToken)

	user, err := h.svc.VerifyEmail(ctx, code)
	require.NoError(t, err)
	require.True(t, user.IsVerified)

	h.advance(time.Minute)
	login, err := h.svc.Login(ctx, "a@x.com", "pw123456")
	require.NoError(t, err)
	require.NotEmpty(t, login.Session.Token)
	require.NotNil(t, login.User.LastLogin)
}

func TestScenarioForgotResetLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.registerVerified(t, "alice", "a@x.com", "pw123456")

	require.NoError(t, h.svc.ForgotPassword(ctx, "a@x.com"))
	token := resetTokenFrom(t, h.notifier.last(t, "password_reset", "a@x.com").Payload)

	require.NoError(t, h.svc.ResetPassword(ctx, token, "newpw789"))

	_, err := h.svc.Login(ctx, "a@x.com", "pw123456")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = h.svc.Login(ctx, "a@x.com", "newpw789")
	require.NoError(t, err)
}

func TestStoreFailuresSurfaceAsDependency(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Close())

	_, err := h.svc.Login(context.Background(), "a@x.com", "pw123456")
	require.ErrorIs(t, err, ErrDependency)
	require.Equal(t, KindDependency, KindOf(err))
	require.NotErrorIs(t, err, store.ErrNotFound)
}

func TestResetURL(t *testing.T) {
	require.Equal(t, "https://app.test/reset-password/abc", ResetURL("https://app.test/", "abc"))
	require.Equal(t, "https://app.test/reset-password/abc", ResetURL("https://app.test", "abc"))
}

func TestConcurrentRegistrationsOnFileStore(t *testing.T) {
	h := newHarness(t)

	fileStore, err := sqlite.NewStore(sqlite.FileDSN(filepath.Join(t.TempDir(), "accounts.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = fileStore.Close() })
	require.NoError(t, fileStore.ApplyMigrations())
	h.svc.Store = fileStore

	ctx := context.Background()
	const workers = 32
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Register(ctx, fmt.Sprintf("user%d", i), fmt.Sprintf("user%d@x.com", i), "pw123456")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, workers, h.notifier.count("verification"))
}
