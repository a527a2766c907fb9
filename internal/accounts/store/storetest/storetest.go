// Package storetest holds the behavioural suite every store driver must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/aussiebroadwan/accounts/pkg/idx"
	"github.com/stretchr/testify/require"
)

// Factory returns a freshly migrated, empty store. It is called once per subtest.
type Factory func(t *testing.T) store.Store

// NewUser builds an unverified user holding a pending verification token.
// The plaintext token is returned alongside.
func NewUser(t *testing.T, username string, now time.Time) (domain.User, string) {
	t.Helper()

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)

	hash := cryptox.FingerprintToken(token)
	exp := now.Add(24 * time.Hour)

	return domain.User{
		ID:                         idx.New().String(),
		Username:                   username,
		Email:                      username + "@example.com",
		PasswordHash:               "$argon2id$v=19$m=8,t=1,p=1$c2FsdA$aGFzaA",
		VerificationTokenHash:      &hash,
		VerificationTokenExpiresAt: &exp,
		CreatedAt:                  now,
		UpdatedAt:                  now,
	}, token
}

// Run exercises the Users repository and transaction semantics.
func Run(t *testing.T, newStore Factory) {
	// Drivers differ in stored precision; microseconds survive both.
	now := time.Now().UTC().Truncate(time.Microsecond)
	ctx := context.Background()

	t.Run("create and lookup", func(t *testing.T) {
		s := newStore(t)
		u, _ := NewUser(t, "alice", now)
		require.NoError(t, s.Users().CreateUser(ctx, u))

		byID, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, u.Username, byID.Username)
		require.Equal(t, u.Email, byID.Email)
		require.Equal(t, u.PasswordHash, byID.PasswordHash)
		require.False(t, byID.IsVerified)
		require.NotNil(t, byID.VerificationTokenHash)
		require.Equal(t, *u.VerificationTokenHash, *byID.VerificationTokenHash)
		require.NotNil(t, byID.VerificationTokenExpiresAt)
		require.WithinDuration(t, *u.VerificationTokenExpiresAt, *byID.VerificationTokenExpiresAt, time.Millisecond)
		require.Nil(t, byID.ResetTokenHash)
		require.Nil(t, byID.LastLogin)
		require.WithinDuration(t, now, byID.CreatedAt, time.Millisecond)

		byEmail, err := s.Users().GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		require.Equal(t, u.ID, byEmail.ID)

		byName, err := s.Users().GetUserByUsername(ctx, u.Username)
		require.NoError(t, err)
		require.Equal(t, u.ID, byName.ID)
	})

	t.Run("missing user", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Users().GetUserByID(ctx, idx.New().String())
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.Users().GetUserByEmail(ctx, "nobody@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)

		err = s.Users().UpdateLastLogin(ctx, idx.New().String(), now)
		require.ErrorIs(t, err, store.ErrNotFound)

		err = s.Users().SetResetToken(ctx, idx.New().String(), "x", now.Add(time.Hour), now)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate email and username", func(t *testing.T) {
		s := newStore(t)
		u, _ := NewUser(t, "bob", now)
		require.NoError(t, s.Users().CreateUser(ctx, u))

		sameEmail, _ := NewUser(t, "bobby", now)
		sameEmail.Email = u.Email
		require.ErrorIs(t, s.Users().CreateUser(ctx, sameEmail), store.ErrAlreadyExists)

		sameName, _ := NewUser(t, "bob", now)
		sameName.Email = "other@example.com"
		require.ErrorIs(t, s.Users().CreateUser(ctx, sameName), store.ErrAlreadyExists)
	})

	t.Run("verification token is single use", func(t *testing.T) {
		s := newStore(t)
		u, token := NewUser(t, "carol", now)
		require.NoError(t, s.Users().CreateUser(ctx, u))

		got, err := s.Users().ConsumeVerificationToken(ctx, cryptox.FingerprintToken(token), now)
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
		require.True(t, got.IsVerified)
		require.Nil(t, got.VerificationTokenHash)
		require.Nil(t, got.VerificationTokenExpiresAt)

		_, err = s.Users().ConsumeVerificationToken(ctx, cryptox.FingerprintToken(token), now)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("verification token expiry is exclusive", func(t *testing.T) {
		s := newStore(t)
		u, token := NewUser(t, "dave", now)
		require.NoError(t, s.Users().CreateUser(ctx, u))

		_, err := s.Users().ConsumeVerificationToken(ctx, cryptox.FingerprintToken(token), *u.VerificationTokenExpiresAt)
		require.ErrorIs(t, err, store.ErrNotFound)

		stored, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.False(t, stored.IsVerified)
	})

	t.Run("reset token overwrite and consume", func(t *testing.T) {
		s := newStore(t)
		u, _ := NewUser(t, "erin", now)
		require.NoError(t, s.Users().CreateUser(ctx, u))

		first := cryptox.FingerprintToken("first")
		second := cryptox.FingerprintToken("second")
		require.NoError(t, s.Users().SetResetToken(ctx, u.ID, first, now.Add(time.Hour), now))
		require.NoError(t, s.Users().SetResetToken(ctx, u.ID, second, now.Add(time.Hour), now))

		_, err := s.Users().ConsumeResetToken(ctx, first, "new-digest", now)
		require.ErrorIs(t, err, store.ErrNotFound)

		got, err := s.Users().ConsumeResetToken(ctx, second, "new-digest", now)
		require.NoError(t, err)
		require.Equal(t, "new-digest", got.PasswordHash)
		require.Nil(t, got.ResetTokenHash)
		require.Nil(t, got.ResetTokenExpiresAt)

		_, err = s.Users().ConsumeResetToken(ctx, second, "again", now)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("expired reset token", func(t *testing.T) {
		s := newStore(t)
		u, _ := NewUser(t, "frank", now)
		require.NoError(t, s.Users().CreateUser(ctx, u))

		hash := cryptox.FingerprintToken("reset")
		require.NoError(t, s.Users().SetResetToken(ctx, u.ID, hash, now.Add(time.Hour), now))

		_, err := s.Users().ConsumeResetToken(ctx, hash, "new-digest", now.Add(2*time.Hour))
		require.ErrorIs(t, err, store.ErrNotFound)

		stored, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, u.PasswordHash, stored.PasswordHash)
	})

	t.Run("update last login", func(t *testing.T) {
		s := newStore(t)
		u, _ := NewUser(t, "grace", now)
		require.NoError(t, s.Users().CreateUser(ctx, u))

		at := now.Add(time.Minute)
		require.NoError(t, s.Users().UpdateLastLogin(ctx, u.ID, at))

		stored, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.LastLogin)
		require.WithinDuration(t, at, *stored.LastLogin, time.Millisecond)
	})

	t.Run("clear expired tokens", func(t *testing.T) {
		s := newStore(t)
		stale, _ := NewUser(t, "heidi", now.Add(-48*time.Hour))
		fresh, _ := NewUser(t, "ivan", now)
		require.NoError(t, s.Users().CreateUser(ctx, stale))
		require.NoError(t, s.Users().CreateUser(ctx, fresh))
		require.NoError(t, s.Users().SetResetToken(ctx, fresh.ID, "stale-reset", now.Add(-time.Minute), now))

		n, err := s.Users().ClearExpiredTokens(ctx, now)
		require.NoError(t, err)
		require.EqualValues(t, 2, n)

		got, err := s.Users().GetUserByID(ctx, stale.ID)
		require.NoError(t, err)
		require.Nil(t, got.VerificationTokenHash)
		require.Nil(t, got.VerificationTokenExpiresAt)

		got, err = s.Users().GetUserByID(ctx, fresh.ID)
		require.NoError(t, err)
		require.NotNil(t, got.VerificationTokenHash)
		require.Nil(t, got.ResetTokenHash)

		n, err = s.Users().ClearExpiredTokens(ctx, now)
		require.NoError(t, err)
		require.Zero(t, n)
	})

	t.Run("transaction rollback", func(t *testing.T) {
		s := newStore(t)
		u, _ := NewUser(t, "judy", now)

		boom := errors.New("boom")
		err := s.WithTx(ctx, func(tx store.Tx) error {
			require.NoError(t, tx.Users().CreateUser(ctx, u))
			return boom
		})
		require.ErrorIs(t, err, boom)

		_, err = s.Users().GetUserByID(ctx, u.ID)
		require.ErrorIs(t, err, store.ErrNotFound)

		require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
			return tx.Users().CreateUser(ctx, u)
		}))
		_, err = s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Ping(ctx))
	})
}
