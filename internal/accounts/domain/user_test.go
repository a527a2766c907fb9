package domain_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "alice@example.com", domain.NormalizeEmail("  Alice@Example.COM \n"))
	require.Equal(t, "", domain.NormalizeEmail("   "))
}

func TestUserState(t *testing.T) {
	require.Equal(t, domain.StateUnverified, domain.User{}.State())
	require.Equal(t, domain.StateVerified, domain.User{IsVerified: true}.State())
}

func TestHasPendingReset(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	hash := "fp"
	later := now.Add(time.Minute)
	earlier := now.Add(-time.Minute)

	require.False(t, domain.User{}.HasPendingReset(now))
	require.True(t, domain.User{ResetTokenHash: &hash, ResetTokenExpiresAt: &later}.HasPendingReset(now))
	require.False(t, domain.User{ResetTokenHash: &hash, ResetTokenExpiresAt: &earlier}.HasPendingReset(now))
	require.False(t, domain.User{ResetTokenHash: &hash, ResetTokenExpiresAt: &now}.HasPendingReset(now))
}

func TestHasPendingVerification(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	hash := "fp"
	later := now.Add(time.Hour)

	require.True(t, domain.User{VerificationTokenHash: &hash, VerificationTokenExpiresAt: &later}.HasPendingVerification(now))
	require.False(t, domain.User{VerificationTokenHash: &hash}.HasPendingVerification(now))
}

func TestViewOmitsSecrets(t *testing.T) {
	hash := "fp"
	u := domain.User{
		ID:                    "01HZX",
		Username:              "alice",
		Email:                 "alice@example.com",
		PasswordHash:          "$argon2id$...",
		VerificationTokenHash: &hash,
	}
	v := u.View()
	require.Equal(t, "01HZX", v.ID)
	require.Equal(t, "alice", v.Username)
	require.Equal(t, "alice@example.com", v.Email)
	require.False(t, v.IsVerified)
}
