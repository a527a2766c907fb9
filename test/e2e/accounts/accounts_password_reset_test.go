package accounts_test

import (
	"testing"

	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
	"github.com/stretchr/testify/require"
)

func TestPasswordReset(t *testing.T) {
	c := setupAccountsContainer(t)
	client := accountsdk.NewClient(c.BaseURL)

	registerVerified(t, c, client, "frank", "frank@example.com", "old-password")

	_, err := client.ForgotPassword(t.Context(), "frank@example.com")
	require.NoError(t, err)

	token := c.resetToken(t)
	_, err = client.ResetPassword(t.Context(), token, "new-password")
	require.NoError(t, err)

	_, err = client.ResetPassword(t.Context(), token, "another")
	require.ErrorIs(t, err, accountsdk.ErrInvalidOrExpiredToken, "reset tokens are single use")

	_, err = client.Login(t.Context(), "frank@example.com", "old-password")
	require.ErrorIs(t, err, accountsdk.ErrInvalidCredentials)

	_, err = client.Login(t.Context(), "frank@example.com", "new-password")
	require.NoError(t, err)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	c := setupAccountsContainer(t)
	client := accountsdk.NewClient(c.BaseURL)

	_, err := client.ForgotPassword(t.Context(), "ghost@example.com")
	require.ErrorIs(t, err, accountsdk.ErrUserNotFound)
}

func TestResetPasswordBogusToken(t *testing.T) {
	c := setupAccountsContainer(t)
	client := accountsdk.NewClient(c.BaseURL)

	_, err := client.ResetPassword(t.Context(), "not-a-real-token", "whatever")
	require.ErrorIs(t, err, accountsdk.ErrInvalidOrExpiredToken)
}
