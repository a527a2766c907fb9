package accounts_test

import (
	"encoding/json"
	"testing"

	"github.com/aussiebroadwan/accounts/api/accounts"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestSwaggerDocIsRegistered(t *testing.T) {
	raw, err := swag.ReadDoc(accounts.SwaggerInfo.InstanceName())
	require.NoError(t, err)

	var doc struct {
		Swagger string         `json:"swagger"`
		Info    map[string]any `json:"info"`
		Paths   map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	require.Equal(t, "2.0", doc.Swagger)
	require.Equal(t, "Accounts Service API", doc.Info["title"])
	for _, path := range []string{
		"/v1/accounts/register",
		"/v1/accounts/login",
		"/v1/accounts/logout",
		"/v1/accounts/verify-email",
		"/v1/accounts/forgot-password",
		"/v1/accounts/reset-password/{token}",
		"/v1/accounts/me",
	} {
		require.Contains(t, doc.Paths, path)
	}
}
