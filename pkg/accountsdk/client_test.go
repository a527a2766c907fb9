package accountsdk

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newFakeServer(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL + "/")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLoginCapturesSessionCookie(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/accounts/login", func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "a@example.com", req.Email)

		http.SetCookie(w, &http.Cookie{Name: SessionCookieName, Value: "session-1", MaxAge: 60, HttpOnly: true})
		writeJSON(w, http.StatusOK, AccountResponse{Success: true, User: User{ID: "u1"}})
	})
	mux.HandleFunc("GET /v1/accounts/me", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer session-1", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, MeResponse{Success: true, User: User{ID: "u1"}})
	})
	mux.HandleFunc("POST /v1/accounts/logout", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: SessionCookieName, Value: "", MaxAge: -1})
		writeJSON(w, http.StatusOK, MessageResponse{Success: true})
	})

	c := newFakeServer(t, mux)

	res, err := c.Login(t.Context(), "a@example.com", "pw")
	require.NoError(t, err)
	require.Equal(t, "u1", res.User.ID)
	require.Equal(t, "session-1", c.SessionToken())

	me, err := c.Me(t.Context())
	require.NoError(t, err)
	require.Equal(t, "u1", me.User.ID)

	require.NoError(t, c.Logout(t.Context()))
	require.Empty(t, c.SessionToken())
}

func TestMeWithoutSessionSkipsRequest(t *testing.T) {
	t.Parallel()

	called := false
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) { called = true })

	c := newFakeServer(t, mux)
	_, err := c.Me(t.Context())
	require.ErrorIs(t, err, ErrUnauthenticated)
	require.False(t, called)
}

func TestErrorResponsesBecomeAPIErrors(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/accounts/register", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            ErrorCodeValidation,
			ErrorDescription: "all fields are required",
			Details:          map[string]string{"email": "cannot be blank"},
		})
	})
	mux.HandleFunc("POST /v1/accounts/forgot-password", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	c := newFakeServer(t, mux)

	_, err := c.Register(t.Context(), RegisterRequest{Username: "x"})
	require.ErrorIs(t, err, ErrValidation)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "cannot be blank", apiErr.Details["email"])

	_, err = c.ForgotPassword(t.Context(), "a@example.com")
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	require.Equal(t, ErrorCodeServerError, apiErr.Code)
}

func TestResetPasswordEscapesToken(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/accounts/reset-password/{token}", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "abc def", r.PathValue("token"))
		writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "ok"})
	})

	c := newFakeServer(t, mux)
	res, err := c.ResetPassword(t.Context(), "abc def", "new")
	require.NoError(t, err)
	require.True(t, res.Success)
}

func TestAPIErrorIs(t *testing.T) {
	t.Parallel()

	got := &APIError{StatusCode: http.StatusForbidden, Code: ErrorCodeForbidden, Description: "anything"}
	require.ErrorIs(t, got, ErrEmailNotVerified)
	require.NotErrorIs(t, got, ErrInvalidCredentials)
}
