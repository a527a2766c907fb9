package accountsdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// SessionCookieName is the cookie the service sets on login and registration.
const SessionCookieName = "token"

// Client talks to the accounts service. It remembers the session credential
// from the last register or login response and presents it as a bearer
// token on authenticated calls. It is safe for concurrent use.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	mu    sync.RWMutex
	token string
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SessionToken returns the current session credential, empty when signed out.
func (c *Client) SessionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetSessionToken replaces the stored session credential.
func (c *Client) SetSessionToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) captureSession(resp *http.Response) {
	for _, ck := range resp.Cookies() {
		if ck.Name != SessionCookieName {
			continue
		}
		if ck.MaxAge < 0 || ck.Value == "" {
			c.SetSessionToken("")
		} else {
			c.SetSessionToken(ck.Value)
		}
	}
}

// Register creates an account. The service signs the new account in
// immediately, so the client holds a session afterwards.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AccountResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/accounts/register", req, false)
	if err != nil {
		return nil, err
	}

	var out AccountResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*AccountResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/accounts/login", LoginRequest{
		Email:    email,
		Password: password,
	}, false)
	if err != nil {
		return nil, err
	}

	var out AccountResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout clears the session on both sides.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/accounts/logout", nil, false)
	if err != nil {
		return err
	}
	c.SetSessionToken("")

	var out MessageResponse
	return decodeJSON(resp, &out, http.StatusOK)
}

func (c *Client) VerifyEmail(ctx context.Context, code string) (*AccountResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/accounts/verify-email", VerifyEmailRequest{Code: code}, false)
	if err != nil {
		return nil, err
	}

	var out AccountResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (*MessageResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/accounts/forgot-password", ForgotPasswordRequest{Email: email}, false)
	if err != nil {
		return nil, err
	}

	var out MessageResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResetPassword sets a new password using the token from the reset link.
func (c *Client) ResetPassword(ctx context.Context, token, password string) (*MessageResponse, error) {
	path := "/v1/accounts/reset-password/" + url.PathEscape(token)
	resp, err := c.doJSON(ctx, http.MethodPost, path, ResetPasswordRequest{Password: password}, false)
	if err != nil {
		return nil, err
	}

	var out MessageResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the account behind the current session.
func (c *Client) Me(ctx context.Context) (*MeResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, "/v1/accounts/me", nil, true)
	if err != nil {
		return nil, err
	}

	var out MeResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLiveness checks if the service is alive.
func (c *Client) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

// GetReadiness checks if the service is ready.
func (c *Client) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *Client) health(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, path, nil, false)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}

// GetJWKS retrieves the public keys that verify session credentials.
func (c *Client) GetJWKS(ctx context.Context) (*JWKSResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, "/.well-known/jwks.json", nil, false)
	if err != nil {
		return nil, err
	}

	var jwks JWKSResponse
	if err := decodeJSON(resp, &jwks, http.StatusOK); err != nil {
		return nil, err
	}
	return &jwks, nil
}
