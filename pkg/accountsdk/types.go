package accountsdk

import (
	"time"

	"github.com/aussiebroadwan/accounts/pkg/jwtx"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success          bool              `json:"success"`
	Error            string            `json:"error"`
	ErrorDescription string            `json:"error_description"`
	Details          map[string]string `json:"details,omitempty"`

	// ErrorDetail is only populated by development builds.
	ErrorDetail string `json:"error_detail,omitempty"`
}

// ============================================================================
// Requests
// ============================================================================

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyEmailRequest carries the code from the verification email.
type VerifyEmailRequest struct {
	Code string `json:"code"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is posted to /v1/accounts/reset-password/{token}.
type ResetPasswordRequest struct {
	Password string `json:"password"`
}

// ============================================================================
// Responses
// ============================================================================

// User is the public view of an account. It never includes the password
// digest or any token material.
type User struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	IsVerified bool       `json:"is_verified"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// AccountResponse is returned by register, login and verify-email.
type AccountResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	User    User   `json:"user"`
}

// MessageResponse is returned by operations with no payload.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// MeResponse is returned by GET /v1/accounts/me.
type MeResponse struct {
	Success bool `json:"success"`
	User    User `json:"user"`
}

// HealthResponse is returned by /livez and /readyz (readyz adds Checks).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	Version string `json:"version,omitempty"`

	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

// JWKSResponse contains the public keys that verify session credentials.
type JWKSResponse jwtx.JWKS
