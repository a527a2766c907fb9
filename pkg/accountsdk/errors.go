package accountsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/accounts/pkg/httpx"
)

// Error codes carried in the "error" field of failure bodies.
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeValidation     = "validation_error"
	ErrorCodeConflict       = "conflict"
	ErrorCodeNotFound       = "not_found"
	ErrorCodeUnauthorized   = "unauthorized"
	ErrorCodeForbidden      = "forbidden"
	ErrorCodeInvalidToken   = "invalid_token"
	ErrorCodeServerError    = "server_error"
	ErrorCodeBodyTooLarge   = "request_too_large"
)

// APIError is a failed account API call. The server writes it with
// WriteError; the client returns it from every method on a non-2xx status.
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	Code        string `json:"error"`
	Description string `json:"error_description"`

	// Details maps request fields to validation messages.
	Details map[string]string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Description)
}

// Is matches on status and code so callers can compare against the
// predefined errors with errors.Is. Both conflict errors share a code and
// match each other.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.StatusCode == t.StatusCode && e.Code == t.Code
}

// WriteError writes e as a JSON failure body.
func (e *APIError) WriteError(w http.ResponseWriter) {
	e.write(w, "")
}

// WriteErrorWithDetail writes e with an extra diagnostic string. Only used
// in development builds.
func (e *APIError) WriteErrorWithDetail(w http.ResponseWriter, detail string) {
	e.write(w, detail)
}

func (e *APIError) write(w http.ResponseWriter, detail string) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Success:          false,
		Error:            e.Code,
		ErrorDescription: e.Description,
		Details:          e.Details,
		ErrorDetail:      detail,
	})
}

// WithDetails returns a copy of e carrying field messages.
func (e *APIError) WithDetails(details map[string]string) *APIError {
	cp := *e
	cp.Details = details
	return &cp
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request body is malformed",
	}

	ErrBodyTooLarge = &APIError{
		StatusCode:  http.StatusRequestEntityTooLarge,
		Code:        ErrorCodeBodyTooLarge,
		Description: "the request body is too large",
	}

	ErrValidation = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeValidation,
		Description: "all fields are required",
	}

	ErrEmailTaken = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeConflict,
		Description: "user already exists",
	}

	ErrUsernameTaken = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeConflict,
		Description: "username already taken",
	}

	ErrUserNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "user not found",
	}

	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeUnauthorized,
		Description: "invalid credentials",
	}

	ErrUnauthenticated = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeUnauthorized,
		Description: "a valid session is required",
	}

	ErrEmailNotVerified = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeForbidden,
		Description: "please verify your email first",
	}

	ErrInvalidOrExpiredToken = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidToken,
		Description: "invalid or expired token",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
			Details:     errResp.Details,
		}
	}

	// Fallback: create generic error from status code
	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
