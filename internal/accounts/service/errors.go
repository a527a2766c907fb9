package service

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
)

var (
	ErrInvalidRequest        = errors.New("invalid request")
	ErrEmailTaken            = errors.New("email already registered")
	ErrUsernameTaken         = errors.New("username already taken")
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrEmailNotVerified      = errors.New("email not verified")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrDependency            = errors.New("dependency failure")
)

// ErrorKind classifies service errors for transports.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindInvalidToken
	KindDependency
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindInvalidToken:
		return "invalid_token"
	case KindDependency:
		return "dependency"
	default:
		return "unknown"
	}
}

// KindOf maps err onto its ErrorKind. Errors the service did not produce
// report KindUnknown and should be treated as internal failures.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidRequest):
		return KindValidation
	case errors.Is(err, ErrEmailTaken), errors.Is(err, ErrUsernameTaken):
		return KindConflict
	case errors.Is(err, ErrUserNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidCredentials):
		return KindUnauthorized
	case errors.Is(err, ErrEmailNotVerified):
		return KindForbidden
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return KindInvalidToken
	case errors.Is(err, ErrDependency):
		return KindDependency
	default:
		return KindUnknown
	}
}

// ValidationError carries per-field messages. It matches ErrInvalidRequest
// under errors.Is.
type ValidationError struct {
	Fields validation.Errors
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidRequest, e.Fields.Error())
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }

// FieldMessages flattens the field errors into strings for JSON bodies.
func (e *ValidationError) FieldMessages() map[string]string {
	out := make(map[string]string, len(e.Fields))
	for field, err := range e.Fields {
		if err != nil {
			out[field] = err.Error()
		}
	}
	return out
}

// validate turns a filtered ozzo result into a *ValidationError.
func validate(fields validation.Errors) error {
	err := fields.Filter()
	if err == nil {
		return nil
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return &ValidationError{Fields: verrs}
	}
	return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
}

func dependency(err error) error {
	return fmt.Errorf("%w: %w", ErrDependency, err)
}
