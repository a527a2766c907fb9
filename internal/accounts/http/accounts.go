package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
)

// AccountsHandler serves the account lifecycle endpoints.
type AccountsHandler struct {
	Accounts *service.AccountService
	Cookies  CookieConfig

	// DevErrors adds the internal error text to 500 bodies.
	DevErrors bool
}

// CookieConfig controls the session cookie attributes.
type CookieConfig struct {
	Secure bool
	Domain string
}

func (c CookieConfig) setSession(w http.ResponseWriter, s service.Session) {
	maxAge := int(time.Until(s.ExpiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}

	http.SetCookie(w, &http.Cookie{
		Name:     httpx.SessionCookieName,
		Value:    s.Token,
		Path:     "/",
		Domain:   c.Domain,
		Expires:  s.ExpiresAt,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (c CookieConfig) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     httpx.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func toUser(v domain.UserView) accountsdk.User {
	return accountsdk.User{
		ID:         v.ID,
		Username:   v.Username,
		Email:      v.Email,
		IsVerified: v.IsVerified,
		LastLogin:  v.LastLogin,
		CreatedAt:  v.CreatedAt,
		UpdatedAt:  v.UpdatedAt,
	}
}

func (h *AccountsHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(w, r, dst); err != nil {
		slogx.FromContext(r.Context()).Debug("rejected request body", slog.Any("error", err))
		if errors.Is(err, httpx.ErrBodyTooLarge) {
			accountsdk.ErrBodyTooLarge.WriteError(w)
		} else {
			accountsdk.ErrInvalidRequest.WriteError(w)
		}
		return false
	}
	return true
}

// writeError maps a service error onto its HTTP failure body.
func (h *AccountsHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch service.KindOf(err) {
	case service.KindValidation:
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			accountsdk.ErrValidation.WithDetails(verr.FieldMessages()).WriteError(w)
			return
		}
		accountsdk.ErrValidation.WriteError(w)
	case service.KindConflict:
		if errors.Is(err, service.ErrUsernameTaken) {
			accountsdk.ErrUsernameTaken.WriteError(w)
			return
		}
		accountsdk.ErrEmailTaken.WriteError(w)
	case service.KindNotFound:
		accountsdk.ErrUserNotFound.WriteError(w)
	case service.KindUnauthorized:
		accountsdk.ErrInvalidCredentials.WriteError(w)
	case service.KindForbidden:
		accountsdk.ErrEmailNotVerified.WriteError(w)
	case service.KindInvalidToken:
		accountsdk.ErrInvalidOrExpiredToken.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("request failed", slog.Any("error", err))
		if h.DevErrors {
			accountsdk.ErrServerError.WriteErrorWithDetail(w, err.Error())
			return
		}
		accountsdk.ErrServerError.WriteError(w)
	}
}
