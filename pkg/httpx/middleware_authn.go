package httpx

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
)

// SessionCookieName is the cookie that carries the session credential.
const SessionCookieName = "token"

// AuthnMiddleware accepts a session credential from the Authorization bearer
// header or, failing that, the session cookie.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw := SessionCredential(r)
			if raw == "" {
				writeBearerError(w, "missing session credential")
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				log.Warn("session verify failed", "err", err)
				writeBearerError(w, "session credential is invalid or expired")
				return
			}

			ctx = slogx.With(ctx, "user_id", claims.Subject)
			next.ServeHTTP(w, r.WithContext(contextWithAuth(ctx, claims)))
		})
	}
}

// SessionCredential extracts the raw credential from r, preferring the
// Authorization header over the cookie.
func SessionCredential(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); authz != "" {
		if after, ok := strings.CutPrefix(authz, "Bearer "); ok {
			return strings.TrimSpace(after)
		}
		return ""
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

// RFC 6750 style challenge with a JSON body.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]any{
		"success":           false,
		"error":             "unauthorized",
		"error_description": desc,
	})
}
