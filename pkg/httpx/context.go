package httpx

import (
	"context"

	"github.com/aussiebroadwan/accounts/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeySubject ctxKey = "subject"
	CtxKeyClaims  ctxKey = "claims"
)

// SubjectFromContext returns the authenticated account id, if any.
func SubjectFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(CtxKeySubject).(string)
	return v, ok && v != ""
}

// ClaimsFromContext returns the verified session claims, if any.
func ClaimsFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(jwtx.Claims)
	return c, ok
}

func contextWithAuth(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeySubject, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}
