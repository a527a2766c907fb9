package service

import "context"

// Notifier delivers account lifecycle messages. Implementations should honour
// ctx deadlines; the service bounds every call with its mail timeout.
type Notifier interface {
	SendVerification(ctx context.Context, to, code string) error
	SendWelcome(ctx context.Context, to, username string) error
	SendPasswordReset(ctx context.Context, to, resetURL string) error
	SendResetSuccess(ctx context.Context, to string) error
}
