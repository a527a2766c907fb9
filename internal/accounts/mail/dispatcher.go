package mail

import (
	"context"
	"time"

	"github.com/flosch/pongo2/v6"
)

// Transport delivers a rendered message.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// Dispatcher renders lifecycle messages and hands them to a Transport. It
// satisfies service.Notifier.
type Dispatcher struct {
	Renderer        *Renderer
	Transport       Transport
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

func (d *Dispatcher) send(ctx context.Context, kind Kind, to string, data pongo2.Context) error {
	msg, err := d.Renderer.Render(kind, to, data)
	if err != nil {
		return err
	}
	return d.Transport.Send(ctx, msg)
}

func (d *Dispatcher) SendVerification(ctx context.Context, to, code string) error {
	return d.send(ctx, KindVerification, to, pongo2.Context{
		"code": code,
		"ttl":  humanDuration(d.VerificationTTL),
	})
}

func (d *Dispatcher) SendWelcome(ctx context.Context, to, username string) error {
	return d.send(ctx, KindWelcome, to, pongo2.Context{"username": username})
}

func (d *Dispatcher) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	return d.send(ctx, KindResetRequest, to, pongo2.Context{
		"reset_url": resetURL,
		"ttl":       humanDuration(d.ResetTTL),
	})
}

func (d *Dispatcher) SendResetSuccess(ctx context.Context, to string) error {
	return d.send(ctx, KindResetSuccess, to, nil)
}
