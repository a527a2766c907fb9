package mail

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/accounts/pkg/slogx"
)

// LogTransport writes messages to the logger instead of sending them. The
// rendered text body, which carries codes and links, is logged at debug.
type LogTransport struct {
	Logger *slog.Logger
}

func (t *LogTransport) Send(ctx context.Context, msg Message) error {
	log := t.Logger
	if log == nil {
		log = slogx.FromContext(ctx)
	}

	log.Info("mail dispatched",
		slog.String("kind", string(msg.Kind)),
		slog.String("to", slogx.RedactEmail(msg.To)),
		slog.String("subject", msg.Subject),
	)
	log.Debug("mail body",
		slog.String("kind", string(msg.Kind)),
		slog.String("text", msg.Text),
	)
	return nil
}
