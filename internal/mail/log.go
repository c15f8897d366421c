package mail

import (
	"context"
	"log/slog"
)

// LogSender only records that a message would have been sent. It is the
// default transport in development so registration works without SMTP.
type LogSender struct {
	Log *slog.Logger
}

func (s LogSender) Send(ctx context.Context, msg Message) error {
	s.Log.InfoContext(ctx, "mail: delivery skipped (log transport)", "to", msg.To, "subject", msg.Subject)
	return nil
}
