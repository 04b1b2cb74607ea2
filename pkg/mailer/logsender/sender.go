// Package logsender is a mailer.Sender that writes messages to a structured
// log instead of delivering them. It is meant for local development.
package logsender

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/mailroom/pkg/mailer"
)

// Sender logs every message and returns a generated message id.
type Sender struct {
	logger   *slog.Logger
	withBody bool
}

// Option configures a Sender.
type Option func(*Sender)

// WithBody includes the text body in the log record.
func WithBody() Option {
	return func(s *Sender) { s.withBody = true }
}

// New creates a log sender.
func New(logger *slog.Logger, opts ...Option) *Sender {
	s := &Sender{logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send implements mailer.Sender.
func (s *Sender) Send(ctx context.Context, email *mailer.Email) (string, error) {
	if err := email.Validate(); err != nil {
		return "", err
	}

	msgID := "log-" + uuid.NewString()
	attrs := []slog.Attr{
		slog.String("message_id", msgID),
		slog.String("from", email.From),
		slog.Any("to", email.To),
		slog.String("subject", email.Subject),
		slog.Int("html_bytes", len(email.HTML)),
		slog.Int("attachments", len(email.Attachments)),
	}
	if len(email.CC) > 0 {
		attrs = append(attrs, slog.Any("cc", email.CC))
	}
	if len(email.BCC) > 0 {
		attrs = append(attrs, slog.Any("bcc", email.BCC))
	}
	if s.withBody {
		attrs = append(attrs, slog.String("text", email.Text))
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "email sent to log", attrs...)
	return msgID, nil
}
