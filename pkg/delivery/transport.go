package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/mailroom/pkg/address"
	"github.com/dmitrymomot/mailroom/pkg/logger"
	"github.com/dmitrymomot/mailroom/pkg/mailer"
)

var errEmptyMessageID = errors.New("provider returned empty message id")

// Receipt describes an accepted message.
type Receipt struct {
	ProviderMessageID string
	From              string
	Attempts          int
}

// SendError is returned when every attempt failed. Err is the error of the
// last attempt.
type SendError struct {
	Attempts int
	From     string
	Err      error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("delivery: send failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *SendError) Unwrap() []error {
	return []error{ErrSendFailed, e.Err}
}

// Transport sends composed emails through a provider under a retry policy.
type Transport struct {
	sender mailer.Sender
	router Router
	policy RetryPolicy
	logger *slog.Logger
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) TransportOption {
	return func(t *Transport) { t.policy = p }
}

// WithLogger sets the transport logger.
func WithLogger(l *slog.Logger) TransportOption {
	return func(t *Transport) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewTransport creates a transport for sender.
func NewTransport(sender mailer.Sender, router Router, opts ...TransportOption) *Transport {
	t := &Transport{
		sender: sender,
		router: router,
		policy: DefaultRetryPolicy(),
		logger: logger.NewNope(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Policy returns the retry policy in use.
func (t *Transport) Policy() RetryPolicy {
	return t.policy
}

// Send normalizes the recipient lists, picks the sender identity and hands
// the message to the provider, retrying per policy. On exhaustion it
// returns a *SendError.
func (t *Transport) Send(ctx context.Context, email *mailer.Email, category Category) (Receipt, error) {
	msg := *email
	msg.To = address.NormalizeList(email.To)
	msg.CC = address.NormalizeList(email.CC)
	msg.BCC = address.NormalizeList(email.BCC)
	if len(msg.To) == 0 {
		return Receipt{}, ErrNoRecipient
	}

	if msg.From == "" {
		id := t.router.Route(msg.Subject, category)
		if id.empty() {
			return Receipt{}, ErrNoSender
		}
		msg.From = id.String()
	}

	var providerID string
	attempts, err := t.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		id, err := t.sender.Send(ctx, &msg)
		if err == nil && id == "" {
			err = errEmptyMessageID
		}
		if err != nil {
			t.logger.WarnContext(ctx, "delivery attempt failed",
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", t.policy.Attempts()),
				slog.Bool("permanent", IsPermanent(err)),
				slog.Any("error", err),
			)
			return err
		}
		providerID = id
		return nil
	})
	if err != nil {
		return Receipt{From: msg.From, Attempts: attempts}, &SendError{Attempts: attempts, From: msg.From, Err: err}
	}

	t.logger.DebugContext(ctx, "message delivered",
		slog.String("provider_message_id", providerID),
		slog.Int("attempts", attempts),
	)
	return Receipt{ProviderMessageID: providerID, From: msg.From, Attempts: attempts}, nil
}
