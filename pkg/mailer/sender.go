package mailer

import "context"

// Sender is implemented by delivery providers.
// Send hands a fully composed Email to the provider and returns the
// provider's message id. Implementations must not retry on their own.
type Sender interface {
	Send(ctx context.Context, email *Email) (string, error)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, email *Email) (string, error)

func (f SenderFunc) Send(ctx context.Context, email *Email) (string, error) {
	return f(ctx, email)
}
