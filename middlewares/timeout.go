package middlewares

import (
	"context"
	"time"

	"github.com/dmitrymomot/mailroom/internal"
)

// DefaultTimeout applies when Timeout is given a non-positive duration.
const DefaultTimeout = 30 * time.Second

type timeoutContextKey struct{}

// Timeout returns a *TimeoutError once d elapses, even if the handler is
// still running. The handler should read from GetTimeoutContext so its
// downstream calls are cancelled too.
func Timeout(d time.Duration) internal.Middleware {
	if d <= 0 {
		d = DefaultTimeout
	}

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			ctx, cancel := context.WithTimeoutCause(c.Context(), d, &TimeoutError{Duration: d})
			defer cancel()
			c.Set(timeoutContextKey{}, ctx)

			done := make(chan error, 1)
			go func() { done <- next(c) }()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				cause := context.Cause(ctx)
				if IsTimeoutError(cause) {
					c.LogWarn("request timed out", "timeout", d.String())
				}
				return cause
			}
		}
	}
}

// GetTimeoutContext returns the context bounded by Timeout, or the request
// context when Timeout is not in the chain.
func GetTimeoutContext(c internal.Context) context.Context {
	if ctx, ok := c.Get(timeoutContextKey{}).(context.Context); ok {
		return ctx
	}
	return c.Context()
}
