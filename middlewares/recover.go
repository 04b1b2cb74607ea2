package middlewares

import (
	"runtime"

	"github.com/dmitrymomot/mailroom/internal"
)

const defaultStackSize = 4 << 10

type recoverConfig struct {
	stackSize int
	noStack   bool
}

// RecoverOption configures Recover.
type RecoverOption func(*recoverConfig)

// WithRecoverStackSize caps the captured stack trace in bytes.
func WithRecoverStackSize(n int) RecoverOption {
	return func(c *recoverConfig) {
		if n > 0 {
			c.stackSize = n
		}
	}
}

// WithRecoverDisablePrintStack skips stack capture entirely.
func WithRecoverDisablePrintStack() RecoverOption {
	return func(c *recoverConfig) { c.noStack = true }
}

// Recover converts a panic in the rest of the chain into a *PanicError,
// logged at error level, so the error handler still answers with a 500.
func Recover(opts ...RecoverOption) internal.Middleware {
	cfg := recoverConfig{stackSize: defaultStackSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) (err error) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}

				pe := &PanicError{Value: v}
				attrs := []any{"panic", v, "path", c.Request().URL.Path}
				if !cfg.noStack {
					buf := make([]byte, cfg.stackSize)
					pe.Stack = buf[:runtime.Stack(buf, false)]
					attrs = append(attrs, "stack", string(pe.Stack))
				}
				c.LogError("panic recovered", attrs...)
				err = pe
			}()
			return next(c)
		}
	}
}
