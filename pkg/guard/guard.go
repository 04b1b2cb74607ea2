package guard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/mailroom/pkg/logger"
)

// Default send cap: 10 messages per recipient per hour.
const (
	DefaultLimit  = 10
	DefaultWindow = 60 * time.Minute
)

// SuppressedReason is recorded on the outbox entry of a suppressed send.
const SuppressedReason = "Email address is suppressed"

// Decision is the outcome of a guard check.
type Decision int

const (
	Allow Decision = iota
	Suppressed
	RateLimited
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Suppressed:
		return "suppressed"
	case RateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Guard runs the suppression check and then the rate limit for one recipient.
type Guard struct {
	suppressions SuppressionList
	limiter      RateLimiter
	limit        int
	window       time.Duration
	logger       *slog.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithLimit sets the per-recipient cap and window.
func WithLimit(limit int, window time.Duration) Option {
	return func(g *Guard) {
		g.limit = limit
		if window > 0 {
			g.window = window
		}
	}
}

// WithLogger sets the guard logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

// New creates a guard. A nil limiter disables rate limiting.
func New(suppressions SuppressionList, limiter RateLimiter, opts ...Option) *Guard {
	g := &Guard{
		suppressions: suppressions,
		limiter:      limiter,
		limit:        DefaultLimit,
		window:       DefaultWindow,
		logger:       logger.NewNope(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check evaluates email, which must already be normalized.
// A failing suppression lookup is returned as an error so nothing is sent to a
// possibly suppressed address. A failing limiter is logged and the send allowed.
func (g *Guard) Check(ctx context.Context, email string) (Decision, error) {
	if email == "" {
		return Allow, ErrInvalidAddress
	}

	if g.suppressions != nil {
		suppressed, err := g.suppressions.IsSuppressed(ctx, email)
		if err != nil {
			if !errors.Is(err, ErrSuppressionLookup) {
				err = errors.Join(ErrSuppressionLookup, err)
			}
			return Allow, err
		}
		if suppressed {
			return Suppressed, nil
		}
	}

	if g.limiter == nil {
		return Allow, nil
	}

	ok, err := g.limiter.Allow(ctx, email, g.limit, g.window)
	if err != nil {
		g.logger.WarnContext(ctx, "rate limiter unavailable, allowing send",
			slog.String("recipient", email),
			slog.Any("error", err),
		)
		return Allow, nil
	}
	if !ok {
		return RateLimited, nil
	}
	return Allow, nil
}
