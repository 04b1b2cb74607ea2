package middlewares

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/mailroom/internal"
	"github.com/dmitrymomot/mailroom/pkg/jwt"
	"github.com/dmitrymomot/mailroom/pkg/logger"
)

type callerIDKey struct{}

// TokenParser verifies a bearer token. *jwt.Service implements it.
type TokenParser interface {
	Parse(token string) (*jwt.Claims, error)
}

// IdentityConfig configures the Identity middleware.
type IdentityConfig struct {
	Extractor internal.Extractor
	Required  bool
}

// IdentityOption configures IdentityConfig.
type IdentityOption func(*IdentityConfig)

// WithIdentityExtractor sets the token extractor chain.
func WithIdentityExtractor(ext internal.Extractor) IdentityOption {
	return func(cfg *IdentityConfig) {
		cfg.Extractor = ext
	}
}

// WithIdentityRequired rejects requests without a valid token with 401.
func WithIdentityRequired() IdentityOption {
	return func(cfg *IdentityConfig) {
		cfg.Required = true
	}
}

// Identity resolves the caller id from a bearer token and stores it in the
// context. By default it never blocks: a missing token leaves the caller
// anonymous and an invalid one is logged and ignored.
func Identity(parser TokenParser, opts ...IdentityOption) internal.Middleware {
	cfg := &IdentityConfig{
		Extractor: internal.NewExtractor(internal.FromBearerToken()),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			token, ok := cfg.Extractor.Extract(c)
			if !ok {
				if cfg.Required {
					return internal.ErrUnauthorized("missing authentication token", internal.WithErrorCode("unauthorized"))
				}
				return next(c)
			}

			claims, err := parser.Parse(token)
			if err != nil {
				if cfg.Required {
					msg := "invalid token"
					if errors.Is(err, jwt.ErrExpiredToken) {
						msg = "token expired"
					}
					return internal.ErrUnauthorized(msg, internal.WithErrorCode("unauthorized"), internal.WithError(err))
				}
				c.LogWarn("ignoring invalid caller token", slog.Any("error", err))
				return next(c)
			}

			c.Set(callerIDKey{}, claims.CallerID())
			return next(c)
		}
	}
}

// GetCallerID returns the caller id resolved by Identity, or "".
func GetCallerID(c internal.Context) string {
	return internal.ContextValue[string](c, callerIDKey{})
}

// CallerIDExtractor adds "caller_id" to log records.
func CallerIDExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if v, ok := ctx.Value(callerIDKey{}).(string); ok && v != "" {
			return slog.String("caller_id", v), true
		}
		return slog.Attr{}, false
	}
}
