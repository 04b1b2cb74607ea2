// Package jwt issues and verifies HS256 tokens that identify API callers.
//
// The subject claim carries the caller id recorded on every outbox record.
package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTTL is the lifetime of tokens issued without an explicit TTL.
const DefaultTTL = 24 * time.Hour

// minSecretLen guards against trivially guessable HMAC keys.
const minSecretLen = 32

// Config configures the token service.
type Config struct {
	Secret string        `env:"JWT_SECRET"`
	Issuer string        `env:"JWT_ISSUER" envDefault:"mailroom"`
	TTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`
}

// Enabled reports whether a signing secret is configured.
func (c Config) Enabled() bool {
	return c.Secret != ""
}

// Claims are the registered claims mailroom tokens carry.
type Claims struct {
	gojwt.RegisteredClaims
}

// CallerID returns the token subject.
func (c *Claims) CallerID() string {
	return c.Subject
}

// Service signs and parses tokens.
type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a token service from cfg.
func New(cfg Config, opts ...Option) (*Service, error) {
	if len(cfg.Secret) < minSecretLen {
		return nil, fmt.Errorf("%w: secret must be at least %d bytes", ErrInvalidConfig, minSecretLen)
	}
	s := &Service{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		now:    time.Now,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Generate issues a token for callerID. A non-positive ttl uses the
// configured lifetime.
func (s *Service) Generate(callerID string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(callerID) == "" {
		return "", ErrMissingSubject
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	now := s.now()
	claims := Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   callerID,
			IssuedAt:  gojwt.NewNumericDate(now),
			NotBefore: gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return token, nil
}

// Parse verifies token and returns its claims.
func (s *Service) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithTimeFunc(s.now),
		gojwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, gojwt.WithIssuer(s.issuer))
	}

	_, err := gojwt.ParseWithClaims(token, claims, func(*gojwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, gojwt.ErrTokenExpired):
			return nil, errors.Join(ErrExpiredToken, err)
		case errors.Is(err, gojwt.ErrTokenSignatureInvalid):
			return nil, errors.Join(ErrInvalidSignature, err)
		default:
			return nil, errors.Join(ErrInvalidToken, err)
		}
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}
