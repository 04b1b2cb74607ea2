package jwt_test

import (
	"strings"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailroom/pkg/jwt"
)

const secret = "0123456789abcdef0123456789abcdef"

func newService(t *testing.T, now func() time.Time) *jwt.Service {
	t.Helper()
	svc, err := jwt.New(jwt.Config{Secret: secret, Issuer: "mailroom", TTL: time.Hour}, jwt.WithClock(now))
	require.NoError(t, err)
	return svc
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := jwt.New(jwt.Config{Secret: "short"})
	require.ErrorIs(t, err, jwt.ErrInvalidConfig)

	assert.False(t, jwt.Config{}.Enabled())
	assert.True(t, jwt.Config{Secret: secret}.Enabled())
}

func TestService_RoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	svc := newService(t, func() time.Time { return now })

	token, err := svc.Generate("billing-service", 0)
	require.NoError(t, err)

	claims, err := svc.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "billing-service", claims.CallerID())
	assert.Equal(t, "mailroom", claims.Issuer)
	assert.WithinDuration(t, now.Add(time.Hour), claims.ExpiresAt.Time, 0)
	assert.NotEmpty(t, claims.ID)
}

func TestService_Parse(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	svc := newService(t, func() time.Time { return now })
	token, err := svc.Generate("caller", time.Minute)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		later := newService(t, func() time.Time { return now.Add(2 * time.Minute) })
		_, err := later.Parse(token)
		require.ErrorIs(t, err, jwt.ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()
		other, err := jwt.New(jwt.Config{Secret: strings.Repeat("x", 32), Issuer: "mailroom"},
			jwt.WithClock(func() time.Time { return now }))
		require.NoError(t, err)
		_, err = other.Parse(token)
		require.ErrorIs(t, err, jwt.ErrInvalidSignature)
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()
		_, err := svc.Parse("not-a-token")
		require.ErrorIs(t, err, jwt.ErrInvalidToken)
	})

	t.Run("none algorithm rejected", func(t *testing.T) {
		t.Parallel()
		unsigned, err := gojwt.NewWithClaims(gojwt.SigningMethodNone, gojwt.RegisteredClaims{
			Subject:   "caller",
			Issuer:    "mailroom",
			ExpiresAt: gojwt.NewNumericDate(now.Add(time.Hour)),
		}).SignedString(gojwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.Parse(unsigned)
		require.ErrorIs(t, err, jwt.ErrInvalidSignature)
	})
}

func TestService_GenerateRequiresSubject(t *testing.T) {
	t.Parallel()

	svc := newService(t, time.Now)
	_, err := svc.Generate("  ", 0)
	require.ErrorIs(t, err, jwt.ErrMissingSubject)
}
