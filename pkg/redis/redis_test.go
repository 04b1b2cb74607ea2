package redis_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailroom/pkg/redis"
)

func TestConnect_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  redis.Config
		want error
	}{
		{"not configured", redis.Config{}, redis.ErrNotConfigured},
		{"wrong scheme", redis.Config{URL: "http://localhost:6379"}, redis.ErrInvalidURL},
		{"garbage", redis.Config{URL: "redis://:bad:port:/x"}, redis.ErrInvalidURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client, err := redis.Connect(context.Background(), tt.cfg)
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, client)
		})
	}
}

func TestConnect_Unreachable(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := redis.Connect(ctx, redis.Config{
		URL:           "redis://127.0.0.1:1/0",
		DialTimeout:   200 * time.Millisecond,
		RetryAttempts: 2,
		RetryInterval: 10 * time.Millisecond,
	})
	require.ErrorIs(t, err, redis.ErrConnectionFailed)
}

func TestHealthcheck_NilClient(t *testing.T) {
	t.Parallel()

	err := redis.Healthcheck(nil)(context.Background())
	require.ErrorIs(t, err, redis.ErrHealthcheckFailed)
}

func TestConnect_Integration(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := redis.Connect(ctx, redis.Config{URL: url, RetryAttempts: 1})
	require.NoError(t, err)

	require.NoError(t, redis.Healthcheck(client)(ctx))
	require.NoError(t, redis.Shutdown(client)(ctx))
}
