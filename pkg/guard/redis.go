package guard

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLimiterPrefix = "mailroom:rl:"

// slidingWindow trims the log, checks the count and records the hit in one
// round trip, so concurrent senders cannot both slip under the limit.
//
// KEYS[1] log key; ARGV: now ms, window ms, limit, member.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
	return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// RedisLimiter shares the sliding window across replicas through a sorted set per key.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// RedisLimiterOption configures a RedisLimiter.
type RedisLimiterOption func(*RedisLimiter)

// WithLimiterPrefix overrides the key prefix (default "mailroom:rl:").
func WithLimiterPrefix(prefix string) RedisLimiterOption {
	return func(l *RedisLimiter) {
		l.prefix = prefix
	}
}

// WithLimiterClock overrides the time source.
func WithLimiterClock(now func() time.Time) RedisLimiterOption {
	return func(l *RedisLimiter) {
		if now != nil {
			l.now = now
		}
	}
}

// NewRedisLimiter creates a Redis-backed limiter.
func NewRedisLimiter(client redis.UniversalClient, opts ...RedisLimiterOption) *RedisLimiter {
	l := &RedisLimiter{client: client, prefix: defaultLimiterPrefix, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}

	res, err := slidingWindow.Run(ctx, l.client,
		[]string{l.prefix + key},
		l.now().UnixMilli(),
		window.Milliseconds(),
		strconv.Itoa(limit),
		uuid.NewString(),
	).Int()
	if err != nil {
		return false, errors.Join(ErrLimiterFailed, err)
	}
	return res == 1, nil
}

var _ RateLimiter = (*RedisLimiter)(nil)
