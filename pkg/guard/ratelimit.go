package guard

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a sliding-window send counter keyed by recipient.
// Allow reports whether another send fits in the window and, if so, counts it.
// Rejected calls are not counted.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// MemoryLimiter keeps a timestamp log per key in process memory.
type MemoryLimiter struct {
	now  func() time.Time
	hits map[string][]time.Time
	mu   sync.Mutex
}

// NewMemoryLimiter creates an in-memory limiter. A nil now uses time.Now.
func NewMemoryLimiter(now func() time.Time) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryLimiter{now: now, hits: make(map[string][]time.Time)}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-window)

	log := l.hits[key]
	i := 0
	for i < len(log) && !log[i].After(cutoff) {
		i++
	}
	log = log[i:]

	if len(log) >= limit {
		l.hits[key] = log
		return false, nil
	}

	l.hits[key] = append(log, now)
	return true, nil
}

var _ RateLimiter = (*MemoryLimiter)(nil)
