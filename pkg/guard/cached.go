package guard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// DefaultSuppressionTTL bounds how stale a cached lookup may be on other replicas.
const DefaultSuppressionTTL = 5 * time.Minute

const (
	defaultVerdictPrefix = "mailroom:suppressed:"
	lookupTimeout        = 5 * time.Second
)

// VerdictCache remembers suppression answers per address. Get reports
// found=false on a miss.
type VerdictCache interface {
	Get(ctx context.Context, email string) (suppressed, found bool, err error)
	Set(ctx context.Context, email string, suppressed bool, ttl time.Duration) error
	Delete(ctx context.Context, email string) error
}

// CachedSuppressions puts a read-through cache in front of a SuppressionStore.
// Concurrent misses for one address share a single store lookup. Writes go
// to the store first and then overwrite the cached answer.
type CachedSuppressions struct {
	store SuppressionStore
	cache VerdictCache
	group singleflight.Group
	ttl   time.Duration
}

// NewCachedSuppressions wraps store with c. A non-positive ttl uses DefaultSuppressionTTL.
func NewCachedSuppressions(store SuppressionStore, c VerdictCache, ttl time.Duration) *CachedSuppressions {
	if ttl <= 0 {
		ttl = DefaultSuppressionTTL
	}
	return &CachedSuppressions{store: store, cache: c, ttl: ttl}
}

// IsSuppressed answers from the cache when it can. A failing cache falls
// through to the store; a failing store is an error. The shared store lookup
// runs detached from any one caller and is bounded by lookupTimeout, so a
// caller that gives up does not fail the others waiting on it.
func (s *CachedSuppressions) IsSuppressed(ctx context.Context, email string) (bool, error) {
	if suppressed, found, err := s.cache.Get(ctx, email); err == nil && found {
		return suppressed, nil
	}

	ch := s.group.DoChan(email, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()

		suppressed, err := s.store.IsSuppressed(ctx, email)
		if err != nil {
			return false, err
		}
		_ = s.cache.Set(ctx, email, suppressed, s.ttl)
		return suppressed, nil
	})

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	}
}

func (s *CachedSuppressions) Add(ctx context.Context, email, reason string) error {
	if err := s.store.Add(ctx, email, reason); err != nil {
		return err
	}
	return s.cache.Set(ctx, email, true, s.ttl)
}

func (s *CachedSuppressions) Remove(ctx context.Context, email string) error {
	if err := s.store.Remove(ctx, email); err != nil {
		return err
	}
	return s.cache.Delete(ctx, email)
}

var _ SuppressionStore = (*CachedSuppressions)(nil)

type verdict struct {
	expires    time.Time
	suppressed bool
}

// MemoryVerdictCache is a process-local VerdictCache. Expired entries are
// dropped lazily on read and when the cache is full.
type MemoryVerdictCache struct {
	entries    map[string]verdict
	now        func() time.Time
	maxEntries int
	mu         sync.Mutex
}

// NewMemoryVerdictCache creates a cache holding at most maxEntries answers;
// zero means 10000.
func NewMemoryVerdictCache(maxEntries int, now func() time.Time) *MemoryVerdictCache {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryVerdictCache{entries: make(map[string]verdict), now: now, maxEntries: maxEntries}
}

func (m *MemoryVerdictCache) Get(_ context.Context, email string) (bool, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.entries[email]
	if !ok {
		return false, false, nil
	}
	if !m.now().Before(v.expires) {
		delete(m.entries, email)
		return false, false, nil
	}
	return v.suppressed, true, nil
}

func (m *MemoryVerdictCache) Set(_ context.Context, email string, suppressed bool, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if _, exists := m.entries[email]; !exists && len(m.entries) >= m.maxEntries {
		for k, v := range m.entries {
			if !now.Before(v.expires) {
				delete(m.entries, k)
			}
		}
		// Still full: drop an arbitrary entry.
		if len(m.entries) >= m.maxEntries {
			for k := range m.entries {
				delete(m.entries, k)
				break
			}
		}
	}
	m.entries[email] = verdict{suppressed: suppressed, expires: now.Add(ttl)}
	return nil
}

func (m *MemoryVerdictCache) Delete(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, email)
	return nil
}

// RedisVerdictCache shares suppression answers between replicas.
type RedisVerdictCache struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisVerdictCache stores answers under prefix+email; an empty prefix
// uses "mailroom:suppressed:".
func NewRedisVerdictCache(client redis.UniversalClient, prefix string) *RedisVerdictCache {
	if prefix == "" {
		prefix = defaultVerdictPrefix
	}
	return &RedisVerdictCache{client: client, prefix: prefix}
}

func (r *RedisVerdictCache) Get(ctx context.Context, email string) (bool, bool, error) {
	v, err := r.client.Get(ctx, r.prefix+email).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return false, false, nil
	case err != nil:
		return false, false, errors.Join(ErrCacheFailed, err)
	}
	return v == "1", true, nil
}

func (r *RedisVerdictCache) Set(ctx context.Context, email string, suppressed bool, ttl time.Duration) error {
	v := "0"
	if suppressed {
		v = "1"
	}
	if err := r.client.Set(ctx, r.prefix+email, v, ttl).Err(); err != nil {
		return errors.Join(ErrCacheFailed, err)
	}
	return nil
}

func (r *RedisVerdictCache) Delete(ctx context.Context, email string) error {
	if err := r.client.Del(ctx, r.prefix+email).Err(); err != nil {
		return errors.Join(ErrCacheFailed, err)
	}
	return nil
}

var (
	_ VerdictCache = (*MemoryVerdictCache)(nil)
	_ VerdictCache = (*RedisVerdictCache)(nil)
)
