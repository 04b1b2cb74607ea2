package guard_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailroom/pkg/guard"
)

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

type failingList struct{}

func (failingList) IsSuppressed(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestGuard_Check(t *testing.T) {
	t.Parallel()

	t.Run("allows clean recipient", func(t *testing.T) {
		t.Parallel()

		g := guard.New(guard.NewMemorySuppressions(), guard.NewMemoryLimiter(nil))
		d, err := g.Check(context.Background(), "jane@acme.com")
		require.NoError(t, err)
		require.Equal(t, guard.Allow, d)
	})

	t.Run("suppressed recipient short-circuits the limiter", func(t *testing.T) {
		t.Parallel()

		limiter := &mockLimiter{}
		g := guard.New(guard.NewMemorySuppressions("bounced@acme.com"), limiter)

		d, err := g.Check(context.Background(), "bounced@acme.com")
		require.NoError(t, err)
		require.Equal(t, guard.Suppressed, d)
		limiter.AssertNotCalled(t, "Allow", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rate limited after cap", func(t *testing.T) {
		t.Parallel()

		g := guard.New(guard.NewMemorySuppressions(), guard.NewMemoryLimiter(nil), guard.WithLimit(2, time.Hour))
		ctx := context.Background()

		for range 2 {
			d, err := g.Check(ctx, "jane@acme.com")
			require.NoError(t, err)
			require.Equal(t, guard.Allow, d)
		}

		d, err := g.Check(ctx, "jane@acme.com")
		require.NoError(t, err)
		require.Equal(t, guard.RateLimited, d)

		d, err = g.Check(ctx, "john@acme.com")
		require.NoError(t, err)
		require.Equal(t, guard.Allow, d, "limits are per recipient")
	})

	t.Run("passes configured limit to limiter", func(t *testing.T) {
		t.Parallel()

		limiter := &mockLimiter{}
		limiter.On("Allow", mock.Anything, "jane@acme.com", 5, 30*time.Minute).Return(true, nil).Once()

		g := guard.New(nil, limiter, guard.WithLimit(5, 30*time.Minute))
		d, err := g.Check(context.Background(), "jane@acme.com")
		require.NoError(t, err)
		require.Equal(t, guard.Allow, d)
		limiter.AssertExpectations(t)
	})

	t.Run("suppression lookup failure fails closed", func(t *testing.T) {
		t.Parallel()

		g := guard.New(failingList{}, guard.NewMemoryLimiter(nil))
		_, err := g.Check(context.Background(), "jane@acme.com")
		require.ErrorIs(t, err, guard.ErrSuppressionLookup)
	})

	t.Run("limiter failure fails open", func(t *testing.T) {
		t.Parallel()

		limiter := &mockLimiter{}
		limiter.On("Allow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(false, guard.ErrLimiterFailed)

		g := guard.New(guard.NewMemorySuppressions(), limiter)
		d, err := g.Check(context.Background(), "jane@acme.com")
		require.NoError(t, err)
		require.Equal(t, guard.Allow, d)
	})

	t.Run("empty address", func(t *testing.T) {
		t.Parallel()

		g := guard.New(nil, nil)
		_, err := g.Check(context.Background(), "")
		require.ErrorIs(t, err, guard.ErrInvalidAddress)
	})
}

func TestMemoryLimiter_SlidingWindow(t *testing.T) {
	t.Parallel()

	clock := &manualClock{now: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	l := guard.NewMemoryLimiter(clock.Now)
	ctx := context.Background()

	allow := func() bool {
		ok, err := l.Allow(ctx, "jane@acme.com", 3, time.Hour)
		require.NoError(t, err)
		return ok
	}

	require.True(t, allow())
	clock.Advance(20 * time.Minute)
	require.True(t, allow())
	clock.Advance(20 * time.Minute)
	require.True(t, allow())
	require.False(t, allow())

	// Rejections are not counted, so only the first hit needs to age out.
	clock.Advance(20*time.Minute + time.Second)
	require.True(t, allow())
	require.False(t, allow())
}

func TestMemoryLimiter_ZeroLimitDisables(t *testing.T) {
	t.Parallel()

	l := guard.NewMemoryLimiter(nil)
	for range 100 {
		ok, err := l.Allow(context.Background(), "jane@acme.com", 0, time.Hour)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestCachedSuppressions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := guard.NewMemorySuppressions()
	s := guard.NewCachedSuppressions(store, guard.NewMemoryVerdictCache(0, nil), time.Minute)

	ok, err := s.IsSuppressed(ctx, "jane@acme.com")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Add(ctx, "jane@acme.com", "bounced"))
	ok, err = s.IsSuppressed(ctx, "jane@acme.com")
	require.NoError(t, err)
	require.True(t, ok, "add must overwrite the cached negative answer")

	require.NoError(t, s.Remove(ctx, "jane@acme.com"))
	ok, err = s.IsSuppressed(ctx, "jane@acme.com")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = store.IsSuppressed(ctx, "jane@acme.com")
	require.NoError(t, err)
	require.False(t, ok)
}

type countingList struct {
	guard.SuppressionStore
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingList) IsSuppressed(ctx context.Context, email string) (bool, error) {
	c.mu.Lock()
	c.calls++
	err := c.err
	c.mu.Unlock()
	if err != nil {
		return false, err
	}
	return c.SuppressionStore.IsSuppressed(ctx, email)
}

func (c *countingList) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestCachedSuppressions_ServesFromCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	store := &countingList{SuppressionStore: guard.NewMemorySuppressions("blocked@acme.com")}
	s := guard.NewCachedSuppressions(store, guard.NewMemoryVerdictCache(0, func() time.Time { return now }), time.Minute)

	for range 3 {
		ok, err := s.IsSuppressed(ctx, "blocked@acme.com")
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.Equal(t, 1, store.Calls())

	now = now.Add(2 * time.Minute)
	_, err := s.IsSuppressed(ctx, "blocked@acme.com")
	require.NoError(t, err)
	require.Equal(t, 2, store.Calls(), "expired answers are looked up again")
}

func TestCachedSuppressions_StoreErrorIsNotCached(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &countingList{SuppressionStore: guard.NewMemorySuppressions(), err: errors.New("connection refused")}
	s := guard.NewCachedSuppressions(store, guard.NewMemoryVerdictCache(0, nil), time.Minute)

	_, err := s.IsSuppressed(ctx, "jane@acme.com")
	require.Error(t, err)

	store.mu.Lock()
	store.err = nil
	store.mu.Unlock()

	ok, err := s.IsSuppressed(ctx, "jane@acme.com")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 2, store.Calls())
}

func TestMemoryVerdictCache_Bounded(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := guard.NewMemoryVerdictCache(2, nil)

	require.NoError(t, c.Set(ctx, "a@acme.com", true, time.Minute))
	require.NoError(t, c.Set(ctx, "b@acme.com", false, time.Minute))
	require.NoError(t, c.Set(ctx, "c@acme.com", true, time.Minute))

	found := 0
	for _, e := range []string{"a@acme.com", "b@acme.com", "c@acme.com"} {
		if _, ok, _ := c.Get(ctx, e); ok {
			found++
		}
	}
	require.Equal(t, 2, found)

	suppressed, ok, err := c.Get(ctx, "c@acme.com")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, suppressed)
}

type gatedList struct {
	guard.SuppressionStore
	once    sync.Once
	started chan struct{}
	release chan struct{}
	done    chan error
}

func (g *gatedList) IsSuppressed(ctx context.Context, email string) (bool, error) {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
	case <-ctx.Done():
		g.done <- ctx.Err()
		return false, ctx.Err()
	}
	ok, err := g.SuppressionStore.IsSuppressed(ctx, email)
	select {
	case g.done <- err:
	default:
	}
	return ok, err
}

func TestCachedSuppressions_LookupOutlivesCancelledCaller(t *testing.T) {
	t.Parallel()

	store := &gatedList{
		SuppressionStore: guard.NewMemorySuppressions("blocked@acme.com"),
		started:          make(chan struct{}),
		release:          make(chan struct{}),
		done:             make(chan error, 1),
	}
	s := guard.NewCachedSuppressions(store, guard.NewMemoryVerdictCache(0, nil), time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := s.IsSuppressed(ctx, "blocked@acme.com")
		errc <- err
	}()

	<-store.started
	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)

	close(store.release)
	require.NoError(t, <-store.done, "lookup must not see the caller's cancellation")

	ok, err := s.IsSuppressed(context.Background(), "blocked@acme.com")
	require.NoError(t, err)
	require.True(t, ok)
}
