package delivery

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Default retry settings: 3 retries (4 attempts) spaced 30s, 2m and 10m apart.
var DefaultSchedule = []time.Duration{30 * time.Second, 2 * time.Minute, 10 * time.Minute}

const DefaultMaxRetries = 3

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryPolicy runs an operation with a fixed backoff schedule.
// The delay before retry n is Schedule[n-1]; past the end of the schedule
// the last delay is reused.
type RetryPolicy struct {
	Schedule   []time.Duration
	MaxRetries int
	Sleep      SleepFunc
}

// DefaultRetryPolicy returns the standard policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Schedule:   append([]time.Duration(nil), DefaultSchedule...),
		MaxRetries: DefaultMaxRetries,
	}
}

// ParseSchedule parses a comma separated list such as "30s,2m,10m".
func ParseSchedule(s string) ([]time.Duration, error) {
	var out []time.Duration
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := time.ParseDuration(part)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSchedule, part)
		}
		out = append(out, d)
	}
	return out, nil
}

// Attempts is the maximum number of calls Do makes.
func (p RetryPolicy) Attempts() int {
	return max(p.MaxRetries, 0) + 1
}

// Delay returns the wait before retry n (1-based).
func (p RetryPolicy) Delay(n int) time.Duration {
	if len(p.Schedule) == 0 || n < 1 {
		return 0
	}
	if n > len(p.Schedule) {
		return p.Schedule[len(p.Schedule)-1]
	}
	return p.Schedule[n-1]
}

// Total is the cumulative wait when every attempt fails.
func (p RetryPolicy) Total() time.Duration {
	var sum time.Duration
	for n := 1; n <= max(p.MaxRetries, 0); n++ {
		sum += p.Delay(n)
	}
	return sum
}

// Do calls fn until it succeeds, returns a permanent error, the attempts
// run out, or ctx is done while waiting. It returns the number of calls
// made and the last error from fn.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) (int, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var err error
	attempts := p.Attempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx, attempt)
		if err == nil || IsPermanent(err) || attempt == attempts {
			return attempt, err
		}
		if werr := sleep(ctx, p.Delay(attempt)); werr != nil {
			return attempt, err
		}
	}
	return attempts, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
