package delivery_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailroom/pkg/delivery"
	"github.com/dmitrymomot/mailroom/pkg/mailer"
)

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func (s *recordingSleeper) Total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum time.Duration
	for _, d := range s.delays {
		sum += d
	}
	return sum
}

func testPolicy(s *recordingSleeper) delivery.RetryPolicy {
	p := delivery.DefaultRetryPolicy()
	p.Sleep = s.Sleep
	return p
}

var testRouter = delivery.Router{
	Default: delivery.Identity{Name: "Acme", Email: "hello@acme.test"},
	Billing: delivery.Identity{Name: "Acme Billing", Email: "billing@acme.test"},
}

func TestRouter_Route(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		subject  string
		category delivery.Category
		want     string
	}{
		{"invoice subject routes to billing", "Invoice INV-00042", delivery.CategoryAuto, "billing@acme.test"},
		{"estimate subject routes to default", "Estimate EST-001", delivery.CategoryAuto, "hello@acme.test"},
		{"payment keyword is case insensitive", "PAYMENT received", delivery.CategoryAuto, "billing@acme.test"},
		{"receipt keyword", "Your receipt", delivery.CategoryAuto, "billing@acme.test"},
		{"explicit default overrides keyword", "Invoice attached", delivery.CategoryDefault, "hello@acme.test"},
		{"explicit billing overrides keyword", "Estimate EST-001", delivery.CategoryBilling, "billing@acme.test"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, testRouter.Route(tt.subject, tt.category).Email)
		})
	}

	t.Run("billing falls back to default when unset", func(t *testing.T) {
		t.Parallel()
		r := delivery.Router{Default: delivery.Identity{Email: "hello@acme.test"}}
		assert.Equal(t, "hello@acme.test", r.Route("Invoice 1", delivery.CategoryAuto).Email)
	})
}

func TestParseCategory(t *testing.T) {
	t.Parallel()

	c, ok := delivery.ParseCategory(" Billing ")
	require.True(t, ok)
	assert.Equal(t, delivery.CategoryBilling, c)

	c, ok = delivery.ParseCategory("")
	require.True(t, ok)
	assert.Equal(t, delivery.CategoryAuto, c)

	_, ok = delivery.ParseCategory("marketing")
	assert.False(t, ok)
}

func TestRetryPolicy(t *testing.T) {
	t.Parallel()

	t.Run("delay follows schedule and reuses the last entry", func(t *testing.T) {
		t.Parallel()
		p := delivery.DefaultRetryPolicy()
		assert.Equal(t, 30*time.Second, p.Delay(1))
		assert.Equal(t, 2*time.Minute, p.Delay(2))
		assert.Equal(t, 10*time.Minute, p.Delay(3))
		assert.Equal(t, 10*time.Minute, p.Delay(7))
		assert.Equal(t, 4, p.Attempts())
		assert.Equal(t, 750*time.Second, p.Total())
	})

	t.Run("stops on first success", func(t *testing.T) {
		t.Parallel()
		s := &recordingSleeper{}
		calls := 0
		n, err := testPolicy(s).Do(context.Background(), func(context.Context, int) error {
			calls++
			if calls < 2 {
				return errors.New("temporary")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, []time.Duration{30 * time.Second}, s.delays)
	})

	t.Run("permanent errors are not retried", func(t *testing.T) {
		t.Parallel()
		s := &recordingSleeper{}
		boom := errors.New("address rejected")
		n, err := testPolicy(s).Do(context.Background(), func(context.Context, int) error {
			return delivery.Permanent(boom)
		})
		require.ErrorIs(t, err, boom)
		assert.True(t, delivery.IsPermanent(err))
		assert.Equal(t, 1, n)
		assert.Empty(t, s.delays)
	})

	t.Run("cancelled context stops the loop", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s := &recordingSleeper{}
		n, err := testPolicy(s).Do(ctx, func(context.Context, int) error {
			return errors.New("down")
		})
		require.EqualError(t, err, "down")
		assert.Equal(t, 1, n)
	})

	t.Run("default sleeper honours cancellation", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		p := delivery.RetryPolicy{Schedule: []time.Duration{time.Hour}, MaxRetries: 1}
		start := time.Now()
		n, err := p.Do(ctx, func(context.Context, int) error { return errors.New("down") })
		require.Error(t, err)
		assert.Equal(t, 1, n)
		assert.Less(t, time.Since(start), time.Minute)
	})
}

func TestParseSchedule(t *testing.T) {
	t.Parallel()

	got, err := delivery.ParseSchedule("30s, 2m,10m")
	require.NoError(t, err)
	assert.Equal(t, delivery.DefaultSchedule, got)

	_, err = delivery.ParseSchedule("30s,soon")
	require.ErrorIs(t, err, delivery.ErrInvalidSchedule)
}

func TestTransport_Send(t *testing.T) {
	t.Parallel()

	newEmail := func() *mailer.Email {
		return &mailer.Email{
			Subject: "Invoice INV-00042",
			HTML:    "<p>hi</p>",
			Text:    "hi",
			To:      []string{" Jane@Acme.COM ", "not-an-address"},
			CC:      []string{"Ops@Acme.com"},
		}
	}

	t.Run("delivers and routes billing subjects", func(t *testing.T) {
		t.Parallel()
		var got *mailer.Email
		sender := mailer.SenderFunc(func(_ context.Context, e *mailer.Email) (string, error) {
			got = e
			return "msg-1", nil
		})
		tr := delivery.NewTransport(sender, testRouter, delivery.WithRetryPolicy(testPolicy(&recordingSleeper{})))

		email := newEmail()
		rcpt, err := tr.Send(context.Background(), email, delivery.CategoryAuto)
		require.NoError(t, err)
		assert.Equal(t, "msg-1", rcpt.ProviderMessageID)
		assert.Equal(t, 1, rcpt.Attempts)
		assert.Equal(t, "Acme Billing <billing@acme.test>", rcpt.From)

		require.NotNil(t, got)
		assert.Equal(t, []string{"jane@acme.com"}, got.To)
		assert.Equal(t, []string{"ops@acme.com"}, got.CC)
		assert.Equal(t, "Acme Billing <billing@acme.test>", got.From)
		assert.Empty(t, email.From, "caller's email must not be mutated")
	})

	t.Run("retries four times with the fixed schedule", func(t *testing.T) {
		t.Parallel()
		s := &recordingSleeper{}
		calls := 0
		sender := mailer.SenderFunc(func(context.Context, *mailer.Email) (string, error) {
			calls++
			return "", fmt.Errorf("provider unavailable %d", calls)
		})
		tr := delivery.NewTransport(sender, testRouter, delivery.WithRetryPolicy(testPolicy(s)))

		rcpt, err := tr.Send(context.Background(), newEmail(), delivery.CategoryAuto)
		require.ErrorIs(t, err, delivery.ErrSendFailed)
		assert.Equal(t, 4, calls)
		assert.Equal(t, 4, rcpt.Attempts)
		assert.Equal(t, []time.Duration{30 * time.Second, 120 * time.Second, 600 * time.Second}, s.delays)
		assert.Equal(t, 750*time.Second, s.Total())

		var se *delivery.SendError
		require.ErrorAs(t, err, &se)
		assert.EqualError(t, se.Err, "provider unavailable 4")
	})

	t.Run("empty provider id counts as a failure", func(t *testing.T) {
		t.Parallel()
		sender := mailer.SenderFunc(func(context.Context, *mailer.Email) (string, error) {
			return "", nil
		})
		p := testPolicy(&recordingSleeper{})
		p.MaxRetries = 0
		tr := delivery.NewTransport(sender, testRouter, delivery.WithRetryPolicy(p))

		_, err := tr.Send(context.Background(), newEmail(), delivery.CategoryAuto)
		require.ErrorIs(t, err, delivery.ErrSendFailed)
	})

	t.Run("no valid recipient", func(t *testing.T) {
		t.Parallel()
		tr := delivery.NewTransport(mailer.SenderFunc(func(context.Context, *mailer.Email) (string, error) {
			t.Fatal("sender must not be called")
			return "", nil
		}), testRouter)

		_, err := tr.Send(context.Background(), &mailer.Email{Subject: "x", To: []string{"nope"}}, delivery.CategoryAuto)
		require.ErrorIs(t, err, delivery.ErrNoRecipient)
	})

	t.Run("no sender identity", func(t *testing.T) {
		t.Parallel()
		tr := delivery.NewTransport(mailer.SenderFunc(func(context.Context, *mailer.Email) (string, error) {
			return "id", nil
		}), delivery.Router{})

		_, err := tr.Send(context.Background(), newEmail(), delivery.CategoryAuto)
		require.ErrorIs(t, err, delivery.ErrNoSender)
	})
}
