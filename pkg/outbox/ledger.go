package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/mailroom/pkg/logger"
)

// Ledger owns every mutation of outbox records and enforces the status machine.
// Callers never write to the Store directly.
type Ledger struct {
	store  Store
	clock  Clock
	newID  func() string
	logger *slog.Logger
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithClock sets the ledger clock.
func WithClock(c Clock) LedgerOption {
	return func(l *Ledger) {
		if c != nil {
			l.clock = c
		}
	}
}

// WithIDGenerator overrides record id generation (UUIDv7 by default).
func WithIDGenerator(fn func() string) LedgerOption {
	return func(l *Ledger) {
		if fn != nil {
			l.newID = fn
		}
	}
}

// WithLogger sets the logger for status transitions.
func WithLogger(log *slog.Logger) LedgerOption {
	return func(l *Ledger) {
		if log != nil {
			l.logger = log
		}
	}
}

// NewLedger creates a ledger on top of the given store.
func NewLedger(store Store, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		store:  store,
		clock:  SystemClock{},
		newID:  newRecordID,
		logger: logger.NewNope(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now returns the ledger's current time.
func (l *Ledger) Now() time.Time {
	return l.clock.Now()
}

// Create appends a new record in status queued or suppressed.
func (l *Ledger) Create(ctx context.Context, in NewRecord) (*Record, error) {
	status := in.Status
	if status == "" {
		status = StatusQueued
	}
	if status != StatusQueued && status != StatusSuppressed {
		return nil, fmt.Errorf("%w: cannot create record in status %q", ErrInvalidTransition, status)
	}
	if in.Template == "" || in.Recipient == "" {
		return nil, fmt.Errorf("%w: template and recipient are required", ErrInvalidRecord)
	}

	to := in.To
	if len(to) == 0 {
		to = []string{in.Recipient}
	}

	now := l.clock.Now()
	r := &Record{
		ID:             l.newID(),
		Template:       in.Template,
		RefID:          in.RefID,
		CallerID:       in.CallerID,
		Recipient:      in.Recipient,
		To:             to,
		CC:             nonNil(in.CC),
		BCC:            nonNil(in.BCC),
		Subject:        in.Subject,
		SenderCategory: in.SenderCategory,
		Payload:        in.Payload,
		Status:         status,
		Error:          in.Error,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := l.store.Insert(ctx, r); err != nil {
		return nil, err
	}

	l.logger.DebugContext(ctx, "outbox record created",
		slog.String("record_id", r.ID),
		slog.String("template", r.Template),
		slog.String("status", r.Status.String()),
	)
	return r.Clone(), nil
}

// Get returns the record with the given id.
func (l *Ledger) Get(ctx context.Context, id string) (*Record, error) {
	return l.store.Get(ctx, id)
}

// MarkSending claims a queued or failed record for a delivery run.
func (l *Ledger) MarkSending(ctx context.Context, id string) (*Record, error) {
	return l.transition(ctx, id, StatusSending, func(r *Record) {
		r.Error = ""
		r.NextRetryAt = nil
	})
}

// MarkSent records a successful delivery.
func (l *Ledger) MarkSent(ctx context.Context, id, providerMessageID, from string, attempts int) (*Record, error) {
	if strings.TrimSpace(providerMessageID) == "" {
		return nil, fmt.Errorf("%w: sent record requires a provider message id", ErrInvalidRecord)
	}
	return l.transition(ctx, id, StatusSent, func(r *Record) {
		r.ProviderMessageID = providerMessageID
		r.From = from
		r.Attempts = attempts
		r.Error = ""
		r.NextRetryAt = nil
	})
}

// MarkFailed records an exhausted delivery run. The retry count is bumped by one
// and nextRetryAt is an advisory hint for an out-of-band re-attempt.
func (l *Ledger) MarkFailed(ctx context.Context, id, reason, from string, attempts int, retryIn time.Duration) (*Record, error) {
	return l.transition(ctx, id, StatusFailed, func(r *Record) {
		r.RetryCount++
		r.Error = reason
		r.From = from
		r.Attempts = attempts
		r.ProviderMessageID = ""
		if retryIn > 0 {
			next := r.UpdatedAt.Add(retryIn)
			r.NextRetryAt = &next
		}
	})
}

// ListDue returns failed records ready for another delivery run.
func (l *Ledger) ListDue(ctx context.Context, maxRetries, limit int) ([]*Record, error) {
	return l.store.ListDue(ctx, l.clock.Now(), maxRetries, limit)
}

func (l *Ledger) transition(ctx context.Context, id string, next Status, apply func(r *Record)) (*Record, error) {
	var prev Status
	r, err := l.store.Modify(ctx, id, func(r *Record) error {
		if !r.Status.CanTransition(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, next)
		}
		prev = r.Status
		r.Status = next
		r.UpdatedAt = l.clock.Now()
		apply(r)
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrInvalidTransition) {
			l.logger.ErrorContext(ctx, "outbox transition failed",
				slog.String("record_id", id),
				slog.String("to", next.String()),
				slog.Any("error", err),
			)
		}
		return nil, err
	}

	l.logger.DebugContext(ctx, "outbox record transitioned",
		slog.String("record_id", id),
		slog.String("from", prev.String()),
		slog.String("to", next.String()),
	)
	return r, nil
}

func newRecordID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
