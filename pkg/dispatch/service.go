// Package dispatch wires validation, the guard, the outbox ledger, rendering
// and delivery into the two stages of a send: Enqueue records a request and
// AttemptDelivery delivers a recorded message.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/mailroom/pkg/archive"
	"github.com/dmitrymomot/mailroom/pkg/delivery"
	"github.com/dmitrymomot/mailroom/pkg/guard"
	"github.com/dmitrymomot/mailroom/pkg/job"
	"github.com/dmitrymomot/mailroom/pkg/logger"
	"github.com/dmitrymomot/mailroom/pkg/mailer"
	"github.com/dmitrymomot/mailroom/pkg/outbox"
)

// DefaultRetryHint spaces the advisory nextRetryAt of failed records.
const DefaultRetryHint = 30 * time.Second

// Scheduler hands work to a background queue. *job.Manager and
// *job.Enqueuer implement it.
type Scheduler interface {
	Enqueue(ctx context.Context, name string, payload any, opts ...job.EnqueueOption) error
}

// Service runs send requests through the delivery pipeline.
type Service struct {
	ledger    *outbox.Ledger
	guard     *guard.Guard
	composer  *mailer.Composer
	transport *delivery.Transport
	scheduler Scheduler
	archive   archive.Archive
	retryHint time.Duration
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithScheduler hands queued records to the deliver_email task.
// Without a scheduler queued records wait for an external drainer.
func WithScheduler(s Scheduler) Option {
	return func(svc *Service) { svc.scheduler = s }
}

// WithArchive stores a copy of every delivered message.
func WithArchive(a archive.Archive) Option {
	return func(svc *Service) { svc.archive = a }
}

// WithRetryHint sets the base of the advisory nextRetryAt on failed records.
func WithRetryHint(d time.Duration) Option {
	return func(svc *Service) {
		if d > 0 {
			svc.retryHint = d
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}

// New creates a dispatch service.
func New(ledger *outbox.Ledger, g *guard.Guard, composer *mailer.Composer, transport *delivery.Transport, opts ...Option) *Service {
	s := &Service{
		ledger:    ledger,
		guard:     g,
		composer:  composer,
		transport: transport,
		retryHint: DefaultRetryHint,
		logger:    logger.NewNope(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ledger returns the outbox ledger.
func (s *Service) Ledger() *outbox.Ledger {
	return s.ledger
}

// Send enqueues req and delivers it right away when the caller asked to
// skip the queue or the template is a receipt. Other requests stay queued.
// A suppressed request returns its record with a nil error.
// When delivery fails the failed record is returned along with the error.
func (s *Service) Send(ctx context.Context, req Request) (*outbox.Record, error) {
	rec, err := s.Enqueue(ctx, req)
	if err != nil || rec.Status != outbox.StatusQueued {
		return rec, err
	}

	if req.SkipQueue || rec.Template == string(mailer.TemplateReceipt) {
		return s.AttemptDelivery(ctx, rec.ID)
	}

	s.schedule(ctx, rec)
	return rec, nil
}

// Enqueue validates req, runs the guard and records the outcome. A
// suppressed recipient produces a suppressed record; a rate limited one
// produces ErrRateLimited and no record.
func (s *Service) Enqueue(ctx context.Context, req Request) (*outbox.Record, error) {
	v, err := req.validate()
	if err != nil {
		return nil, err
	}

	decision, err := s.guard.Check(ctx, v.to[0])
	if err != nil {
		return nil, errors.Join(ErrGuardUnavailable, err)
	}

	in := outbox.NewRecord{
		Template:       string(v.template),
		RefID:          req.RefID,
		CallerID:       req.CallerID,
		Recipient:      v.to[0],
		To:             v.to,
		CC:             v.cc,
		BCC:            v.bcc,
		Subject:        req.Subject,
		SenderCategory: string(v.category),
		Payload:        req.Payload,
	}

	switch decision {
	case guard.RateLimited:
		s.logger.InfoContext(ctx, "send rejected by rate limit",
			slog.String("recipient", v.to[0]),
			slog.String("template", string(v.template)),
		)
		return nil, ErrRateLimited
	case guard.Suppressed:
		in.Status = outbox.StatusSuppressed
		in.Error = guard.SuppressedReason
	default:
		in.Status = outbox.StatusQueued
	}

	rec, err := s.ledger.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("dispatch: create record: %w", err)
	}

	s.logger.InfoContext(ctx, "email accepted",
		slog.String("record_id", rec.ID),
		slog.String("template", rec.Template),
		slog.String("status", rec.Status.String()),
	)
	return rec, nil
}

// AttemptDelivery renders and sends a queued or failed record and stores
// the outcome. It is safe to call repeatedly: a record that is already
// sending or sent yields ErrNotDeliverable.
func (s *Service) AttemptDelivery(ctx context.Context, id string) (*outbox.Record, error) {
	rec, err := s.ledger.MarkSending(ctx, id)
	switch {
	case errors.Is(err, outbox.ErrNotFound):
		return nil, ErrRecordNotFound
	case errors.Is(err, outbox.ErrInvalidTransition):
		return nil, errors.Join(ErrNotDeliverable, err)
	case err != nil:
		return nil, fmt.Errorf("dispatch: claim record: %w", err)
	}

	// The outcome is stored even if the caller goes away mid-delivery.
	storeCtx := context.WithoutCancel(ctx)

	email, err := s.compose(rec)
	if err != nil {
		return s.fail(storeCtx, rec, err.Error(), "", 0, err)
	}

	category, _ := delivery.ParseCategory(rec.SenderCategory)
	receipt, err := s.transport.Send(ctx, email, category)
	if err != nil {
		reason := err.Error()
		var se *delivery.SendError
		if errors.As(err, &se) {
			reason = se.Err.Error()
		}
		return s.fail(storeCtx, rec, reason, receipt.From, receipt.Attempts, err)
	}

	sent, err := s.ledger.MarkSent(storeCtx, rec.ID, receipt.ProviderMessageID, receipt.From, receipt.Attempts)
	if err != nil {
		return nil, fmt.Errorf("dispatch: record delivery: %w", err)
	}

	s.logger.InfoContext(ctx, "email sent",
		slog.String("record_id", sent.ID),
		slog.String("provider_message_id", sent.ProviderMessageID),
		slog.Int("attempts", sent.Attempts),
	)
	s.store(storeCtx, sent, email)
	return sent, nil
}

// Sweep hands failed records whose retry hint is due back to delivery.
// Records that already failed maxRuns times are left alone.
func (s *Service) Sweep(ctx context.Context, maxRuns, limit int) (int, error) {
	due, err := s.ledger.ListDue(ctx, maxRuns, limit)
	if err != nil {
		return 0, fmt.Errorf("dispatch: list due records: %w", err)
	}

	n := 0
	for _, rec := range due {
		if s.scheduler != nil {
			if err := s.scheduler.Enqueue(ctx, DeliverTaskName, DeliverPayload{RecordID: rec.ID},
				job.MaxAttempts(1),
				job.UniqueKey(rec.ID),
				job.UniqueFor(s.retryHint),
			); err != nil {
				s.logger.WarnContext(ctx, "failed to schedule retry",
					slog.String("record_id", rec.ID),
					slog.Any("error", err),
				)
				continue
			}
			n++
			continue
		}

		if _, err := s.AttemptDelivery(ctx, rec.ID); err != nil && !errors.Is(err, ErrSendFailed) {
			s.logger.WarnContext(ctx, "retry skipped",
				slog.String("record_id", rec.ID),
				slog.Any("error", err),
			)
			continue
		}
		n++
	}
	return n, nil
}

func (s *Service) compose(rec *outbox.Record) (*mailer.Email, error) {
	payload, err := mailer.DecodePayload(mailer.TemplateID(rec.Template), rec.Payload)
	if err != nil {
		return nil, err
	}

	email, err := s.composer.Compose(mailer.Message{
		To:      rec.To,
		CC:      rec.CC,
		BCC:     rec.BCC,
		Subject: rec.Subject,
		Payload: payload,
	})
	if err != nil {
		return nil, err
	}
	email.Tags["record_id"] = rec.ID
	return email, nil
}

func (s *Service) fail(ctx context.Context, rec *outbox.Record, reason, from string, attempts int, cause error) (*outbox.Record, error) {
	hint := s.retryHint * time.Duration(rec.RetryCount+1)
	failed, err := s.ledger.MarkFailed(ctx, rec.ID, reason, from, attempts, hint)
	if err != nil {
		return nil, errors.Join(ErrSendFailed, cause, err)
	}

	s.logger.ErrorContext(ctx, "email delivery failed",
		slog.String("record_id", failed.ID),
		slog.Int("retry_count", failed.RetryCount),
		slog.Int("attempts", attempts),
		slog.String("error", reason),
	)
	return failed, errors.Join(ErrSendFailed, cause)
}

func (s *Service) schedule(ctx context.Context, rec *outbox.Record) {
	if s.scheduler == nil {
		return
	}
	err := s.scheduler.Enqueue(ctx, DeliverTaskName, DeliverPayload{RecordID: rec.ID}, job.MaxAttempts(1))
	if err != nil {
		s.logger.WarnContext(ctx, "failed to schedule delivery, record stays queued",
			slog.String("record_id", rec.ID),
			slog.Any("error", err),
		)
	}
}

func (s *Service) store(ctx context.Context, rec *outbox.Record, email *mailer.Email) {
	if s.archive == nil {
		return
	}
	err := s.archive.Store(ctx, archive.Entry{
		RecordID:          rec.ID,
		Template:          rec.Template,
		ProviderMessageID: rec.ProviderMessageID,
		From:              rec.From,
		To:                rec.To,
		Subject:           email.Subject,
		SentAt:            rec.UpdatedAt,
		HTML:              email.HTML,
		Text:              email.Text,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to archive message",
			slog.String("record_id", rec.ID),
			slog.Any("error", err),
		)
	}
}
