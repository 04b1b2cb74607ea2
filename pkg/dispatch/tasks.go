package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/mailroom/pkg/logger"
)

// Task names registered with the job manager.
const (
	DeliverTaskName = "deliver_email"
	SweepTaskName   = "sweep_outbox"
)

// DefaultSweepSchedule runs the sweeper every minute.
const DefaultSweepSchedule = "* * * * *"

// DeliverPayload is the deliver_email job payload.
type DeliverPayload struct {
	RecordID string `json:"record_id"`
}

// DeliverTask delivers one queued or failed record.
type DeliverTask struct {
	svc    *Service
	logger *slog.Logger
}

// NewDeliverTask creates the deliver_email task.
func NewDeliverTask(svc *Service, log *slog.Logger) *DeliverTask {
	if log == nil {
		log = logger.NewNope()
	}
	return &DeliverTask{svc: svc, logger: log}
}

func (t *DeliverTask) Name() string { return DeliverTaskName }

// Handle runs one delivery. Outcomes already stored in the outbox, and
// records someone else has claimed, are not job failures.
func (t *DeliverTask) Handle(ctx context.Context, p DeliverPayload) error {
	_, err := t.svc.AttemptDelivery(ctx, p.RecordID)
	switch {
	case err == nil, errors.Is(err, ErrSendFailed):
		return nil
	case errors.Is(err, ErrNotDeliverable), errors.Is(err, ErrRecordNotFound):
		t.logger.InfoContext(ctx, "delivery job skipped",
			slog.String("record_id", p.RecordID),
			slog.Any("reason", err),
		)
		return nil
	default:
		return err
	}
}

// SweepTask periodically re-attempts failed records whose retry hint is due.
type SweepTask struct {
	svc      *Service
	schedule string
	maxRuns  int
	batch    int
	logger   *slog.Logger
}

// SweepOption configures a SweepTask.
type SweepOption func(*SweepTask)

// WithSweepSchedule overrides the cron expression.
func WithSweepSchedule(expr string) SweepOption {
	return func(t *SweepTask) {
		if expr != "" {
			t.schedule = expr
		}
	}
}

// WithSweepBatch limits records handled per run.
func WithSweepBatch(n int) SweepOption {
	return func(t *SweepTask) {
		if n > 0 {
			t.batch = n
		}
	}
}

// WithSweepLogger sets the task logger.
func WithSweepLogger(l *slog.Logger) SweepOption {
	return func(t *SweepTask) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewSweepTask creates the sweep_outbox task. Records that failed maxRuns
// delivery runs are no longer retried; zero means no cap.
func NewSweepTask(svc *Service, maxRuns int, opts ...SweepOption) *SweepTask {
	t := &SweepTask{
		svc:      svc,
		schedule: DefaultSweepSchedule,
		maxRuns:  maxRuns,
		batch:    100,
		logger:   logger.NewNope(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *SweepTask) Name() string     { return SweepTaskName }
func (t *SweepTask) Schedule() string { return t.schedule }

func (t *SweepTask) Handle(ctx context.Context) error {
	n, err := t.svc.Sweep(ctx, t.maxRuns, t.batch)
	if err != nil {
		return err
	}
	if n > 0 {
		t.logger.InfoContext(ctx, "outbox sweep", slog.Int("retried", n))
	}
	return nil
}
