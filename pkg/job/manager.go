package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/robfig/cron/v3"

	"github.com/dmitrymomot/mailroom/pkg/logger"
)

// Manager enqueues and runs jobs. The River client exists from NewManager
// on, so jobs may be inserted before Start.
type Manager struct {
	*Enqueuer
	tasks   registry
	logger  *slog.Logger
	running atomic.Bool
}

// NewManager builds a manager with its tasks, queues and cron schedules.
func NewManager(pool *pgxpool.Pool, opts ...Option) (*Manager, error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}

	cfg := newConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.NewNope()
	}

	queues := map[string]river.QueueConfig{
		river.QueueDefault: {MaxWorkers: cfg.maxWorkers},
	}
	for name, n := range cfg.queues {
		queues[name] = river.QueueConfig{MaxWorkers: n}
	}

	periodic := make([]*river.PeriodicJob, 0, len(cfg.scheduled))
	for _, task := range cfg.scheduled {
		schedule, err := parseCron(task.Schedule())
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q: %w", ErrInvalidCron, task.Name(), task.Schedule(), err)
		}
		name := task.Name()
		periodic = append(periodic, river.NewPeriodicJob(schedule,
			func() (river.JobArgs, *river.InsertOpts) { return &jobArgs{Task: name}, nil },
			nil,
		))
	}

	m := &Manager{tasks: cfg.tasks, logger: cfg.logger}

	workers := river.NewWorkers()
	river.AddWorker(workers, &worker{m: m})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:       queues,
		Workers:      workers,
		PeriodicJobs: periodic,
		Logger:       cfg.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("job: create client: %w", err)
	}
	m.Enqueuer = &Enqueuer{pool: pool, client: client}
	return m, nil
}

// Start begins fetching and running jobs.
func (m *Manager) Start(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	if err := m.client.Start(ctx); err != nil {
		m.running.Store(false)
		return fmt.Errorf("job: start: %w", err)
	}
	m.logger.InfoContext(ctx, "job workers started", slog.Any("tasks", m.tasks.names()))
	return nil
}

// Stop waits for running jobs to finish or ctx to expire.
func (m *Manager) Stop(ctx context.Context) error {
	if !m.running.CompareAndSwap(true, false) {
		return ErrNotStarted
	}
	if err := m.client.Stop(ctx); err != nil {
		return fmt.Errorf("job: stop: %w", err)
	}
	m.logger.InfoContext(ctx, "job workers stopped")
	return nil
}

// Running reports whether Start succeeded and Stop has not been called.
func (m *Manager) Running() bool {
	return m.running.Load()
}

// Enqueue rejects names that no registered task handles.
func (m *Manager) Enqueue(ctx context.Context, name string, payload any, opts ...EnqueueOption) error {
	if _, err := m.tasks.lookup(name); err != nil {
		return err
	}
	return m.Enqueuer.Enqueue(ctx, name, payload, opts...)
}

// EnqueueTx rejects names that no registered task handles.
func (m *Manager) EnqueueTx(ctx context.Context, tx pgx.Tx, name string, payload any, opts ...EnqueueOption) error {
	if _, err := m.tasks.lookup(name); err != nil {
		return err
	}
	return m.Enqueuer.EnqueueTx(ctx, tx, name, payload, opts...)
}

// StartFunc adapts Start to a startup hook.
func (m *Manager) StartFunc() func(context.Context) error {
	return m.Start
}

// Shutdown adapts Stop to a shutdown hook.
func (m *Manager) Shutdown() func(context.Context) error {
	return m.Stop
}

// Healthcheck fails until the manager is running and its pool answers.
func Healthcheck(m *Manager) func(context.Context) error {
	return func(ctx context.Context) error {
		if m == nil || !m.Running() {
			return fmt.Errorf("%w: workers not running", ErrHealthcheckFailed)
		}
		if err := m.pool.Ping(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrHealthcheckFailed, err)
		}
		return nil
	}
}

type worker struct {
	river.WorkerDefaults[jobArgs]
	m *Manager
}

func (w *worker) Work(ctx context.Context, j *river.Job[jobArgs]) error {
	handle, err := w.m.tasks.lookup(j.Args.Task)
	if err != nil {
		return river.JobCancel(err)
	}

	start := time.Now()
	if err := handle(ctx, j.Args.Payload); err != nil {
		w.m.logger.ErrorContext(ctx, "job failed",
			slog.String("task", j.Args.Task),
			slog.Int64("job_id", j.ID),
			slog.Int("attempt", j.Attempt),
			slog.Any("error", err),
		)
		return err
	}
	w.m.logger.DebugContext(ctx, "job done",
		slog.String("task", j.Args.Task),
		slog.Int64("job_id", j.ID),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// parseCron accepts five-field expressions only; cron.Schedule already
// satisfies river.PeriodicSchedule.
func parseCron(expr string) (river.PeriodicSchedule, error) {
	return cronParser.Parse(expr)
}
