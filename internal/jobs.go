package internal

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/mailroom/pkg/job"
)

// WithJobs runs a job manager inside the HTTP process. Its workers start
// before the server accepts requests and stop after it drains; handlers
// enqueue through c.Enqueue.
//
//	mailroom.WithJobs(pool,
//	    job.WithTask[dispatch.DeliverPayload](dispatch.NewDeliverTask(svc, log)),
//	    job.WithScheduledTask(dispatch.NewSweepTask(svc, 5)),
//	)
func WithJobs(pool *pgxpool.Pool, opts ...job.Option) Option {
	return func(a *App) {
		m := mustManager(pool, opts)
		a.jobEnqueuer = m
		a.jobWorker = m
	}
}

// WithJobEnqueuer lets handlers enqueue jobs that a separate worker
// process runs.
func WithJobEnqueuer(pool *pgxpool.Pool, opts ...job.EnqueuerOption) Option {
	return func(a *App) {
		e, err := job.NewEnqueuer(pool, opts...)
		if err != nil {
			panic(fmt.Sprintf("mailroom: job enqueuer: %v", err))
		}
		a.jobEnqueuer = e
	}
}

// WithJobWorker runs workers without exposing c.Enqueue, which then
// returns job.ErrNotConfigured.
func WithJobWorker(pool *pgxpool.Pool, opts ...job.Option) Option {
	return func(a *App) {
		a.jobWorker = mustManager(pool, opts)
	}
}

// Options cannot return errors, so a misconfigured manager fails at startup.
func mustManager(pool *pgxpool.Pool, opts []job.Option) *job.Manager {
	m, err := job.NewManager(pool, opts...)
	if err != nil {
		panic(fmt.Sprintf("mailroom: job manager: %v", err))
	}
	return m
}
