package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/mailroom/pkg/archive"
	"github.com/dmitrymomot/mailroom/pkg/db"
	"github.com/dmitrymomot/mailroom/pkg/delivery"
	"github.com/dmitrymomot/mailroom/pkg/dispatch"
	"github.com/dmitrymomot/mailroom/pkg/guard"
	"github.com/dmitrymomot/mailroom/pkg/health"
	"github.com/dmitrymomot/mailroom/pkg/job"
	"github.com/dmitrymomot/mailroom/pkg/mailer"
	"github.com/dmitrymomot/mailroom/pkg/mailer/logsender"
	"github.com/dmitrymomot/mailroom/pkg/mailer/resend"
	"github.com/dmitrymomot/mailroom/pkg/mailer/ses"
	"github.com/dmitrymomot/mailroom/pkg/mailer/templates"
	"github.com/dmitrymomot/mailroom/pkg/outbox"
	"github.com/dmitrymomot/mailroom/pkg/redis"
)

// deps holds the infrastructure shared by serve, worker and the admin commands.
// Postgres and Redis are optional; without them the in-memory stores are used.
type deps struct {
	cfg          *Config
	log          *slog.Logger
	pool         *pgxpool.Pool
	redis        goredis.UniversalClient
	suppressions guard.SuppressionStore
	ledger       *outbox.Ledger
	composer     *mailer.Composer
	svc          *dispatch.Service
	checks       health.Checks
	shutdown     []func(context.Context) error
}

func connect(ctx context.Context, cfg *Config, log *slog.Logger) (*deps, error) {
	d := &deps{cfg: cfg, log: log, checks: health.Checks{}}

	pool, err := db.Connect(ctx, cfg.Database)
	switch {
	case errors.Is(err, db.ErrNotConfigured):
		log.Warn("DATABASE_CONN_URL not set, using in-memory outbox and suppression list")
	case err != nil:
		return nil, err
	default:
		d.pool = pool
		d.checks["postgres"] = db.Healthcheck(pool)
		d.shutdown = append(d.shutdown, db.Shutdown(pool))
	}

	client, err := redis.Connect(ctx, cfg.Redis)
	switch {
	case errors.Is(err, redis.ErrNotConfigured):
		log.Info("REDIS_URL not set, rate limits and suppression cache are per process")
	case err != nil:
		d.close(ctx)
		return nil, err
	default:
		d.redis = client
		d.checks["redis"] = redis.Healthcheck(client)
		d.shutdown = append(d.shutdown, redis.Shutdown(client))
	}

	d.suppressions = d.suppressionStore()
	return d, nil
}

func (d *deps) suppressionStore() guard.SuppressionStore {
	if d.pool == nil {
		return guard.NewMemorySuppressions()
	}

	store := guard.NewPostgresSuppressions(d.pool)
	if d.redis != nil {
		return guard.NewCachedSuppressions(store, guard.NewRedisVerdictCache(d.redis, ""), d.cfg.SuppressionTTL)
	}
	return guard.NewCachedSuppressions(store, guard.NewMemoryVerdictCache(0, time.Now), d.cfg.SuppressionTTL)
}

func (d *deps) limiter() guard.RateLimiter {
	if d.redis != nil {
		return guard.NewRedisLimiter(d.redis)
	}
	return guard.NewMemoryLimiter(time.Now)
}

func (d *deps) outboxStore() outbox.Store {
	if d.pool == nil {
		return outbox.NewMemoryStore()
	}
	return outbox.NewPostgresStore(d.pool)
}

func (d *deps) sender(ctx context.Context) (mailer.Sender, error) {
	switch d.cfg.Provider {
	case ProviderResend:
		return resend.New(d.cfg.Resend), nil
	case ProviderSES:
		return ses.New(ctx, d.cfg.SES)
	default:
		var opts []logsender.Option
		if d.cfg.LogBody {
			opts = append(opts, logsender.WithBody())
		}
		return logsender.New(d.log.With(slog.String("component", "logsender")), opts...), nil
	}
}

// buildComposer wires the renderer only; preview needs nothing else.
func (d *deps) buildComposer() *mailer.Composer {
	if d.composer == nil {
		r := mailer.NewRenderer(templates.FS, mailer.WithConfig(d.cfg.Mailer))
		d.composer = mailer.NewComposer(r, d.cfg.Mailer)
	}
	return d.composer
}

// buildService assembles the dispatch pipeline. When Postgres is available
// queued records are handed to the deliver_email job.
func (d *deps) buildService(ctx context.Context) (*dispatch.Service, error) {
	sender, err := d.sender(ctx)
	if err != nil {
		return nil, fmt.Errorf("mail provider %s: %w", d.cfg.Provider, err)
	}

	policy, err := d.cfg.RetryPolicy()
	if err != nil {
		return nil, err
	}

	d.ledger = outbox.NewLedger(d.outboxStore(), outbox.WithLogger(d.log))
	g := guard.New(d.suppressions, d.limiter(),
		guard.WithLimit(d.cfg.RateLimit, d.cfg.RateLimitWindow),
		guard.WithLogger(d.log),
	)
	transport := delivery.NewTransport(sender, d.cfg.Router(),
		delivery.WithRetryPolicy(policy),
		delivery.WithLogger(d.log),
	)

	opts := []dispatch.Option{
		dispatch.WithRetryHint(d.cfg.RetryHint),
		dispatch.WithLogger(d.log),
	}

	if d.pool != nil {
		enq, err := job.NewEnqueuer(d.pool, job.WithEnqueuerLogger(d.log))
		if err != nil {
			return nil, err
		}
		opts = append(opts, dispatch.WithScheduler(enq))
	}

	if d.cfg.Archive.Enabled() {
		a, err := archive.New(d.cfg.Archive)
		if err != nil {
			return nil, err
		}
		opts = append(opts, dispatch.WithArchive(a))
	}

	d.svc = dispatch.New(d.ledger, g, d.buildComposer(), transport, opts...)
	return d.svc, nil
}

// jobOptions registers the delivery and sweep tasks with a job manager.
func (d *deps) jobOptions() []job.Option {
	return []job.Option{
		job.WithLogger(d.log),
		job.WithMaxWorkers(d.cfg.JobWorkers),
		job.WithTask[dispatch.DeliverPayload](dispatch.NewDeliverTask(d.svc, d.log)),
		job.WithScheduledTask(dispatch.NewSweepTask(d.svc, d.cfg.SweepMaxRuns,
			dispatch.WithSweepSchedule(d.cfg.SweepSchedule),
			dispatch.WithSweepLogger(d.log),
		)),
	}
}

func (d *deps) close(ctx context.Context) {
	for i := len(d.shutdown) - 1; i >= 0; i-- {
		if err := d.shutdown[i](ctx); err != nil {
			d.log.WarnContext(ctx, "shutdown failed", slog.Any("error", err))
		}
	}
}
