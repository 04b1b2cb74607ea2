package job

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/dmitrymomot/mailroom/pkg/logger"
)

// Inserter is the enqueue side shared by Enqueuer and Manager.
type Inserter interface {
	Enqueue(ctx context.Context, name string, payload any, opts ...EnqueueOption) error
	EnqueueTx(ctx context.Context, tx pgx.Tx, name string, payload any, opts ...EnqueueOption) error
}

// jobArgs is the single River job kind; the task name picks the handler.
type jobArgs struct {
	Task      string          `json:"task"`
	UniqueKey string          `json:"unique_key,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func (jobArgs) Kind() string { return "mailroom:task" }

// Enqueuer inserts jobs through an insert-only River client. It never runs
// them, so task names are not checked here.
type Enqueuer struct {
	pool   *pgxpool.Pool
	client *river.Client[pgx.Tx]
}

// EnqueuerOption configures an Enqueuer.
type EnqueuerOption func(*river.Config)

// WithEnqueuerLogger sets the logger handed to River.
func WithEnqueuerLogger(l *slog.Logger) EnqueuerOption {
	return func(cfg *river.Config) {
		if l != nil {
			cfg.Logger = l
		}
	}
}

// NewEnqueuer creates an insert-only client on pool.
func NewEnqueuer(pool *pgxpool.Pool, opts ...EnqueuerOption) (*Enqueuer, error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}

	cfg := &river.Config{Logger: logger.NewNope()}
	for _, opt := range opts {
		opt(cfg)
	}

	client, err := river.NewClient(riverpgxv5.New(pool), cfg)
	if err != nil {
		return nil, fmt.Errorf("job: create client: %w", err)
	}
	return &Enqueuer{pool: pool, client: client}, nil
}

// Enqueue inserts a job for the task called name.
func (e *Enqueuer) Enqueue(ctx context.Context, name string, payload any, opts ...EnqueueOption) error {
	args, insert, err := newInsert(name, payload, opts)
	if err != nil {
		return err
	}
	if _, err := e.client.Insert(ctx, args, insert); err != nil {
		return fmt.Errorf("job: enqueue %s: %w", name, err)
	}
	return nil
}

// EnqueueTx inserts the job inside tx; workers see it after commit.
func (e *Enqueuer) EnqueueTx(ctx context.Context, tx pgx.Tx, name string, payload any, opts ...EnqueueOption) error {
	args, insert, err := newInsert(name, payload, opts)
	if err != nil {
		return err
	}
	if _, err := e.client.InsertTx(ctx, tx, args, insert); err != nil {
		return fmt.Errorf("job: enqueue %s in tx: %w", name, err)
	}
	return nil
}

func newInsert(name string, payload any, opts []EnqueueOption) (*jobArgs, *river.InsertOpts, error) {
	args := &jobArgs{Task: name}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("job: encode %s payload: %w", name, err)
		}
		args.Payload = raw
	}

	var o insertOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.uniqueFor > 0 {
		o.UniqueOpts = river.UniqueOpts{ByArgs: true, ByPeriod: o.uniqueFor}
		args.UniqueKey = o.uniqueKey
	}
	insert := o.InsertOpts
	return args, &insert, nil
}
