package job

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deliverPayload struct {
	RecordID string `json:"record_id"`
}

type deliverTask struct {
	got deliverPayload
	err error
}

func (t *deliverTask) Name() string { return "deliver_email" }

func (t *deliverTask) Handle(_ context.Context, p deliverPayload) error {
	t.got = p
	return t.err
}

type sweepTask struct {
	schedule string
	runs     int
}

func (t *sweepTask) Name() string     { return "sweep_outbox" }
func (t *sweepTask) Schedule() string { return t.schedule }

func (t *sweepTask) Handle(context.Context) error {
	t.runs++
	return nil
}

func TestWithTask(t *testing.T) {
	t.Parallel()

	task := &deliverTask{}
	cfg := newConfig()
	WithTask(task)(cfg)

	handle, err := cfg.tasks.lookup("deliver_email")
	require.NoError(t, err)
	require.NoError(t, handle(context.Background(), json.RawMessage(`{"record_id":"rec-1"}`)))
	assert.Equal(t, "rec-1", task.got.RecordID)

	_, err = cfg.tasks.lookup("missing")
	require.ErrorIs(t, err, ErrUnknownTask)
	assert.Contains(t, err.Error(), `"missing"`)
}

func TestTaskPayloadDecoding(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	tests := []struct {
		name    string
		task    *deliverTask
		raw     json.RawMessage
		wantErr error
		wantID  string
	}{
		{name: "valid", task: &deliverTask{}, raw: json.RawMessage(`{"record_id":"r"}`), wantID: "r"},
		{name: "empty payload is zero value", task: &deliverTask{}},
		{name: "truncated json", task: &deliverTask{}, raw: json.RawMessage(`{"record_id":`), wantErr: ErrInvalidPayload},
		{name: "handler error", task: &deliverTask{err: boom}, wantErr: boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := decodeInto[deliverPayload](tt.task)(context.Background(), tt.raw)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, tt.task.got.RecordID)
		})
	}
}

func TestWithScheduledTask(t *testing.T) {
	t.Parallel()

	task := &sweepTask{schedule: "* * * * *"}
	cfg := newConfig()
	WithScheduledTask(task)(cfg)

	require.Len(t, cfg.scheduled, 1)
	handle, err := cfg.tasks.lookup("sweep_outbox")
	require.NoError(t, err)
	require.NoError(t, handle(context.Background(), json.RawMessage(`{"ignored":true}`)))
	assert.Equal(t, 1, task.runs)
	assert.Equal(t, []string{"sweep_outbox"}, cfg.tasks.names())
}

func TestOptions(t *testing.T) {
	t.Parallel()

	cfg := newConfig()
	WithQueue("email", 10)(cfg)
	WithQueue("ignored", 0)(cfg)
	WithQueue("", 5)(cfg)
	WithMaxWorkers(-1)(cfg)
	WithLogger(nil)(cfg)

	assert.Equal(t, map[string]int{"email": 10}, cfg.queues)
	assert.Equal(t, defaultMaxWorkers, cfg.maxWorkers)
	assert.Nil(t, cfg.logger)

	WithMaxWorkers(20)(cfg)
	assert.Equal(t, 20, cfg.maxWorkers)
}

func TestNewInsert(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC)
	args, opts, err := newInsert("deliver_email", deliverPayload{RecordID: "rec-1"}, []EnqueueOption{
		InQueue("email"),
		ScheduledAt(at),
		MaxAttempts(1),
		Priority(2),
		Tags("outbox"),
		UniqueFor(time.Minute),
		UniqueKey("rec-1"),
	})
	require.NoError(t, err)

	assert.Equal(t, "deliver_email", args.Task)
	assert.Equal(t, "mailroom:task", args.Kind())
	assert.JSONEq(t, `{"record_id":"rec-1"}`, string(args.Payload))
	assert.Equal(t, "rec-1", args.UniqueKey)
	assert.Equal(t, "email", opts.Queue)
	assert.Equal(t, at, opts.ScheduledAt)
	assert.Equal(t, 1, opts.MaxAttempts)
	assert.Equal(t, 2, opts.Priority)
	assert.Equal(t, []string{"outbox"}, opts.Tags)
	assert.True(t, opts.UniqueOpts.ByArgs)
	assert.Equal(t, time.Minute, opts.UniqueOpts.ByPeriod)

	t.Run("key without period is ignored", func(t *testing.T) {
		t.Parallel()
		args, opts, err := newInsert("deliver_email", nil, []EnqueueOption{UniqueKey("rec-1")})
		require.NoError(t, err)
		assert.Empty(t, args.UniqueKey)
		assert.Nil(t, args.Payload)
		assert.False(t, opts.UniqueOpts.ByArgs)
	})

	t.Run("period without key dedups by task and payload", func(t *testing.T) {
		t.Parallel()
		args, opts, err := newInsert("sweep_outbox", nil, []EnqueueOption{UniqueFor(time.Minute)})
		require.NoError(t, err)
		assert.Empty(t, args.UniqueKey)
		assert.True(t, opts.UniqueOpts.ByArgs)
		assert.Equal(t, time.Minute, opts.UniqueOpts.ByPeriod)
	})

	t.Run("unencodable payload", func(t *testing.T) {
		t.Parallel()
		_, _, err := newInsert("bad", make(chan int), nil)
		require.Error(t, err)
	})
}

func TestParseCron(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		expr string
		next time.Time
	}{
		{"* * * * *", base.Add(time.Minute)},
		{"0 * * * *", time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)},
		{"*/15 * * * *", time.Date(2024, 1, 1, 10, 45, 0, 0, time.UTC)},
		{"0 0 * * *", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			t.Parallel()
			s, err := parseCron(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.next, s.Next(base))
		})
	}

	for _, bad := range []string{"", "* * *", "* * * * * *", "60 * * * *", "* * * * 8", "hourly please"} {
		_, err := parseCron(bad)
		assert.Error(t, err, bad)
	}
}

func TestNewManager_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewManager(nil)
	require.ErrorIs(t, err, ErrPoolRequired)

	_, err = NewEnqueuer(nil)
	require.ErrorIs(t, err, ErrPoolRequired)
}

func TestHealthcheck(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Healthcheck(nil)(context.Background()), ErrHealthcheckFailed)
	require.ErrorIs(t, Healthcheck(&Manager{tasks: registry{}})(context.Background()), ErrHealthcheckFailed)
}

func TestManager_StopBeforeStart(t *testing.T) {
	t.Parallel()

	m := &Manager{tasks: registry{}}
	require.ErrorIs(t, m.Stop(context.Background()), ErrNotStarted)
	assert.False(t, m.Running())
}
