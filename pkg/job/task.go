package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Task handles one kind of job. P is the JSON payload the job was enqueued
// with; it is inferred from Handle when the task is passed to WithTask.
type Task[P any] interface {
	Name() string
	Handle(ctx context.Context, payload P) error
}

// ScheduledTask runs on a five-field cron schedule without a payload.
type ScheduledTask interface {
	Name() string
	Schedule() string
	Handle(ctx context.Context) error
}

// handlerFunc is a task with its payload type erased.
type handlerFunc func(ctx context.Context, raw json.RawMessage) error

func decodeInto[P any](task Task[P]) handlerFunc {
	return func(ctx context.Context, raw json.RawMessage) error {
		var payload P
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &payload); err != nil {
				return errors.Join(ErrInvalidPayload, err)
			}
		}
		return task.Handle(ctx, payload)
	}
}

func ignorePayload(task ScheduledTask) handlerFunc {
	return func(ctx context.Context, _ json.RawMessage) error {
		return task.Handle(ctx)
	}
}

// registry is filled while options are applied and read-only afterwards.
type registry map[string]handlerFunc

func (r registry) lookup(name string) (handlerFunc, error) {
	h, ok := r[name]
	if !ok || h == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, name)
	}
	return h, nil
}

func (r registry) names() []string {
	return slices.Sorted(maps.Keys(r))
}
