package job

import (
	"log/slog"
)

const defaultMaxWorkers = 100

type config struct {
	tasks      registry
	scheduled  []ScheduledTask
	queues     map[string]int
	maxWorkers int
	logger     *slog.Logger
}

func newConfig() *config {
	return &config{
		tasks:      registry{},
		queues:     map[string]int{},
		maxWorkers: defaultMaxWorkers,
	}
}

// Option configures a Manager.
type Option func(*config)

// WithTask registers task under its Name. A later registration with the
// same name replaces the earlier one.
func WithTask[P any](task Task[P]) Option {
	return func(c *config) {
		c.tasks[task.Name()] = decodeInto(task)
	}
}

// WithScheduledTask registers a periodic task. Its schedule is validated
// when the Manager is created.
func WithScheduledTask(task ScheduledTask) Option {
	return func(c *config) {
		c.scheduled = append(c.scheduled, task)
		c.tasks[task.Name()] = ignorePayload(task)
	}
}

// WithQueue adds a named queue served by the given number of workers.
func WithQueue(name string, workers int) Option {
	return func(c *config) {
		if name != "" && workers > 0 {
			c.queues[name] = workers
		}
	}
}

// WithMaxWorkers sets the worker count of the default queue.
func WithMaxWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}

// WithLogger sets the logger passed to River and used for task failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
