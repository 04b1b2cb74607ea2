package job

import "errors"

var (
	ErrNotConfigured  = errors.New("job: not configured")
	ErrPoolRequired   = errors.New("job: database pool is required")
	ErrUnknownTask    = errors.New("job: unknown task")
	ErrInvalidPayload = errors.New("job: invalid payload")
	ErrInvalidCron    = errors.New("job: invalid cron schedule")

	ErrAlreadyStarted    = errors.New("job: manager already started")
	ErrNotStarted        = errors.New("job: manager not started")
	ErrHealthcheckFailed = errors.New("job: healthcheck failed")
)
