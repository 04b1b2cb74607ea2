package redis

import "errors"

var (
	ErrNotConfigured     = errors.New("redis: connection URL is not configured")
	ErrInvalidURL        = errors.New("redis: invalid connection URL")
	ErrConnectionFailed  = errors.New("redis: failed to connect")
	ErrHealthcheckFailed = errors.New("redis: healthcheck failed")
)
