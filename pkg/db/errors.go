package db

import "errors"

var (
	ErrNotConfigured     = errors.New("db: connection string is not configured")
	ErrInvalidConfig     = errors.New("db: invalid connection string")
	ErrConnectionFailed  = errors.New("db: failed to connect")
	ErrHealthcheckFailed = errors.New("db: healthcheck failed")
	ErrMigrationFailed   = errors.New("db: migration failed")
)
