// Package logger builds the slog loggers used across the service.
//
// Records are JSON on stdout by default. Context extractors copy
// request-scoped values such as request_id and caller_id onto every record
// logged with a request context. With a Sentry DSN, warnings are also
// shipped as Sentry logs and errors open Sentry issues.
package logger
