package mailroom

import (
	"github.com/dmitrymomot/mailroom/internal"
	"github.com/dmitrymomot/mailroom/pkg/job"
	"github.com/dmitrymomot/mailroom/pkg/logger"
)

type (
	App          = internal.App
	Router       = internal.Router
	Context      = internal.Context
	Handler      = internal.Handler
	HandlerFunc  = internal.HandlerFunc
	Middleware   = internal.Middleware
	ErrorHandler = internal.ErrorHandler

	Option       = internal.Option
	RunOption    = internal.RunOption
	HealthOption = internal.HealthOption

	ResponseWriter  = internal.ResponseWriter
	HTTPError       = internal.HTTPError
	HTTPErrorOption = internal.HTTPErrorOption
	Extractor       = internal.Extractor

	// ContextExtractor adds a request-scoped attribute to every log line.
	ContextExtractor = logger.ContextExtractor

	JobOption     = job.Option
	EnqueueOption = job.EnqueueOption
	JobManager    = job.Manager
)

// App construction. See the package example for a full server.
var (
	New                         = internal.New
	WithMiddleware              = internal.WithMiddleware
	WithHandlers                = internal.WithHandlers
	WithErrorHandler            = internal.WithErrorHandler
	WithNotFoundHandler         = internal.WithNotFoundHandler
	WithMethodNotAllowedHandler = internal.WithMethodNotAllowedHandler
	WithLogger                  = internal.WithLogger
	WithCustomLogger            = internal.WithCustomLogger
)

// Probes mounted by WithHealthChecks.
var (
	WithHealthChecks   = internal.WithHealthChecks
	WithLivenessPath   = internal.WithLivenessPath
	WithReadinessPath  = internal.WithReadinessPath
	WithReadinessCheck = internal.WithReadinessCheck
)

// Arguments to App.Run.
var (
	Address         = internal.Address
	Logger          = internal.Logger
	ShutdownTimeout = internal.ShutdownTimeout
	StartupHook     = internal.StartupHook
	ShutdownHook    = internal.ShutdownHook
	WithContext     = internal.WithContext
)

// HTTP errors.
var (
	NewHTTPError          = internal.NewHTTPError
	ErrBadRequest         = internal.ErrBadRequest
	ErrUnauthorized       = internal.ErrUnauthorized
	ErrNotFound           = internal.ErrNotFound
	ErrConflict           = internal.ErrConflict
	ErrTooManyRequests    = internal.ErrTooManyRequests
	ErrGatewayTimeout     = internal.ErrGatewayTimeout
	ErrInternal           = internal.ErrInternal
	ErrServiceUnavailable = internal.ErrServiceUnavailable
	WithErrorCode         = internal.WithErrorCode
	WithRecord            = internal.WithRecord
	WithError             = internal.WithError
	AsHTTPError           = internal.AsHTTPError
	IsHTTPError           = internal.IsHTTPError
	ErrEmptyBody          = internal.ErrEmptyBody
)

// Token extractors.
var (
	NewExtractor    = internal.NewExtractor
	FromHeader      = internal.FromHeader
	FromQuery       = internal.FromQuery
	FromParam       = internal.FromParam
	FromBearerToken = internal.FromBearerToken
)

// Background jobs. WithJobs runs workers in the API process; the other two
// split enqueueing and processing across processes.
var (
	WithJobs          = internal.WithJobs
	WithJobEnqueuer   = internal.WithJobEnqueuer
	WithJobWorker     = internal.WithJobWorker
	WithScheduledTask = job.WithScheduledTask
	WithJobQueue      = job.WithQueue
	WithJobLogger     = job.WithLogger
	JobHealthcheck    = job.Healthcheck

	ErrJobNotConfigured  = job.ErrNotConfigured
	ErrJobUnknownTask    = job.ErrUnknownTask
	ErrJobInvalidPayload = job.ErrInvalidPayload
)

// ContextValue returns the request value stored under key, or the zero T.
func ContextValue[T any](c Context, key any) T {
	return internal.ContextValue[T](c, key)
}

// WithTask registers a payload-typed task with the job manager.
func WithTask[P any](task job.Task[P]) JobOption {
	return job.WithTask(task)
}
