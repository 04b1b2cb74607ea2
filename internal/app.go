package internal

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/mailroom/pkg/health"
	"github.com/dmitrymomot/mailroom/pkg/job"
	"github.com/dmitrymomot/mailroom/pkg/logger"
)

// App is the HTTP service: a chi router, the middleware chain, optional
// job workers and health probes. It is configured once, in New.
type App struct {
	router                  chi.Router
	errorHandler            ErrorHandler
	notFoundHandler         HandlerFunc
	methodNotAllowedHandler HandlerFunc
	healthConfig            *healthConfig
	logger                  *slog.Logger
	jobEnqueuer             job.Inserter
	jobWorker               *job.Manager
	middlewares             []Middleware
	handlers                []Handler
}

// New applies opts and mounts every route.
//
//	app := mailroom.New(
//	    mailroom.WithMiddleware(middlewares.RequestID(), middlewares.Recover()),
//	    mailroom.WithHandlers(handlers.NewEmails(svc)),
//	)
func New(opts ...Option) *App {
	a := &App{
		router: chi.NewRouter(),
		logger: logger.NewNope(),
	}

	for _, opt := range opts {
		opt(a)
	}

	a.setupRoutes()
	return a
}

// Router exposes the chi router, mostly for driving the app with httptest.
func (a *App) Router() chi.Router {
	return a.router
}

// JobWorker returns the job manager if this process runs workers.
func (a *App) JobWorker() *job.Manager {
	return a.jobWorker
}

// Run serves on addr until shutdown. Job workers owned by the app start
// before the first request and stop after the server drains.
func (a *App) Run(addr string, opts ...RunOption) error {
	cfg := newRunConfig(append(opts, Address(addr)))

	if a.jobWorker != nil {
		cfg.startupHooks = append([]func(context.Context) error{a.jobWorker.StartFunc()}, cfg.startupHooks...)
		cfg.shutdownHooks = append([]func(context.Context) error{a.jobWorker.Shutdown()}, cfg.shutdownHooks...)
	}
	return serve(a.router, cfg)
}

func (a *App) setupRoutes() {
	if a.notFoundHandler != nil {
		a.router.NotFound(a.wrapHandler(a.notFoundHandler))
	}
	if a.methodNotAllowedHandler != nil {
		a.router.MethodNotAllowed(a.wrapHandler(a.methodNotAllowedHandler))
	}

	for _, mw := range a.middlewares {
		a.router.Use(a.chiMiddleware(mw))
	}

	if a.healthConfig != nil {
		a.router.Get(a.healthConfig.livenessPath, health.LivenessHandler())
		a.router.Get(a.healthConfig.readinessPath,
			health.ReadinessHandler(a.healthConfig.checks, health.WithLogger(a.logger)))
	}

	r := &routes{mux: a.router, app: a}
	for _, h := range a.handlers {
		h.Routes(r)
	}
}

// wrapHandler adapts h to net/http, sending its error to handleError.
func (a *App) wrapHandler(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := newContext(w, r, a)
		if err := h(c); err != nil {
			a.handleError(c, err)
		}
	}
}

func (a *App) handleError(c Context, err error) {
	if c.Written() {
		return
	}
	if a.errorHandler != nil {
		if herr := a.errorHandler(c, err); herr != nil {
			a.logger.ErrorContext(c.Context(), "error handler failed", slog.Any("error", herr))
		}
		return
	}
	if httpErr := AsHTTPError(err); httpErr != nil {
		http.Error(c.Response(), httpErr.Message, httpErr.StatusCode())
		return
	}
	http.Error(c.Response(), "Internal Server Error", http.StatusInternalServerError)
}
