// Package mailroom is the HTTP and worker shell around the transactional
// email pipeline in pkg/dispatch.
//
// The root package is a thin facade over internal: it exposes the App,
// routing, error and job types so cmd/mailroom and the handlers package can
// assemble a server without reaching into internal packages.
//
// # Quick Start
//
//	svc := dispatch.New(ledger, guard, composer, transport,
//	    dispatch.WithScheduler(enqueuer),
//	)
//
//	app := mailroom.New(
//	    mailroom.WithLogger("api", middlewares.RequestIDExtractor()),
//	    mailroom.WithMiddleware(
//	        middlewares.RequestID(),
//	        middlewares.Recover(),
//	    ),
//	    mailroom.WithErrorHandler(handlers.ErrorHandler(log)),
//	    mailroom.WithHandlers(
//	        handlers.NewEmails(svc),
//	        handlers.NewSuppressions(list),
//	    ),
//	    mailroom.WithHealthChecks(),
//	)
//
//	if err := app.Run(":8080", mailroom.Logger(log)); err != nil {
//	    log.Error("server stopped", "error", err)
//	}
//
// # Handlers
//
// Handlers implement [Handler] and declare routes on a [Router]:
//
//	func (h *Emails) Routes(r mailroom.Router) {
//	    r.POST("/v1/emails", h.send)
//	    r.GET("/v1/emails/{id}", h.get)
//	}
//
// Returning an error from a [HandlerFunc] hands it to the configured
// [ErrorHandler]. Use [HTTPError] to control the status and error code.
//
// # Background Jobs
//
// [WithJobs] runs a River-backed job manager in the same process as the
// HTTP server. [WithJobEnqueuer] and [WithJobWorker] split enqueueing and
// processing between an API process and a worker process.
//
// # Health Checks
//
// [WithHealthChecks] mounts /health/live and /health/ready. Readiness checks
// are added with [WithReadinessCheck].
package mailroom
