// Package internal holds the HTTP application core behind the mailroom
// facade: the chi-backed App, the Router adapter, the request Context,
// HTTPError, token extractors and the server runtime.
//
// Import "github.com/dmitrymomot/mailroom" instead; it re-exports the public
// API.
//
// # Context as context.Context
//
// Context embeds context.Context, so handlers pass it straight to services:
//
//	func (h *Emails) get(c mailroom.Context) error {
//	    rec, err := h.svc.Ledger().Get(c, c.Param("id"))
//	    if err != nil {
//	        return err
//	    }
//	    return c.JSON(http.StatusOK, rec)
//	}
//
// # Handlers
//
// Handlers implement Handler and declare their routes; dependencies come in
// through constructors:
//
//	func (h *Emails) Routes(r mailroom.Router) {
//	    r.Route("/v1/emails", func(r mailroom.Router) {
//	        r.POST("/", h.send)
//	        r.GET("/{id}", h.get)
//	    })
//	}
//
// # Errors
//
// Handlers and middleware return errors. The App passes them to the
// ErrorHandler configured with WithErrorHandler unless the response has
// already been written. HTTPError carries the status code, a caller-facing
// message, a machine-readable code and optionally the related outbox record.
//
// # Lifecycle
//
// App.Run listens, runs startup hooks (job workers first), serves until
// SIGINT or SIGTERM, then shuts the server down and runs shutdown hooks
// within the shutdown timeout.
package internal
