package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrymomot/mailroom"
	"github.com/dmitrymomot/mailroom/middlewares"
	"github.com/dmitrymomot/mailroom/pkg/dispatch"
	"github.com/dmitrymomot/mailroom/pkg/outbox"
)

// DefaultSendTimeout bounds an immediate send including every retry.
const DefaultSendTimeout = 15 * time.Minute

// DefaultReadTimeout bounds record lookups.
const DefaultReadTimeout = 10 * time.Second

// Emails serves the send and record endpoints.
type Emails struct {
	svc         *dispatch.Service
	sendTimeout time.Duration
	readTimeout time.Duration
	middlewares []mailroom.Middleware
}

// EmailsOption configures Emails.
type EmailsOption func(*Emails)

// WithSendTimeout bounds how long POST /v1/emails and the deliver endpoint
// may spend delivering.
func WithSendTimeout(d time.Duration) EmailsOption {
	return func(h *Emails) {
		if d > 0 {
			h.sendTimeout = d
		}
	}
}

// WithReadTimeout bounds GET /v1/emails/{id}.
func WithReadTimeout(d time.Duration) EmailsOption {
	return func(h *Emails) {
		if d > 0 {
			h.readTimeout = d
		}
	}
}

// WithEmailsMiddleware applies middleware to every email route.
func WithEmailsMiddleware(mw ...mailroom.Middleware) EmailsOption {
	return func(h *Emails) {
		h.middlewares = append(h.middlewares, mw...)
	}
}

// NewEmails creates the email handlers.
func NewEmails(svc *dispatch.Service, opts ...EmailsOption) *Emails {
	h := &Emails{
		svc:         svc,
		sendTimeout: DefaultSendTimeout,
		readTimeout: DefaultReadTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Emails) Routes(r mailroom.Router) {
	r.Route("/v1/emails", func(r mailroom.Router) {
		r.Use(h.middlewares...)
		r.POST("/", h.send)
		r.GET("/{id}", h.get, middlewares.Timeout(h.readTimeout))
		r.POST("/{id}/deliver", h.deliver)
	})
}

// send handles POST /v1/emails.
func (h *Emails) send(c mailroom.Context) error {
	var req dispatch.Request
	if err := c.BindJSON(&req); err != nil {
		return bindError(err)
	}
	req.CallerID = middlewares.GetCallerID(c)

	ctx, cancel := context.WithTimeout(c.Context(), h.sendTimeout)
	defer cancel()

	rec, err := h.svc.Send(ctx, req)
	if err != nil {
		return recordError(rec, err)
	}

	if rec.Status == outbox.StatusSuppressed {
		c.LogInfo("recipient suppressed", "record_id", rec.ID)
	}
	return c.JSON(http.StatusOK, h.withRequestID(c, recordResponse(rec)))
}

// get handles GET /v1/emails/{id}.
func (h *Emails) get(c mailroom.Context) error {
	rec, err := h.svc.Ledger().Get(middlewares.GetTimeoutContext(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

// deliver handles POST /v1/emails/{id}/deliver.
func (h *Emails) deliver(c mailroom.Context) error {
	ctx, cancel := context.WithTimeout(c.Context(), h.sendTimeout)
	defer cancel()

	rec, err := h.svc.AttemptDelivery(ctx, c.Param("id"))
	if err != nil {
		return recordError(rec, err)
	}
	return c.JSON(http.StatusOK, h.withRequestID(c, recordResponse(rec)))
}

func (h *Emails) withRequestID(c mailroom.Context, resp Response) Response {
	resp.RequestID = middlewares.GetRequestID(c)
	return resp
}

// recordError attaches the failed record to a send failure so callers can
// look it up later.
func recordError(rec *outbox.Record, err error) error {
	if rec == nil || !errors.Is(err, dispatch.ErrSendFailed) {
		return err
	}
	msg := "Failed to send email"
	if rec.Error != "" {
		msg = rec.Error
	}
	return mailroom.ErrInternal(msg,
		mailroom.WithErrorCode(CodeSendFailed),
		mailroom.WithRecord(rec.ID, rec.Status.String()),
		mailroom.WithError(err),
	)
}
