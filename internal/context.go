package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/mailroom/pkg/job"
)

// maxJSONBody caps request bodies decoded by BindJSON.
const maxJSONBody = 1 << 20

var (
	// ErrEmptyBody is returned by BindJSON when there is nothing to decode.
	ErrEmptyBody = errors.New("request body is empty")

	errTrailingData = errors.New("unexpected data after JSON value")
)

// Context is the per-request handle passed to handlers and middleware. It
// is also a context.Context backed by the request context, so handlers
// hand it straight to services.
type Context interface {
	context.Context

	Request() *http.Request
	Response() http.ResponseWriter
	ResponseWriter() *ResponseWriter
	Context() context.Context

	// Param reads a chi URL parameter.
	Param(name string) string
	Query(name string) string
	Header(name string) string
	SetHeader(name, value string)

	// BindJSON decodes a single JSON value from the body into v.
	BindJSON(v any) error

	JSON(code int, v any) error
	String(code int, s string) error
	NoContent(code int) error
	Written() bool

	// Set stores a request-scoped value; it is visible to Get and to
	// logger extractors reading the request context.
	Set(key, value any)
	Get(key any) any

	Logger() *slog.Logger
	LogInfo(msg string, attrs ...any)
	LogWarn(msg string, attrs ...any)
	LogError(msg string, attrs ...any)

	// Enqueue inserts a background job, or returns job.ErrNotConfigured
	// when the app has no enqueuer.
	Enqueue(name string, payload any, opts ...job.EnqueueOption) error
}

type requestContext struct {
	req  *http.Request
	rw   *ResponseWriter
	log  *slog.Logger
	jobs job.Inserter
}

func newContext(w http.ResponseWriter, r *http.Request, app *App) *requestContext {
	rw, ok := w.(*ResponseWriter)
	if !ok {
		rw = NewResponseWriter(w)
	}
	return &requestContext{req: r, rw: rw, log: app.logger, jobs: app.jobEnqueuer}
}

// context.Context, delegated to the current request.

func (c *requestContext) Deadline() (time.Time, bool) { return c.req.Context().Deadline() }
func (c *requestContext) Done() <-chan struct{}       { return c.req.Context().Done() }
func (c *requestContext) Err() error                  { return c.req.Context().Err() }
func (c *requestContext) Value(key any) any           { return c.req.Context().Value(key) }

func (c *requestContext) Request() *http.Request          { return c.req }
func (c *requestContext) Response() http.ResponseWriter   { return c.rw }
func (c *requestContext) ResponseWriter() *ResponseWriter { return c.rw }
func (c *requestContext) Context() context.Context        { return c.req.Context() }
func (c *requestContext) Param(name string) string        { return chi.URLParam(c.req, name) }
func (c *requestContext) Query(name string) string        { return c.req.URL.Query().Get(name) }
func (c *requestContext) Header(name string) string       { return c.req.Header.Get(name) }
func (c *requestContext) SetHeader(name, value string)    { c.rw.Header().Set(name, value) }
func (c *requestContext) Written() bool                   { return c.rw.Written() }
func (c *requestContext) Logger() *slog.Logger            { return c.log }
func (c *requestContext) Get(key any) any                 { return c.req.Context().Value(key) }

func (c *requestContext) Set(key, value any) {
	c.req = c.req.WithContext(context.WithValue(c.req.Context(), key, value))
}

func (c *requestContext) BindJSON(v any) error {
	if c.req.Body == nil || c.req.Body == http.NoBody {
		return ErrEmptyBody
	}

	dec := json.NewDecoder(io.LimitReader(c.req.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return fmt.Errorf("bind json: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("bind json: %w", errTrailingData)
	}
	return nil
}

func (c *requestContext) JSON(code int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode json response: %w", err)
	}
	c.rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	c.rw.WriteHeader(code)
	_, err = c.rw.Write(append(body, '\n'))
	return err
}

func (c *requestContext) String(code int, s string) error {
	c.rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.rw.WriteHeader(code)
	_, err := io.WriteString(c.rw, s)
	return err
}

func (c *requestContext) NoContent(code int) error {
	c.rw.WriteHeader(code)
	return nil
}

func (c *requestContext) LogInfo(msg string, attrs ...any) {
	c.log.InfoContext(c.req.Context(), msg, attrs...)
}

func (c *requestContext) LogWarn(msg string, attrs ...any) {
	c.log.WarnContext(c.req.Context(), msg, attrs...)
}

func (c *requestContext) LogError(msg string, attrs ...any) {
	c.log.ErrorContext(c.req.Context(), msg, attrs...)
}

func (c *requestContext) Enqueue(name string, payload any, opts ...job.EnqueueOption) error {
	if c.jobs == nil {
		return job.ErrNotConfigured
	}
	return c.jobs.Enqueue(c.req.Context(), name, payload, opts...)
}
