package middlewares_test

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/mailroom/internal"
	"github.com/dmitrymomot/mailroom/pkg/job"
	"github.com/dmitrymomot/mailroom/pkg/logger"
)

// testContext is a minimal internal.Context for driving middleware directly.
type testContext struct {
	response http.ResponseWriter
	request  *http.Request
	values   map[any]any
	logger   *slog.Logger
	written  bool
}

func newTestContext(w http.ResponseWriter, r *http.Request) *testContext {
	return &testContext{
		response: w,
		request:  r,
		values:   make(map[any]any),
		logger:   logger.NewNope(),
	}
}

func (c *testContext) Request() *http.Request        { return c.request }
func (c *testContext) Response() http.ResponseWriter { return c.response }
func (c *testContext) Context() context.Context      { return c.request.Context() }
func (c *testContext) Param(string) string           { return "" }
func (c *testContext) Query(name string) string      { return c.request.URL.Query().Get(name) }
func (c *testContext) Header(name string) string     { return c.request.Header.Get(name) }
func (c *testContext) SetHeader(name, value string)  { c.response.Header().Set(name, value) }

func (c *testContext) JSON(code int, _ any) error {
	c.written = true
	c.response.WriteHeader(code)
	return nil
}

func (c *testContext) String(code int, s string) error {
	c.written = true
	c.response.WriteHeader(code)
	_, err := c.response.Write([]byte(s))
	return err
}

func (c *testContext) NoContent(code int) error {
	c.written = true
	c.response.WriteHeader(code)
	return nil
}

func (c *testContext) BindJSON(any) error                       { return nil }
func (c *testContext) Written() bool                            { return c.written }
func (c *testContext) Logger() *slog.Logger                     { return c.logger }
func (c *testContext) LogInfo(msg string, attrs ...any)         { c.logger.Info(msg, attrs...) }
func (c *testContext) LogWarn(msg string, attrs ...any)         { c.logger.Warn(msg, attrs...) }
func (c *testContext) LogError(msg string, attrs ...any)        { c.logger.Error(msg, attrs...) }
func (c *testContext) ResponseWriter() *internal.ResponseWriter { return nil }

func (c *testContext) Enqueue(string, any, ...job.EnqueueOption) error {
	return job.ErrNotConfigured
}

func (c *testContext) Set(key, value any) {
	c.values[key] = value
	// Mirror into the request context so logger extractors see it.
	ctx := context.WithValue(c.request.Context(), key, value)
	c.request = c.request.WithContext(ctx)
}

func (c *testContext) Get(key any) any { return c.values[key] }

func (c *testContext) Deadline() (time.Time, bool) { return c.request.Context().Deadline() }
func (c *testContext) Done() <-chan struct{}       { return c.request.Context().Done() }
func (c *testContext) Err() error                  { return c.request.Context().Err() }
func (c *testContext) Value(key any) any           { return c.request.Context().Value(key) }
