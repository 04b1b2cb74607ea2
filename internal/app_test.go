package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailroom/pkg/job"
)

type routeFunc func(r Router)

func (fn routeFunc) Routes(r Router) { fn(r) }

type ctxKey struct{}

func do(t *testing.T, app *App, method, target, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, req)
	return rec
}

func jsonErrorHandler(c Context, err error) error {
	if he := AsHTTPError(err); he != nil {
		return c.JSON(he.Code, map[string]string{"error": he.Message, "error_code": he.ErrorCode})
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func TestApp_Routing(t *testing.T) {
	t.Parallel()

	app := New(
		WithErrorHandler(jsonErrorHandler),
		WithMiddleware(func(next HandlerFunc) HandlerFunc {
			return func(c Context) error {
				c.Set(ctxKey{}, "from-middleware")
				return next(c)
			}
		}),
		WithHandlers(routeFunc(func(r Router) {
			r.Route("/v1", func(r Router) {
				r.GET("/items/{id}", func(c Context) error {
					return c.JSON(http.StatusOK, map[string]string{
						"id":    c.Param("id"),
						"value": ContextValue[string](c, ctxKey{}),
						"q":     c.Query("q"),
					})
				})
				r.POST("/fail", func(c Context) error {
					return ErrTooManyRequests("slow down", WithErrorCode("rate_limited"))
				})
				r.DELETE("/boom", func(c Context) error {
					return errors.New("boom")
				})
			})
		})),
	)

	t.Run("params, query and middleware values", func(t *testing.T) {
		t.Parallel()
		rec := do(t, app, http.MethodGet, "/v1/items/42?q=x", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"id":"42","value":"from-middleware","q":"x"}`, rec.Body.String())
	})

	t.Run("http errors reach the error handler", func(t *testing.T) {
		t.Parallel()
		rec := do(t, app, http.MethodPost, "/v1/fail", "")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.JSONEq(t, `{"error":"slow down","error_code":"rate_limited"}`, rec.Body.String())
	})

	t.Run("plain errors reach the error handler", func(t *testing.T) {
		t.Parallel()
		rec := do(t, app, http.MethodDelete, "/v1/boom", "")
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "boom")
	})
}

func TestApp_DefaultErrorHandling(t *testing.T) {
	t.Parallel()

	app := New(
		WithNotFoundHandler(func(c Context) error {
			return c.String(http.StatusNotFound, "nothing here")
		}),
		WithHandlers(routeFunc(func(r Router) {
			r.GET("/written", func(c Context) error {
				_ = c.NoContent(http.StatusAccepted)
				return errors.New("ignored after write")
			})
			r.GET("/err", func(c Context) error {
				return errors.New("hidden")
			})
		})),
	)

	rec := do(t, app, http.MethodGet, "/written", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = do(t, app, http.MethodGet, "/err", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hidden")

	rec = do(t, app, http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "nothing here", rec.Body.String())
}

func TestApp_RouteMiddlewareOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(c Context) error {
				order = append(order, name)
				return next(c)
			}
		}
	}

	app := New(WithHandlers(routeFunc(func(r Router) {
		r.GET("/", func(c Context) error {
			order = append(order, "handler")
			return c.NoContent(http.StatusOK)
		}, mark("first"), mark("second"))
	})))

	do(t, app, http.MethodGet, "/", "")
	assert.Equal(t, []string{"first", "second", "handler"}, order)
}

func TestApp_HealthChecks(t *testing.T) {
	t.Parallel()

	app := New(WithHealthChecks(
		WithReadinessCheck("ok", func(context.Context) error { return nil }),
		WithReadinessCheck("db", func(context.Context) error { return errors.New("down") }),
	))

	rec := do(t, app, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, app, http.MethodGet, "/health/ready", "", "Accept", "application/json")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "down")
}

func TestContext_BindJSON(t *testing.T) {
	t.Parallel()

	type body struct {
		Name string `json:"name"`
	}

	var (
		got     body
		bindErr error
	)
	app := New(WithHandlers(routeFunc(func(r Router) {
		r.POST("/", func(c Context) error {
			got = body{}
			bindErr = c.BindJSON(&got)
			return c.NoContent(http.StatusOK)
		})
	})))

	do(t, app, http.MethodPost, "/", `{"name":"jane"}`)
	require.NoError(t, bindErr)
	assert.Equal(t, "jane", got.Name)

	do(t, app, http.MethodPost, "/", "")
	require.ErrorIs(t, bindErr, ErrEmptyBody)

	do(t, app, http.MethodPost, "/", `{"name":`)
	require.Error(t, bindErr)
	assert.NotErrorIs(t, bindErr, ErrEmptyBody)
}

func TestContext_EnqueueWithoutJobs(t *testing.T) {
	t.Parallel()

	var err error
	app := New(WithHandlers(routeFunc(func(r Router) {
		r.POST("/", func(c Context) error {
			err = c.Enqueue("deliver_email", map[string]string{"record_id": "1"})
			return c.NoContent(http.StatusOK)
		})
	})))

	do(t, app, http.MethodPost, "/", "")
	require.ErrorIs(t, err, job.ErrNotConfigured)
}

func TestHTTPError(t *testing.T) {
	t.Parallel()

	cause := errors.New("ledger down")
	he := ErrInternal("Internal error", WithError(cause), WithRecord("rec-1", "failed"), WithErrorCode("send_failed"))
	wrapped := fmt.Errorf("handler: %w", he)

	assert.True(t, IsHTTPError(wrapped))
	got := AsHTTPError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, http.StatusInternalServerError, got.StatusCode())
	assert.Equal(t, "rec-1", got.ID)
	assert.Equal(t, "failed", got.Status)
	assert.ErrorIs(t, wrapped, cause)

	assert.Nil(t, AsHTTPError(errors.New("plain")))
	assert.False(t, IsHTTPError(nil))
}

func TestExtractor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		query  string
		want   string
		ok     bool
	}{
		{"bearer header", "Bearer abc", "", "abc", true},
		{"lowercase scheme", "bearer abc", "", "abc", true},
		{"falls back to query", "", "qtok", "qtok", true},
		{"basic auth ignored", "Basic Zm9v", "", "", false},
		{"empty bearer", "Bearer ", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			target := "/"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			c := newContext(httptest.NewRecorder(), req, New())

			got, ok := NewExtractor(FromBearerToken(), FromQuery("token")).Extract(c)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResponseWriter(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	rw := NewResponseWriter(w)

	n, err := rw.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	rw.WriteHeader(http.StatusTeapot)

	assert.True(t, rw.Written())
	assert.Equal(t, http.StatusOK, rw.Status())
	assert.Equal(t, int64(5), rw.Size())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Same(t, w, rw.Unwrap())
}
