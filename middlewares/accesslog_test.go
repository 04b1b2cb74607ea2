package middlewares_test

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailroom/internal"
	"github.com/dmitrymomot/mailroom/middlewares"
)

func TestAccessLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		path      string
		handler   internal.HandlerFunc
		wantLevel string
		wantCode  string
	}{
		{
			name:      "ok",
			path:      "/v1/emails/abc",
			handler:   func(c internal.Context) error { return c.NoContent(http.StatusOK) },
			wantLevel: "INFO",
			wantCode:  "status=200",
		},
		{
			name:      "http error",
			path:      "/v1/emails/missing",
			handler:   func(internal.Context) error { return internal.ErrNotFound("Email not found") },
			wantLevel: "WARN",
			wantCode:  "status=404",
		},
		{
			name:      "unexpected error",
			path:      "/v1/emails",
			handler:   func(internal.Context) error { return errors.New("db down") },
			wantLevel: "ERROR",
			wantCode:  "status=500",
		},
		{
			name:    "skipped path",
			path:    "/health/live",
			handler: func(c internal.Context) error { return c.NoContent(http.StatusOK) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			c := newTestContext(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))
			c.logger = slog.New(slog.NewTextHandler(&buf, nil))

			_ = middlewares.AccessLog("/health/live")(tt.handler)(c)

			if tt.wantLevel == "" {
				assert.Empty(t, buf.String())
				return
			}
			line := buf.String()
			require.Contains(t, line, "level="+tt.wantLevel)
			assert.Contains(t, line, tt.wantCode)
			assert.Contains(t, line, "path="+tt.path)
		})
	}
}
