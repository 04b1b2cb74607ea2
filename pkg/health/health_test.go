package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailroom/pkg/health"
)

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("no checks is healthy", func(t *testing.T) {
		t.Parallel()
		report := health.Run(context.Background(), nil)
		assert.True(t, report.Healthy())
		assert.Empty(t, report.Checks)
	})

	t.Run("one failure marks the report unhealthy", func(t *testing.T) {
		t.Parallel()
		report := health.Run(context.Background(), health.Checks{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		})

		assert.False(t, report.Healthy())
		require.Len(t, report.Checks, 2)
		assert.Equal(t, health.StatusHealthy, report.Checks["postgres"].Status)
		assert.Equal(t, health.StatusUnhealthy, report.Checks["redis"].Status)
		assert.Equal(t, "connection refused", report.Checks["redis"].Error)
	})

	t.Run("slow check times out", func(t *testing.T) {
		t.Parallel()
		report := health.Run(context.Background(), health.Checks{
			"jobs": func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		}, health.WithTimeout(20*time.Millisecond))

		assert.False(t, report.Healthy())
		assert.Contains(t, report.Checks["jobs"].Error, health.ErrCheckTimeout.Error())
	})
}

func TestHandlers(t *testing.T) {
	t.Parallel()

	failing := health.Checks{"redis": func(context.Context) error { return errors.New("down") }}

	tests := []struct {
		name     string
		handler  http.HandlerFunc
		target   string
		accept   string
		wantCode int
		wantBody string
		wantJSON string
	}{
		{name: "liveness text", handler: health.LivenessHandler(), target: "/", wantCode: http.StatusOK, wantBody: "OK"},
		{name: "liveness json", handler: health.LivenessHandler(), target: "/?format=json", wantCode: http.StatusOK, wantJSON: health.StatusHealthy},
		{name: "readiness ok", handler: health.ReadinessHandler(nil), target: "/", wantCode: http.StatusOK, wantBody: "OK"},
		{name: "readiness failing text", handler: health.ReadinessHandler(failing), target: "/", wantCode: http.StatusServiceUnavailable, wantBody: "Service Unavailable"},
		{name: "readiness failing json", handler: health.ReadinessHandler(failing), target: "/", accept: "application/json", wantCode: http.StatusServiceUnavailable, wantJSON: health.StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			rec := httptest.NewRecorder()
			tt.handler(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
			if tt.wantJSON == "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
				return
			}

			var report health.Report
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
			assert.Equal(t, tt.wantJSON, report.Status)
		})
	}
}
