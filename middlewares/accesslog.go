package middlewares

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/dmitrymomot/mailroom/internal"
)

// AccessLog logs one record per request with its status, size and
// duration. Paths listed in skip, such as health probes, are not logged.
// 5xx responses log at error level and 4xx at warn.
func AccessLog(skip ...string) internal.Middleware {
	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			r := c.Request()
			if slices.Contains(skip, r.URL.Path) {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			status, size := responseStatus(c, err)
			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			c.Logger().LogAttrs(c.Context(), level, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int64("bytes", size),
				slog.Duration("took", time.Since(start)),
			)
			return err
		}
	}
}

// The error handler runs after the chain, so an unwritten response with an
// error is reported with the status that error will produce.
func responseStatus(c internal.Context, err error) (int, int64) {
	rw := c.ResponseWriter()
	if rw != nil && rw.Written() {
		return rw.Status(), rw.Size()
	}
	if err == nil {
		return http.StatusOK, 0
	}
	if he := internal.AsHTTPError(err); he != nil {
		return he.StatusCode(), 0
	}
	if IsTimeoutError(err) {
		return http.StatusGatewayTimeout, 0
	}
	return http.StatusInternalServerError, 0
}
