package loggingmw

import (
	"log/slog"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/agrokasa/advert_market/internal/logging"
)

// RequestLogger puts a per-request logger into the request context and writes
// one "http_request" line when the handler returns. Health probes log at debug.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()

			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = r.Header.Get(echo.HeaderXRequestID)
			}

			l := base.With("method", r.Method, "route", c.Path(), "remote_ip", c.RealIP())
			if rid != "" {
				l = l.With("request_id", rid)
			}
			c.SetRequest(r.WithContext(logging.IntoContext(r.Context(), l)))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			// the guard may have tagged the logger with the actor
			l = logging.FromContext(c.Request().Context())
			status := c.Response().Status
			attrs := []any{
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"bytes_in", r.ContentLength,
				"bytes_out", c.Response().Size,
			}

			switch {
			case status >= 500:
				l.Error("http_request", append(attrs, "error", err)...)
			case status >= 400:
				l.Warn("http_request", attrs...)
			case strings.HasPrefix(c.Path(), "/health"):
				l.Debug("http_request", attrs...)
			default:
				l.Info("http_request", attrs...)
			}
			return nil
		}
	}
}
