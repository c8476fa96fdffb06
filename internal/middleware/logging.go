// Package middleware provides Echo middleware for logging, metrics, rate
// limiting and response headers.
package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"demo-relay-go/internal/model"
)

// RequestLogger returns an Echo middleware that logs each request with slog.
// Relayed requests also carry the outcome the relay handler recorded.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			attrs := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"status", res.Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", res.Header().Get(echo.HeaderXRequestID),
				"remote_ip", c.RealIP(),
				"bytes_out", res.Size,
			}
			if outcome, ok := c.Get(model.OutcomeContextKey).(string); ok {
				attrs = append(attrs, "relay_outcome", outcome)
			}
			logger.Info("request", attrs...)

			return err
		}
	}
}
