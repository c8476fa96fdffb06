package middleware

import (
	"github.com/labstack/echo/v4"
)

// hopByHopHeaders describe a single connection and are dropped from inbound requests.
var hopByHopHeaders = []string{
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"TE",
	"Trailer",
	"Upgrade",
}

// ResponseHeaders returns an Echo middleware that strips hop-by-hop headers
// from the inbound request and marks every response as non-cacheable, so a
// harness replaying the same request always reaches the relay.
func ResponseHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, h := range hopByHopHeaders {
				c.Request().Header.Del(h)
			}

			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Cache-Control", "no-store")

			return next(c)
		}
	}
}
