package handler

import (
	"github.com/labstack/echo/v4"

	"demo-relay-go/internal/config"
)

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, relay *RelayHandler, health *HealthHandler) {
	e.GET("/healthz", health.Healthz)
	e.GET("/relay/status", health.Status)

	// The prefix is matched as a plain string prefix: /api/demo, /api/demo/x
	// and /api/demo-x all reach the relay.
	prefix := cfg.Relay.PathPrefix
	e.GET(prefix, relay.Handle)
	e.GET(prefix+"*", relay.Handle)

	e.RouteNotFound("/*", relay.NotFound)
}
