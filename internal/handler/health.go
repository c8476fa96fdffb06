package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"demo-relay-go/internal/config"
	"demo-relay-go/internal/service"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	relay   *service.RelayService
	version Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, relay *service.RelayService, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, relay: relay, version: v}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// statusResponse is the body of /relay/status.
type statusResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	AddressingMode string `json:"addressing_mode"`
	Determinism    string `json:"determinism"`
	PathPrefix     string `json:"path_prefix"`
	Upstream       string `json:"upstream"`
	Proxy          string `json:"proxy,omitempty"`
	TimeoutMS      int    `json:"timeout_ms"`
}

// Status reports how the relay is configured to reach its upstream.
func (h *HealthHandler) Status(c echo.Context) error {
	call := h.relay.NewCall()

	resp := statusResponse{
		Status:         "ok",
		Version:        string(h.version),
		AddressingMode: string(h.cfg.Relay.AddressingMode),
		Determinism:    string(h.cfg.Relay.Determinism),
		PathPrefix:     h.cfg.Relay.PathPrefix,
		Upstream:       call.Target.String(),
		TimeoutMS:      h.cfg.Relay.TimeoutMillis,
	}
	if call.Proxied() {
		resp.Proxy = call.DialAddr()
	}
	return c.JSON(http.StatusOK, resp)
}
