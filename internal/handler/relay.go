package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/labstack/echo/v4"

	"demo-relay-go/internal/config"
	"demo-relay-go/internal/model"
	"demo-relay-go/internal/service"
)

// RelayHandler answers the demo route by relaying one outbound call.
type RelayHandler struct {
	service *service.RelayService
	cfg     config.RelayConfig
	logger  *slog.Logger
}

// NewRelayHandler creates a RelayHandler.
func NewRelayHandler(svc *service.RelayService, cfg *config.Config, logger *slog.Logger) *RelayHandler {
	return &RelayHandler{
		service: svc,
		cfg:     cfg.Relay,
		logger:  logger.With("component", "relay_handler"),
	}
}

// Handle relays the request and writes exactly one response for its outcome.
// Paths outside the demo prefix are rejected before any outbound call.
func (h *RelayHandler) Handle(c echo.Context) error {
	if !strings.HasPrefix(c.Request().URL.Path, h.cfg.PathPrefix) {
		return h.NotFound(c)
	}

	outcome := h.service.Relay(c.Request().Context())
	c.Set(model.OutcomeContextKey, outcome.Kind.String())
	return h.respond(c, outcome)
}

// NotFound answers every route the relay does not serve.
func (h *RelayHandler) NotFound(c echo.Context) error {
	return c.String(http.StatusNotFound, "Not found")
}

func (h *RelayHandler) respond(c echo.Context, o model.Outcome) error {
	if c.Response().Committed {
		h.logger.Error("response already written; dropping outcome",
			"outcome", o.Kind.String(),
			"path", c.Request().URL.Path,
		)
		return nil
	}

	if h.cfg.Determinism == config.DeterminismFixed {
		return c.String(http.StatusOK, h.cfg.SuccessBody)
	}

	switch o.Kind {
	case model.OutcomeCompleted:
		return c.String(http.StatusOK, fmt.Sprintf("relay response. upstream said: %d bytes\n", o.Result.Bytes))
	case model.OutcomeTimedOut:
		return c.String(http.StatusBadGateway, "dependency error: timeout\n")
	default:
		return c.String(http.StatusBadGateway, "dependency error: "+describeError(o.Err)+"\n")
	}
}

// describeError reduces an outbound error chain to its root cause, e.g.
// "connection refused" rather than the full wrapped request URL.
func describeError(err error) string {
	if err == nil {
		return "unknown error"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Err
	}

	var sysErr *os.SyscallError
	if errors.As(err, &sysErr) {
		return sysErr.Err.Error()
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Err != nil {
		return opErr.Err.Error()
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err.Error()
	}

	return err.Error()
}
