// Package client provides the outbound HTTP client for the relay.
package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"demo-relay-go/internal/metrics"
	"demo-relay-go/internal/model"
)

const userAgent = "demo-relay/1.0"

// RelayClient issues exactly one outbound request per Fetch. Every call gets
// its own transport, so no socket is ever pooled, kept alive, or shared
// between two inbound requests.
type RelayClient struct {
	dialer  *net.Dialer
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewRelayClient creates a RelayClient.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewRelayClient(logger *slog.Logger, m *metrics.Metrics) *RelayClient {
	return &RelayClient{
		// TCP keep-alive probes are pointless on a connection used for one request.
		dialer:  &net.Dialer{KeepAlive: -1},
		logger:  logger.With("component", "relay_client"),
		metrics: m,
	}
}

// newTransport builds a single-use transport for call. The environment proxy
// settings are never consulted: the descriptor alone decides direct or proxied.
func (c *RelayClient) newTransport(call model.OutboundCall) *http.Transport {
	t := &http.Transport{
		DialContext:       c.dialer.DialContext,
		DisableKeepAlives: true,
		MaxConnsPerHost:   1,
	}
	if call.Via != nil {
		t.Proxy = http.ProxyURL(call.Via)
	}
	return t
}

// Fetch performs call and drains the response body. The body content is
// discarded; only its length and the status code are reported. The context
// bounds the whole exchange: canceling it aborts the connection.
func (c *RelayClient) Fetch(ctx context.Context, call model.OutboundCall) (model.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, call.Method, call.Target.String(), http.NoBody)
	if err != nil {
		return model.FetchResult{}, fmt.Errorf("build outbound request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	mode := "direct"
	if call.Proxied() {
		mode = "forward-proxy"
	}

	c.logger.Debug("outbound request",
		"mode", mode,
		"dial", call.DialAddr(),
		"target", call.RequestTarget(),
	)

	transport := c.newTransport(call)
	defer transport.CloseIdleConnections()

	start := time.Now()
	resp, err := transport.RoundTrip(req)
	if err != nil {
		c.observe(mode, start, "")
		return model.FetchResult{}, fmt.Errorf("outbound request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	n, err := io.Copy(io.Discard, resp.Body)
	c.observe(mode, start, strconv.Itoa(resp.StatusCode))
	if err != nil {
		return model.FetchResult{}, fmt.Errorf("drain outbound body: %w", err)
	}

	return model.FetchResult{StatusCode: resp.StatusCode, Bytes: n}, nil
}

func (c *RelayClient) observe(mode string, start time.Time, status string) {
	if c.metrics == nil {
		return
	}
	c.metrics.UpstreamDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	if status != "" {
		c.metrics.UpstreamResponses.WithLabelValues(mode, status).Inc()
	}
}
