// Package service implements the single-call relay logic.
package service

import (
	"context"
	"log/slog"
	"time"

	"demo-relay-go/internal/config"
	"demo-relay-go/internal/metrics"
	"demo-relay-go/internal/model"
)

// Outbound performs one outbound call and drains its body.
type Outbound interface {
	Fetch(ctx context.Context, call model.OutboundCall) (model.FetchResult, error)
}

// RelayService turns one inbound request into exactly one outbound call and
// exactly one Outcome.
type RelayService struct {
	outbound Outbound
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewRelayService creates a RelayService.
// The metrics parameter is optional; pass nil to disable outcome metrics.
func NewRelayService(out Outbound, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *RelayService {
	return &RelayService{
		outbound: out,
		cfg:      cfg,
		logger:   logger.With("component", "relay_service"),
		metrics:  m,
	}
}

// NewCall builds the outbound descriptor from static configuration.
func (s *RelayService) NewCall() model.OutboundCall {
	call := model.NewOutboundCall(
		s.cfg.Upstream.Host,
		s.cfg.Upstream.Port,
		s.cfg.Upstream.Path,
		s.cfg.Relay.Timeout(),
	)
	if s.cfg.Relay.AddressingMode == config.ModeForwardProxy {
		call = call.ThroughProxy(s.cfg.Proxy.Addr())
	}
	return call
}

// Relay issues the outbound call and waits for the first of completion,
// failure or timeout. Whichever signal closes the latch decides the Outcome;
// the others are dropped. On timeout the outbound request is aborted. Relay
// returns only after the outbound call has fully unwound, so no socket
// outlives the inbound request.
func (s *RelayService) Relay(ctx context.Context) model.Outcome {
	call := s.NewCall()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var latch Latch
	settled := make(chan model.Outcome, 1)
	settle := func(o model.Outcome) {
		if latch.Fire() {
			settled <- o
			return
		}
		if s.metrics != nil {
			s.metrics.SuppressedResponses.Inc()
		}
		s.logger.Debug("late completion dropped", "outcome", o.Kind.String())
	}

	// The timer publishes before it cancels, so the cancellation error raised
	// inside Fetch always loses the latch.
	timer := time.AfterFunc(call.Timeout, func() {
		settle(model.TimedOut())
		cancel()
	})
	defer timer.Stop()

	start := time.Now()
	done := make(chan struct{})
	go func() {
		defer close(done)
		res, err := s.outbound.Fetch(ctx, call)
		if err != nil {
			settle(model.Failed(err))
			return
		}
		settle(model.Completed(res))
	}()

	outcome := <-settled
	cancel()
	<-done

	if s.metrics != nil {
		s.metrics.Outcomes.WithLabelValues(outcome.Kind.String()).Inc()
	}
	s.log(call, outcome, time.Since(start))
	return outcome
}

func (s *RelayService) log(call model.OutboundCall, o model.Outcome, elapsed time.Duration) {
	attrs := []any{
		"outcome", o.Kind.String(),
		"dial", call.DialAddr(),
		"target", call.RequestTarget(),
		"duration_ms", elapsed.Milliseconds(),
	}
	switch o.Kind {
	case model.OutcomeCompleted:
		s.logger.Debug("relay completed", append(attrs, "status", o.Result.StatusCode, "bytes", o.Result.Bytes)...)
	case model.OutcomeTimedOut:
		s.logger.Warn("relay timed out", append(attrs, "timeout_ms", call.Timeout.Milliseconds())...)
	default:
		s.logger.Warn("relay failed", append(attrs, "err", o.Err)...)
	}
}
