// Package model defines shared types for the relay.
package model

import (
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// OutboundCall describes the single outbound request made for one inbound request.
type OutboundCall struct {
	Method  string
	Target  *url.URL // real upstream, always absolute
	Via     *url.URL // forward proxy; nil when dialing the upstream directly
	Timeout time.Duration
}

// NewOutboundCall builds a GET descriptor for http://host[:port]path.
// Port 80 is omitted from the URL so the Host header carries the bare host name.
func NewOutboundCall(host string, port int, path string, timeout time.Duration) OutboundCall {
	hostport := host
	if port != 0 && port != 80 {
		hostport = net.JoinHostPort(host, strconv.Itoa(port))
	}
	return OutboundCall{
		Method:  http.MethodGet,
		Target:  &url.URL{Scheme: "http", Host: hostport, Path: path},
		Timeout: timeout,
	}
}

// ThroughProxy returns a copy of the call that is routed via the given proxy address.
func (c OutboundCall) ThroughProxy(proxyAddr string) OutboundCall {
	c.Via = &url.URL{Scheme: "http", Host: proxyAddr}
	return c
}

// Proxied reports whether the call goes through a forward proxy.
func (c OutboundCall) Proxied() bool {
	return c.Via != nil
}

// DialAddr returns the host:port the outbound socket connects to.
func (c OutboundCall) DialAddr() string {
	u := c.Target
	if c.Via != nil {
		u = c.Via
	}
	if u.Port() != "" {
		return u.Host
	}
	return net.JoinHostPort(u.Hostname(), "80")
}

// RequestTarget returns the request-line target: absolute form through a
// proxy, origin form otherwise.
func (c OutboundCall) RequestTarget() string {
	if c.Via != nil {
		return c.Target.String()
	}
	return c.Target.RequestURI()
}

// FetchResult is what a completed outbound call reports after its body is drained.
type FetchResult struct {
	StatusCode int
	Bytes      int64
}

// OutcomeKind tags the terminal state of one relayed request.
type OutcomeKind int

const (
	// OutcomeCompleted means the upstream answered and its body was drained in time.
	OutcomeCompleted OutcomeKind = iota
	// OutcomeTimedOut means the deadline elapsed first and the call was aborted.
	OutcomeTimedOut
	// OutcomeFailed means the connection or exchange failed before the deadline.
	OutcomeFailed
)

// String returns the metric label for the kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCompleted:
		return "completed"
	case OutcomeTimedOut:
		return "timeout"
	case OutcomeFailed:
		return "error"
	default:
		return "unknown"
	}
}

// Outcome is the single terminal result of relaying one inbound request.
type Outcome struct {
	Kind   OutcomeKind
	Result FetchResult // set when Kind == OutcomeCompleted
	Err    error       // set when Kind == OutcomeFailed
}

// Completed returns a completed outcome.
func Completed(r FetchResult) Outcome {
	return Outcome{Kind: OutcomeCompleted, Result: r}
}

// TimedOut returns a timed-out outcome.
func TimedOut() Outcome {
	return Outcome{Kind: OutcomeTimedOut}
}

// Failed returns a failed outcome carrying err.
func Failed(err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Err: err}
}

// OutcomeContextKey is the echo.Context key under which the relay handler
// stores the outcome label for access logging.
const OutcomeContextKey = "relay_outcome"
