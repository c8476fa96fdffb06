package model

import (
	"errors"
	"testing"
	"time"
)

func TestOutboundCall_Forms(t *testing.T) {
	direct := NewOutboundCall("worldtimeapi.org", 80, "/api/timezone/Etc/UTC", 2*time.Second)
	proxied := direct.ThroughProxy("localhost:9000")

	tests := []struct {
		name       string
		call       OutboundCall
		wantDial   string
		wantTarget string
		wantProxy  bool
	}{
		{"direct", direct, "worldtimeapi.org:80", "/api/timezone/Etc/UTC", false},
		{"forward proxy", proxied, "localhost:9000", "http://worldtimeapi.org/api/timezone/Etc/UTC", true},
		{
			"direct custom port",
			NewOutboundCall("127.0.0.1", 8080, "/time", time.Second),
			"127.0.0.1:8080", "/time", false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.call.DialAddr(); got != tt.wantDial {
				t.Errorf("DialAddr() = %q, want %q", got, tt.wantDial)
			}
			if got := tt.call.RequestTarget(); got != tt.wantTarget {
				t.Errorf("RequestTarget() = %q, want %q", got, tt.wantTarget)
			}
			if got := tt.call.Proxied(); got != tt.wantProxy {
				t.Errorf("Proxied() = %v, want %v", got, tt.wantProxy)
			}
			if tt.call.Method != "GET" {
				t.Errorf("Method = %q, want GET", tt.call.Method)
			}
		})
	}
}

func TestOutboundCall_ThroughProxyLeavesOriginal(t *testing.T) {
	direct := NewOutboundCall("worldtimeapi.org", 80, "/x", time.Second)
	_ = direct.ThroughProxy("proxy:3128")

	if direct.Proxied() {
		t.Error("ThroughProxy mutated the receiver")
	}
	if direct.Target.Host != "worldtimeapi.org" {
		t.Errorf("Target.Host = %q, want %q", direct.Target.Host, "worldtimeapi.org")
	}
}

func TestOutcomeConstructors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		outcome   Outcome
		wantKind  OutcomeKind
		wantLabel string
	}{
		{"completed", Completed(FetchResult{StatusCode: 200, Bytes: 12}), OutcomeCompleted, "completed"},
		{"timed out", TimedOut(), OutcomeTimedOut, "timeout"},
		{"failed", Failed(boom), OutcomeFailed, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.outcome.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", tt.outcome.Kind, tt.wantKind)
			}
			if got := tt.outcome.Kind.String(); got != tt.wantLabel {
				t.Errorf("Kind.String() = %q, want %q", got, tt.wantLabel)
			}
		})
	}

	if got := Failed(boom).Err; !errors.Is(got, boom) {
		t.Errorf("Failed().Err = %v, want %v", got, boom)
	}
	if got := Completed(FetchResult{Bytes: 12}).Result.Bytes; got != 12 {
		t.Errorf("Completed().Result.Bytes = %d, want 12", got)
	}
}
