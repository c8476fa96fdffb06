package metrics

import (
	"testing"
)

func TestNew_GathersMetrics(t *testing.T) {
	m := New()

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	// Go runtime and process collectors are always present.
	if len(families) == 0 {
		t.Fatal("expected non-empty metric families from Gather()")
	}

	// Vec collectors only show up once a child exists.
	m.RequestsTotal.WithLabelValues("GET", "200", "/api/demo").Inc()
	m.Outcomes.WithLabelValues("timeout").Inc()
	m.SuppressedResponses.Inc()

	families, err = m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	want := map[string]bool{
		"demo_relay_http_requests_total":        false,
		"demo_relay_outcomes_total":             false,
		"demo_relay_responses_suppressed_total": false,
	}
	for _, f := range families {
		if _, ok := want[f.GetName()]; ok {
			want[f.GetName()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected %s in gathered metrics", name)
		}
	}
}

func TestNormalizeMethod(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{"GET", "GET"},
		{"POST", "POST"},
		{"HEAD", "HEAD"},
		{"OPTIONS", "OPTIONS"},
		{"FOOBAR", "other"},
		{"get", "other"},
		{"", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			got := NormalizeMethod(tt.method)
			if got != tt.want {
				t.Errorf("NormalizeMethod(%q) = %q, want %q", tt.method, got, tt.want)
			}
		})
	}
}

func TestPathLabeler_Label(t *testing.T) {
	l := NewPathLabeler("/api/demo", "/healthz", "/relay/status", "/metrics")

	tests := []struct {
		path string
		want string
	}{
		{"/api/demo", "/api/demo"},
		{"/api/demo/anything", "/api/demo"},
		{"/api/demo?x=1", "/api/demo"},
		{"/api/demonstration", "/api/demo"},
		{"/healthz", "/healthz"},
		{"/relay/status", "/relay/status"},
		{"/metrics", "/metrics"},
		{"/api/test", "other"},
		{"/", "other"},
		{"", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := l.Label(tt.path); got != tt.want {
				t.Errorf("Label(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
