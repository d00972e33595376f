package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/api/students", "200", time.Millisecond)
	m.ObserveGeneration("text", "success", time.Second)
	m.APIInflightInc()
	m.SSEClientConnected()
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("WritePrometheus on nil: %v", err)
	}
}

func TestWritePrometheus(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("GET", "/api/students", "200", 30*time.Millisecond)
	m.ObserveAPI("POST", "/api/chat/sessions/:id/messages", "502", 2*time.Second)
	m.ObserveGeneration("json", "error", 3*time.Second)
	m.IncAgentRating("Evaluator", "up")

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`edu_api_requests_total{method="GET",route="/api/students",status="200"} 1`,
		`edu_api_server_errors_total 1`,
		`edu_generation_duration_seconds_bucket{mode="json",le="5"} 1`,
		`edu_generation_duration_seconds_bucket{mode="json",le="2"} 0`,
		`edu_generation_requests_total{mode="json",status="error"} 1`,
		`edu_agent_ratings_total{agent="Evaluator",rating="up"} 1`,
		"# TYPE edu_api_inflight_requests gauge",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"route", "status"}, []string{`/a"b`})
	if got != `{route="/a\"b",status="unknown"}` {
		t.Fatalf("labelString=%s", got)
	}
	if withLe("", "+Inf") != `{le="+Inf"}` {
		t.Fatalf("withLe on empty labels")
	}
}

func TestParseHeaders(t *testing.T) {
	got := parseHeaders(" api-key = abc ,bad, x=1,=2")
	if len(got) != 2 || got["api-key"] != "abc" || got["x"] != "1" {
		t.Fatalf("parseHeaders=%v", got)
	}
	if parseHeaders("") != nil {
		t.Fatalf("expected nil for empty input")
	}
}
