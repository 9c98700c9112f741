package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewFromEnvJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewFromEnv(&buf, "warn", "json", ComponentGateway)
	l.Info("dropped")
	l.Warn("kept", FieldOutcome, "failure")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"component":"gateway"`) || !strings.Contains(out, `"outcome":"failure"`) {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestWithComponentReplacesTag(t *testing.T) {
	var buf bytes.Buffer
	l := NewFromEnv(&buf, "info", "text", ComponentApp).
		With(FieldRequestID, "req_1").
		WithComponent(ComponentHTTP)
	l.Info("inside")

	out := buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=http") {
		t.Fatalf("expected a single http component: %s", out)
	}
	if !strings.Contains(out, "request_id=req_1") {
		t.Fatalf("request id lost across WithComponent: %s", out)
	}
	if l.Component() != ComponentHTTP {
		t.Fatalf("Component() = %q", l.Component())
	}
}

func TestContextRoundTrip(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Fatalf("expected fallback logger, got %+v", l)
	}
	want := New(DefaultConfig())
	if got := FromContext(NewContext(context.Background(), want)); got != want {
		t.Fatal("logger not recovered from context")
	}
}

func TestEventsRequestLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "level=INFO"},
		{http.StatusNotFound, "level=WARN"},
		{http.StatusBadGateway, "level=ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		ev := NewEvents(NewFromEnv(&buf, "info", "text", ComponentTrace))
		r := httptest.NewRequest(http.MethodGet, "/solution", nil)
		ev.RequestStarted(context.Background(), r, "1.2.3.4")
		ev.RequestFinished(context.Background(), r, tt.status, 5*time.Millisecond, "1.2.3.4")

		out := buf.String()
		if strings.Contains(out, "HTTP request started") {
			t.Errorf("start line should be debug only: %s", out)
		}
		if !strings.Contains(out, tt.level) || !strings.Contains(out, "duration_ms=5") {
			t.Errorf("status %d: %s", tt.status, out)
		}
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().WithError(nil).WithRecord("s1", "").WithClientIP("").WithError(errors.New("boom"))
	if f[FieldError] != "boom" || f[FieldSolutionID] != "s1" {
		t.Fatalf("unexpected fields: %v", f)
	}
	for _, k := range []string{FieldRecordID, FieldClientIP} {
		if _, ok := f[k]; ok {
			t.Fatalf("empty %s should be skipped", k)
		}
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Fatal("ToSlice length mismatch")
	}
}
