package trace

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"budgetbook/internal/log"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewFromEnv(&buf, "debug", "json", log.ComponentApp)
	m := NewMiddleware(logger, func(*http.Request) string { return "9.9.9.9" })

	var seen string
	var fromCtx *log.Logger
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		fromCtx = log.FromContext(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/solution", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("request id %q is not a uuid", seen)
	}
	if rec.Header().Get(HeaderRequestID) != seen {
		t.Fatal("request id not echoed")
	}
	if fromCtx == nil {
		t.Fatal("logger not placed in context")
	}
	out := buf.String()
	for _, want := range []string{"HTTP request started", "HTTP request completed", `"status_code":201`, `"client_ip":"9.9.9.9"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %s:\n%s", want, out)
		}
	}
}

func TestMiddlewareKeepsCallerRequestID(t *testing.T) {
	m := NewMiddleware(nil, nil)
	id := uuid.NewString()

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"valid uuid kept", id, true},
		{"junk replaced", "<script>", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set(HeaderRequestID, tt.header)
			rec := httptest.NewRecorder()
			m.Middleware(http.NotFoundHandler()).ServeHTTP(rec, r)
			got := rec.Header().Get(HeaderRequestID)
			if (got == tt.header) != tt.keep {
				t.Fatalf("request id = %q", got)
			}
		})
	}
}

func TestGetRequestIDEmpty(t *testing.T) {
	if GetRequestID(context.Background()) != "" {
		t.Fatal("expected empty id")
	}
}
