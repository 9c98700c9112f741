package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Events writes the few log lines whose shape other tooling greps for:
// one pair per HTTP request and one line per backend mutation.
type Events struct {
	logger *Logger
}

func NewEvents(logger *Logger) *Events {
	return &Events{logger: logger}
}

// RequestStarted is logged at debug; RequestFinished carries the outcome.
func (e *Events) RequestStarted(ctx context.Context, r *http.Request, clientIP string) {
	e.logger.DebugContext(ctx, "HTTP request started", NewFields().
		WithRequest(r.Method, r.URL.Path).
		WithClientIP(clientIP).
		ToSlice()...)
}

// RequestFinished logs 4xx at warn and 5xx at error.
func (e *Events) RequestFinished(ctx context.Context, r *http.Request, status int, took time.Duration, clientIP string) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	e.logger.Log(ctx, level, "HTTP request completed", NewFields().
		WithRequest(r.Method, r.URL.Path).
		WithStatus(status, took).
		WithClientIP(clientIP).
		ToSlice()...)
}

// Mutation records a successful create, update, delete or share against
// the backend. Empty ids are left out.
func (e *Events) Mutation(ctx context.Context, op, solutionID, recordID string) {
	e.logger.InfoContext(ctx, "Backend record changed", NewFields().
		WithOperation(op).
		WithRecord(solutionID, recordID).
		ToSlice()...)
}
