package audit

import (
	"context"
	"log/slog"
	"time"
)

type ctxKey struct{}

// WithRequestID stores the request id picked up by audit records
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID returns the request id stored in ctx, if any
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Logger writes audit records for account and lifecycle events
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger.With(slog.String("log_type", "audit"))}
}

// LogAction records one action by userID against a resource
func (al *Logger) LogAction(ctx context.Context, userID, action, resource, resourceID, outcome, details string) {
	al.logger.InfoContext(ctx, "audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("user_id", userID),
		slog.String("outcome", outcome),
		slog.String("details", details),
		slog.String("request_id", RequestID(ctx)),
		slog.Time("timestamp", time.Now()),
	)
}

// LogTransition records a status change, cancel, edit or delete
func (al *Logger) LogTransition(ctx context.Context, userID, resource, resourceID, action, from, to string, err error) {
	outcome, details := "success", from+" -> "+to
	if err != nil {
		outcome, details = "failure", err.Error()
	}
	al.LogAction(ctx, userID, action, resource, resourceID, outcome, details)
}

// LogAuth records a register, login or password reset attempt
func (al *Logger) LogAuth(ctx context.Context, userID, action string, err error) {
	outcome, details := "success", ""
	if err != nil {
		outcome, details = "failure", err.Error()
	}
	al.LogAction(ctx, userID, action, "user", userID, outcome, details)
}

// LogDenied records a rejected request
func (al *Logger) LogDenied(ctx context.Context, userID, reason string) {
	al.LogAction(ctx, userID, "access_denied", "api", "", "denied", reason)
}
