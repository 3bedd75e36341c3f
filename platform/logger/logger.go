// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// LeadIDKey is the context key for the lead being processed
	LeadIDKey contextKey = "lead_id"
	// CallSIDKey is the context key for the telephony call identifier
	CallSIDKey contextKey = "call_sid"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id, lead_id, and call_sid from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("request_id", requestID))}
	}

	if leadID, ok := ctx.Value(LeadIDKey).(string); ok && leadID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("lead_id", leadID))}
	}

	if callSID, ok := ctx.Value(CallSIDKey).(string); ok && callSID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("call_sid", callSID))}
	}

	return newLogger
}

// WithCallSID returns a logger bound to a telephony call identifier.
func (l *Logger) WithCallSID(callSID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("call_sid", callSID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// CallEvent logs a state change or notable event on a live call session.
func (l *Logger) CallEvent(callSID, event string, attrs ...any) {
	args := append([]any{slog.String("call_sid", callSID), slog.String("event", event)}, attrs...)
	l.Info("call_event", args...)
}

// CallError logs a failure on a live call session.
func (l *Logger) CallError(callSID, event string, err error) {
	l.Error("call_error",
		slog.String("call_sid", callSID),
		slog.String("event", event),
		slog.String("error", err.Error()),
	)
}

// ClassificationFailure logs a lead classification failure.
func (l *Logger) ClassificationFailure(leadID string, err error) {
	l.Error("classification_failure",
		slog.String("lead_id", leadID),
		slog.String("error", err.Error()),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
