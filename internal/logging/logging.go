// Package logging provides the structured logger used across the platform.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog logger with platform conventions: a component field
// on every line and helpers for request-scoped context values.
type Logger struct {
	zl zerolog.Logger
}

// New creates a logger writing JSON lines to the given writer.
func New(w io.Writer, component string) *Logger {
	zl := zerolog.New(w).With().
		Timestamp().
		Str("component", component).
		Logger()
	return &Logger{zl: zl}
}

// NewDefault creates a logger writing to stderr at the level named by
// LOG_LEVEL (debug, info, warn, error). Unknown values fall back to info.
func NewDefault(component string) *Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn", "warning":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	zl := zerolog.New(os.Stderr).Level(level).With().
		Timestamp().
		Str("component", component).
		Logger()
	return &Logger{zl: zl}
}

// WithField returns a logger with an extra field attached.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

// WithFields returns a logger with the given fields attached.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.zl.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zl: ctx.Logger()}
}

// WithError returns a logger with the error attached.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zl: l.zl.With().Err(err).Logger()}
}

// WithContext returns a logger annotated with trace, user and role values
// carried in ctx, when present.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	zctx := l.zl.With()
	if traceID := GetTraceID(ctx); traceID != "" {
		zctx = zctx.Str("trace_id", traceID)
	}
	if userID := GetUserID(ctx); userID != "" {
		zctx = zctx.Str("user_id", userID)
	}
	if role := GetRole(ctx); role != "" {
		zctx = zctx.Str("role", role)
	}
	return &Logger{zl: zctx.Logger()}
}

func (l *Logger) Debug(msg string) { l.zl.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.zl.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.zl.Warn().Msg(msg) }
func (l *Logger) Error(msg string) { l.zl.Error().Msg(msg) }

// LogRequest emits the access log line for a completed HTTP request.
func (l *Logger) LogRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	evt := l.zl.Info()
	if status >= 500 {
		evt = l.zl.Error()
	} else if status >= 400 {
		evt = l.zl.Warn()
	}
	if traceID := GetTraceID(ctx); traceID != "" {
		evt = evt.Str("trace_id", traceID)
	}
	if userID := GetUserID(ctx); userID != "" {
		evt = evt.Str("user_id", userID)
	}
	evt.Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("duration", duration).
		Msg("http request")
}
