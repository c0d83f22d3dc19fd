package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const requestIDKey contextKey = "requestID"

// LevelTrace is below debug and used for per-frame messages
const LevelTrace = slog.LevelDebug - 4

var (
	// logger is swapped on reload while other goroutines log
	logger atomic.Pointer[slog.Logger]
	out    io.Writer = os.Stdout
)

func init() {
	// Initialize with compact handler for readable console output
	// Can be replaced with JSON handler for production
	handler := NewCompactHandler(out, &slog.HandlerOptions{
		Level: slog.LevelInfo, // Default level
	})
	logger.Store(slog.New(handler))
}

// SetLevel changes the logging level
func SetLevel(level slog.Level) {
	handler := NewCompactHandler(out, &slog.HandlerOptions{
		Level: level,
	})
	logger.Store(slog.New(handler))
}

// SetJSONOutput switches to JSON format output
func SetJSONOutput(level slog.Level) {
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: level,
	})
	logger.Store(slog.New(handler))
}

// SetOutput redirects log output, keeping the compact format
func SetOutput(w io.Writer, level slog.Level) {
	out = w
	SetLevel(level)
}

// New returns a logger tagged with a component name (e.g. "web", "diagram").
// It follows later SetLevel and SetJSONOutput calls, so it is safe to create
// in a package-level var.
func New(component string) *slog.Logger {
	return slog.New(currentHandler{}).With("component", component)
}

// currentHandler forwards to whatever handler the package logger has now
type currentHandler struct {
	wrap []func(slog.Handler) slog.Handler
}

func (c currentHandler) handler() slog.Handler {
	h := logger.Load().Handler()
	for _, w := range c.wrap {
		h = w(h)
	}
	return h
}

func (c currentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return logger.Load().Handler().Enabled(ctx, level)
}

func (c currentHandler) Handle(ctx context.Context, r slog.Record) error {
	return c.handler().Handle(ctx, r)
}

func (c currentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return c.with(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (c currentHandler) WithGroup(name string) slog.Handler {
	return c.with(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (c currentHandler) with(w func(slog.Handler) slog.Handler) currentHandler {
	wrap := make([]func(slog.Handler) slog.Handler, 0, len(c.wrap)+1)
	wrap = append(wrap, c.wrap...)
	return currentHandler{wrap: append(wrap, w)}
}

// ParseLevel maps a verbosity name or -v count to a level.
// Unknown names fall back to info.
func ParseLevel(verbosity string, verbose int) slog.Level {
	switch {
	case verbose >= 2:
		return LevelTrace
	case verbose == 1:
		return slog.LevelDebug
	}

	switch strings.ToLower(verbosity) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// Helper function to add request ID to log attributes if present
func withRequestID(ctx context.Context, args []any) []any {
	requestID := GetRequestID(ctx)
	if requestID != "" {
		return append([]any{"requestID", requestID}, args...)
	}
	return args
}

// Trace logs at TRACE level (very verbose, debug-time only)
func Trace(msg string, args ...any) {
	logger.Load().Log(context.Background(), LevelTrace, msg, args...)
}

// TraceContext logs at TRACE level with context
func TraceContext(ctx context.Context, msg string, args ...any) {
	logger.Load().Log(ctx, LevelTrace, msg, withRequestID(ctx, args)...)
}

// Debug logs at DEBUG level (internal component behavior)
func Debug(msg string, args ...any) {
	logger.Load().Debug(msg, args...)
}

// DebugContext logs at DEBUG level with context
func DebugContext(ctx context.Context, msg string, args ...any) {
	logger.Load().DebugContext(ctx, msg, withRequestID(ctx, args)...)
}

// Info logs at INFO level (user-facing operations)
func Info(msg string, args ...any) {
	logger.Load().Info(msg, args...)
}

// InfoContext logs at INFO level with context
func InfoContext(ctx context.Context, msg string, args ...any) {
	logger.Load().InfoContext(ctx, msg, withRequestID(ctx, args)...)
}

// Warn logs at WARN level (should be monitored)
func Warn(msg string, args ...any) {
	logger.Load().Warn(msg, args...)
}

// WarnContext logs at WARN level with context
func WarnContext(ctx context.Context, msg string, args ...any) {
	logger.Load().WarnContext(ctx, msg, withRequestID(ctx, args)...)
}

// Error logs at ERROR level (logical bugs that shouldn't happen)
func Error(msg string, args ...any) {
	logger.Load().Error(msg, args...)
}

// ErrorContext logs at ERROR level with context
func ErrorContext(ctx context.Context, msg string, args ...any) {
	logger.Load().ErrorContext(ctx, msg, withRequestID(ctx, args)...)
}

// Fatal logs at ERROR level and exits (unrecoverable bugs)
func Fatal(msg string, args ...any) {
	logger.Load().Error(msg, args...)
	os.Exit(1)
}

// FatalContext logs at ERROR level with context and exits
func FatalContext(ctx context.Context, msg string, args ...any) {
	logger.Load().ErrorContext(ctx, msg, withRequestID(ctx, args)...)
	os.Exit(1)
}
