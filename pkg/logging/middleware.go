package logging

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequestIDMiddleware adds a request ID to each HTTP request and logs it.
// Client errors are warnings and server errors are errors. Event streams and
// websocket upgrades stay open for as long as a page is shown, so they are
// logged at debug level when they open and close.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Generate or extract request ID
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := WithRequestID(r.Context(), requestID)
		r = r.WithContext(ctx)
		w.Header().Set("X-Request-ID", requestID)

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		stream := isStream(r)

		start := time.Now()
		if stream {
			DebugContext(ctx, "stream opened", "path", r.URL.Path, "remoteAddr", r.RemoteAddr)
		} else {
			DebugContext(ctx, "request started", "method", r.Method, "path", r.URL.Path, "remoteAddr", r.RemoteAddr)
		}

		next.ServeHTTP(wrapped, r)

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"durationMs", time.Since(start).Milliseconds(),
		}
		switch {
		case wrapped.statusCode >= 500:
			ErrorContext(ctx, "request failed", args...)
		case wrapped.statusCode >= 400:
			WarnContext(ctx, "request rejected", args...)
		case stream:
			DebugContext(ctx, "stream closed", args...)
		default:
			InfoContext(ctx, "request completed", args...)
		}
	})
}

// isStream reports whether a request opens a long-lived connection
func isStream(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") ||
		strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush implements http.Flusher for SSE support
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack implements http.Hijacker so WebSocket upgrades pass through
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}
