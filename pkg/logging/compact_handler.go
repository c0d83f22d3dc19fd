package logging

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

var levelLabels = map[slog.Level]string{
	LevelTrace:      "[TRACE] ",
	slog.LevelDebug: "[DEBUG] ",
	slog.LevelInfo:  "[INFO]  ",
	slog.LevelWarn:  "[WARN]  ",
	slog.LevelError: "[ERROR] ",
}

// CompactHandler writes one line per record for the console:
//
//	[LEVEL] HH:MM:SS message | key=value key=value
//
// Handlers derived with WithAttrs or WithGroup share the writer lock.
type CompactHandler struct {
	opts   slog.HandlerOptions
	mu     *sync.Mutex
	out    io.Writer
	prefix []byte // preformatted attributes from WithAttrs
	group  string
}

// NewCompactHandler creates a compact console handler
func NewCompactHandler(w io.Writer, opts *slog.HandlerOptions) *CompactHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &CompactHandler{opts: *opts, mu: &sync.Mutex{}, out: w}
}

func (h *CompactHandler) Enabled(_ context.Context, level slog.Level) bool {
	if h.opts.Level == nil {
		return level >= slog.LevelInfo
	}
	return level >= h.opts.Level.Level()
}

func (h *CompactHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 256)

	if label, ok := levelLabels[r.Level]; ok {
		buf = append(buf, label...)
	} else {
		buf = append(buf, '[')
		buf = append(buf, r.Level.String()...)
		buf = append(buf, "] "...)
	}
	buf = r.Time.AppendFormat(buf, "15:04:05")
	buf = append(buf, ' ')
	buf = append(buf, r.Message...)

	// Capped so appends never write into the shared prefix
	attrs := h.prefix[:len(h.prefix):len(h.prefix)]
	r.Attrs(func(a slog.Attr) bool {
		attrs = appendAttr(attrs, h.group, a)
		return true
	})
	if len(attrs) > 0 {
		buf = append(buf, " |"...)
		buf = append(buf, attrs...)
	}
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf)
	return err
}

func (h *CompactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.prefix = append([]byte(nil), h.prefix...)
	for _, a := range attrs {
		h2.prefix = appendAttr(h2.prefix, h.group, a)
	}
	return &h2
}

func (h *CompactHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.group = joinKey(h.group, name)
	return &h2
}

// appendAttr writes " key=value", flattening groups into dotted keys
func appendAttr(buf []byte, group string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}

	if a.Value.Kind() == slog.KindGroup {
		// Inline groups have no key of their own
		sub := group
		if a.Key != "" {
			sub = joinKey(group, a.Key)
		}
		for _, ga := range a.Value.Group() {
			buf = appendAttr(buf, sub, ga)
		}
		return buf
	}

	buf = append(buf, ' ')
	switch a.Key {
	case "requestID":
		// The first block of a uuid is enough to follow a request
		if s := a.Value.String(); len(s) > 8 {
			return append(append(buf, "req="...), s[:8]...)
		}
	case "durationMs":
		buf = append(buf, "duration="...)
		buf = append(buf, a.Value.String()...)
		return append(buf, "ms"...)
	case "error":
		buf = append(buf, "error="...)
		return strconv.AppendQuote(buf, a.Value.String())
	}

	buf = append(buf, joinKey(group, a.Key)...)
	buf = append(buf, '=')
	return appendValue(buf, a.Value)
}

func appendValue(buf []byte, v slog.Value) []byte {
	switch v.Kind() {
	case slog.KindString:
		if s := v.String(); needsQuoting(s) {
			return strconv.AppendQuote(buf, s)
		}
		return append(buf, v.String()...)
	case slog.KindInt64:
		return strconv.AppendInt(buf, v.Int64(), 10)
	case slog.KindUint64:
		return strconv.AppendUint(buf, v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.AppendFloat(buf, v.Float64(), 'g', -1, 64)
	case slog.KindBool:
		return strconv.AppendBool(buf, v.Bool())
	case slog.KindDuration:
		return append(buf, v.Duration().String()...)
	case slog.KindTime:
		return v.Time().AppendFormat(buf, time.RFC3339)
	}
	return append(buf, v.String()...)
}

func needsQuoting(s string) bool {
	return s == "" || strings.ContainsAny(s, " \t\n\"=")
}

func joinKey(group, key string) string {
	if group == "" {
		return key
	}
	return group + "." + key
}
