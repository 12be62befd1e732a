// File path: internal/common/log.go
package common

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

const captureHistory = 1000

var (
	logger     *slog.Logger
	loggerOnce sync.Once
	capture    = newCaptureBuffer(captureHistory)
)

// LogEntry is a captured record emitted through the common logger. The
// pipeline commands persist warn/error tails into the run catalog.
type LogEntry struct {
	Time       time.Time              `json:"time"`
	Level      string                 `json:"level"`
	Message    string                 `json:"message"`
	Component  string                 `json:"component,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// Logger returns the process-wide slog logger. The level comes from the
// LOG_LEVEL environment variable and defaults to info.
func Logger() *slog.Logger {
	loggerOnce.Do(func() {
		level := slog.LevelInfo
		switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
		base := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		logger = slog.New(&capturingHandler{handler: base, buf: capture})
	})
	return logger
}

// LogEntries returns a copy of the captured history, oldest first.
func LogEntries() []LogEntry {
	return capture.entries()
}

// ProblemEntries returns captured entries at warn level or above.
func ProblemEntries() []LogEntry {
	all := capture.entries()
	out := make([]LogEntry, 0, len(all))
	for _, e := range all {
		if e.Level == "warn" || e.Level == "error" {
			out = append(out, e)
		}
	}
	return out
}

type capturingHandler struct {
	handler slog.Handler
	buf     *captureBuffer
}

func (h *capturingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *capturingHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.handler.Handle(ctx, record)
	h.buf.add(record)
	return err
}

func (h *capturingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &capturingHandler{handler: h.handler.WithAttrs(attrs), buf: h.buf}
}

func (h *capturingHandler) WithGroup(name string) slog.Handler {
	return &capturingHandler{handler: h.handler.WithGroup(name), buf: h.buf}
}

type captureBuffer struct {
	mu      sync.RWMutex
	max     int
	history []LogEntry
}

func newCaptureBuffer(max int) *captureBuffer {
	if max <= 0 {
		max = captureHistory
	}
	return &captureBuffer{max: max}
}

func (b *captureBuffer) add(record slog.Record) {
	entry := toEntry(record)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = append(b.history, entry)
	if len(b.history) > b.max {
		b.history = b.history[len(b.history)-b.max:]
	}
}

func (b *captureBuffer) entries() []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.history) == 0 {
		return nil
	}
	out := make([]LogEntry, len(b.history))
	copy(out, b.history)
	return out
}

func toEntry(record slog.Record) LogEntry {
	rec := record.Clone()
	entry := LogEntry{
		Time:    rec.Time.UTC(),
		Level:   strings.ToLower(rec.Level.String()),
		Message: rec.Message,
	}
	if entry.Time.IsZero() {
		entry.Time = time.Now().UTC()
	}

	var attrs map[string]interface{}
	rec.Attrs(func(a slog.Attr) bool {
		value := attrValue(a.Value)
		if a.Key == "component" {
			if str, ok := value.(string); ok && str != "" {
				entry.Component = str
			}
			return true
		}
		if attrs == nil {
			attrs = make(map[string]interface{})
		}
		attrs[a.Key] = value
		return true
	})

	// Messages follow the "component: detail" convention; recover the
	// component when it was not passed as an attribute.
	if entry.Component == "" {
		if idx := strings.Index(entry.Message, ":"); idx > 0 {
			entry.Component = strings.TrimSpace(entry.Message[:idx])
		}
	}
	if len(attrs) > 0 {
		entry.Attributes = attrs
	}
	return entry
}

func attrValue(v slog.Value) interface{} {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindBool:
		return v.Bool()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC()
	case slog.KindAny:
		return v.Any()
	default:
		return v.String()
	}
}
