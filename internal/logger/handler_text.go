package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiGray   = "\033[90m"
)

// levelTag maps a slog level to its display name and color.
func levelTag(level slog.Level) (name, color string) {
	switch {
	case level < slog.LevelInfo:
		return "DEBUG", ansiGray
	case level < slog.LevelWarn:
		return "INFO", ansiGreen
	case level < slog.LevelError:
		return "WARN", ansiYellow
	default:
		return "ERROR", ansiRed
	}
}

// ColorTextHandler renders records as single-line human-readable text:
//
//	[2006-01-02 15:04:05] [INFO] message key=value ...
//
// with ANSI colors on the level and attribute keys when enabled.
type ColorTextHandler struct {
	opts     slog.HandlerOptions
	out      io.Writer
	writeMu  *sync.Mutex
	preAttrs []slog.Attr
	useColor bool
}

// NewColorTextHandler wraps w in a text handler. A nil opts uses defaults.
func NewColorTextHandler(w io.Writer, opts *slog.HandlerOptions, useColor bool) *ColorTextHandler {
	h := &ColorTextHandler{
		out:      w,
		writeMu:  &sync.Mutex{},
		useColor: useColor,
	}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

func (h *ColorTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.opts.Level != nil {
		min = h.opts.Level.Level()
	}
	return level >= min
}

func (h *ColorTextHandler) Handle(_ context.Context, r slog.Record) error {
	name, color := levelTag(r.Level)
	if !h.useColor {
		color = ""
	}

	// The line is assembled off-lock; only the write is serialized.
	line := make([]byte, 0, 128)
	line = append(line, '[')
	line = r.Time.AppendFormat(line, "2006-01-02 15:04:05")
	line = append(line, "] ["...)
	if color != "" {
		line = append(line, color...)
		line = append(line, name...)
		line = append(line, ansiReset...)
	} else {
		line = append(line, name...)
	}
	line = append(line, "] "...)
	line = append(line, r.Message...)

	for _, a := range h.preAttrs {
		line = h.appendAttr(line, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		line = h.appendAttr(line, a)
		return true
	})
	line = append(line, '\n')

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	_, err := h.out.Write(line)
	return err
}

func (h *ColorTextHandler) appendAttr(line []byte, a slog.Attr) []byte {
	if a.Equal(slog.Attr{}) {
		return line
	}
	a.Value = a.Value.Resolve()

	line = append(line, ' ')
	if h.useColor {
		line = append(line, ansiCyan...)
		line = append(line, a.Key...)
		line = append(line, ansiReset...)
	} else {
		line = append(line, a.Key...)
	}
	line = append(line, '=')
	return appendValue(line, a.Value)
}

func appendValue(line []byte, v slog.Value) []byte {
	switch v.Kind() {
	case slog.KindString:
		return append(line, v.String()...)
	case slog.KindInt64:
		return strconv.AppendInt(line, v.Int64(), 10)
	case slog.KindUint64:
		return strconv.AppendUint(line, v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.AppendFloat(line, v.Float64(), 'f', 3, 64)
	case slog.KindBool:
		return strconv.AppendBool(line, v.Bool())
	case slog.KindDuration:
		return append(line, v.Duration().String()...)
	case slog.KindTime:
		return v.Time().AppendFormat(line, time.RFC3339)
	default:
		return fmt.Appendf(line, "%v", v.Any())
	}
}

func (h *ColorTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.preAttrs = append(append([]slog.Attr{}, h.preAttrs...), attrs...)
	return &clone
}

// WithGroup is accepted but groups are flattened: this handler targets
// terminal output where nesting adds noise over clarity.
func (h *ColorTextHandler) WithGroup(name string) slog.Handler {
	return h
}
