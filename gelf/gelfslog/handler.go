// Package gelfslog is a log/slog handler that sends every record as a
// GELF message.
package gelfslog

import (
	"context"
	"log/slog"
	"runtime"
	"strings"

	"github.com/grafana/gelfsend/gelf"
	"github.com/grafana/gelfsend/internal/appender"
)

// StackKey is the attribute whose value is used as the stack trace
// when ExtractStacktrace is set.
const StackKey = "stack"

type Options struct {
	appender.Options

	// Level reports the minimum record level that will be sent.
	// Defaults to slog.LevelInfo.
	Level slog.Leveler
	// AddSource sends the file and line of the logging call.
	AddSource bool
	// Logger is sent as the logger name with extended information.
	Logger string
}

// Handler implements slog.Handler.
type Handler struct {
	w      gelf.MessageWriter
	opts   Options
	attrs  []slog.Attr
	prefix string
}

// NewHandler returns a handler sending to w.  A nil opts means the
// defaults.
func NewHandler(w gelf.MessageWriter, opts *Options) *Handler {
	h := &Handler{w: w}
	if opts != nil {
		h.opts = *opts
	}
	if h.opts.Level == nil {
		h.opts.Level = slog.LevelInfo
	}
	return h
}

func (h *Handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.opts.Level.Level()
}

// Level maps slog levels onto syslog severities.
func Level(l slog.Level) gelf.Level {
	switch {
	case l < slog.LevelInfo:
		return gelf.LevelDebug
	case l < slog.LevelWarn:
		return gelf.LevelInfo
	case l < slog.LevelError:
		return gelf.LevelWarning
	case l < slog.LevelError+4:
		return gelf.LevelErr
	default:
		return gelf.LevelCrit
	}
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	ev := appender.Event{
		Level:  Level(r.Level),
		Text:   r.Message,
		Time:   r.Time,
		Logger: h.opts.Logger,
		Fields: make(map[string]interface{}, len(h.attrs)+r.NumAttrs()),
	}

	if h.opts.AddSource && r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		ev.File, ev.Line = f.File, f.Line
	}

	for _, a := range h.attrs {
		addAttr(ev.Fields, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(ev.Fields, h.prefix, a)
		return true
	})

	if stack, ok := ev.Fields[StackKey]; ok {
		if s, ok := stack.(string); ok {
			ev.Stack = s
		}
		if h.opts.ExtractStacktrace {
			delete(ev.Fields, StackKey)
		}
	}

	return h.w.WriteMessage(h.opts.Message(ev))
}

// addAttr flattens a into fields, joining group names with dots.
func addAttr(fields map[string]interface{}, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	v := a.Value

	if v.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range v.Group() {
			addAttr(fields, p, ga)
		}
		return
	}

	fields[prefix+a.Key] = attrValue(v)
}

func attrValue(v slog.Value) interface{} {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format("2006-01-02T15:04:05.000Z07:00")
	default:
		return v.Any()
	}
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	h2.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	h2.attrs = append(h2.attrs, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a = slog.Group(strings.TrimSuffix(h.prefix, "."), a)
		}
		h2.attrs = append(h2.attrs, a)
	}
	return &h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}
