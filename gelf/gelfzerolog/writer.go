// Package gelfzerolog sends zerolog events as GELF messages.  Use the
// Writer as (one of) a zerolog.Logger's outputs.
package gelfzerolog

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/francoispqt/gojay"
	"github.com/rs/zerolog"

	"github.com/grafana/gelfsend/gelf"
	"github.com/grafana/gelfsend/internal/appender"
)

// Options for a Writer.
type Options struct {
	appender.Options

	// Logger is sent as the logger name with extended information.
	Logger string
}

// fieldNames are the zerolog globals in effect when the Writer was
// built.  zerolog reads them on every event, but they are meant to be
// set once at startup, so a Writer resolves them once too.
type fieldNames struct {
	time       string
	timeFormat string
	level      string
	message    string
	caller     string
	stack      string
}

// Writer implements zerolog.LevelWriter.
type Writer struct {
	w     gelf.MessageWriter
	opts  Options
	names fieldNames
}

var _ zerolog.LevelWriter = (*Writer)(nil)

func New(w gelf.MessageWriter, opts Options) *Writer {
	return &Writer{
		w:    w,
		opts: opts,
		names: fieldNames{
			time:       zerolog.TimestampFieldName,
			timeFormat: zerolog.TimeFieldFormat,
			level:      zerolog.LevelFieldName,
			message:    zerolog.MessageFieldName,
			caller:     zerolog.CallerFieldName,
			stack:      zerolog.ErrorStackFieldName,
		},
	}
}

// Level maps zerolog levels onto syslog severities.
func Level(l zerolog.Level) gelf.Level {
	switch l {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		return gelf.LevelDebug
	case zerolog.WarnLevel:
		return gelf.LevelWarning
	case zerolog.ErrorLevel:
		return gelf.LevelErr
	case zerolog.FatalLevel:
		return gelf.LevelAlert
	case zerolog.PanicLevel:
		return gelf.LevelEmerg
	default:
		return gelf.LevelInfo
	}
}

// Write sends an event whose level is read from the event itself.
func (w *Writer) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.NoLevel, p)
}

func (w *Writer) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	fields := make(eventFields)
	if err := gojay.UnmarshalJSONObject(bytes.TrimSpace(p), fields); err != nil {
		return 0, fmt.Errorf("gelfzerolog: decoding event: %w", err)
	}

	if l == zerolog.NoLevel {
		if s, ok := fields[w.names.level].(string); ok {
			if parsed, err := zerolog.ParseLevel(s); err == nil {
				l = parsed
			}
		}
	}
	delete(fields, w.names.level)

	ev := appender.Event{
		Level:  Level(l),
		Logger: w.opts.Logger,
	}
	if msg, ok := fields[w.names.message]; ok {
		ev.Text = fmt.Sprint(msg)
		delete(fields, w.names.message)
	}
	if ts, ok := fields[w.names.time]; ok {
		if t, ok := parseTime(ts, w.names.timeFormat); ok {
			ev.Time = t
			delete(fields, w.names.time)
		}
	}
	if caller, ok := fields[w.names.caller].(string); ok {
		if i := strings.LastIndexByte(caller, ':'); i > 0 {
			if line, err := strconv.Atoi(caller[i+1:]); err == nil {
				ev.File, ev.Line = caller[:i], line
				delete(fields, w.names.caller)
			}
		}
	}
	if stack, ok := fields[w.names.stack]; ok {
		if s, ok := stack.(string); ok {
			ev.Stack = s
		} else {
			ev.Stack = fmt.Sprint(stack)
		}
		if w.opts.ExtractStacktrace {
			delete(fields, w.names.stack)
		}
	}
	ev.Fields = fields

	if err := w.w.WriteMessage(w.opts.Message(ev)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// parseTime reads a timestamp written with zerolog's TimeFieldFormat.
func parseTime(v interface{}, format string) (time.Time, bool) {
	if n, ok := v.(float64); ok {
		switch format {
		case zerolog.TimeFormatUnix:
			sec := int64(n)
			return time.Unix(sec, int64((n-float64(sec))*1e9)), true
		case zerolog.TimeFormatUnixMs:
			return time.UnixMilli(int64(n)), true
		case zerolog.TimeFormatUnixMicro:
			return time.UnixMicro(int64(n)), true
		case zerolog.TimeFormatUnixNano:
			return time.Unix(0, int64(n)), true
		}
		return time.Time{}, false
	}

	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(format, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// eventFields decodes any JSON object into a map, numbers as float64.
type eventFields map[string]interface{}

func (f eventFields) UnmarshalJSONObject(dec *gojay.Decoder, key string) error {
	var v interface{}
	if err := dec.Interface(&v); err != nil {
		return err
	}
	f[key] = v
	return nil
}

func (f eventFields) NKeys() int {
	return 0
}
