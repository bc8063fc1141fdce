// Package appender turns log events from any logging library into GELF
// messages.  The per-library adapters only translate their event type
// into an Event.
package appender

import (
	"strconv"
	"time"

	"github.com/grafana/gelfsend/gelf"
)

const (
	// originHostKey in AdditionalFields names the origin host when
	// none is configured.
	originHostKey = "originHost"

	loggerNameKey = "logger"
	timestampKey  = "timestampMs"

	stackSeparator = "\n\r"
)

// Options are the settings shared by every adapter.
type Options struct {
	// OriginHost is the message host.  Empty leaves it to the writer.
	OriginHost string
	Facility   string
	// ExtractStacktrace appends the event's stack trace to the full
	// message.
	ExtractStacktrace bool
	// AddExtendedInformation adds the logger name, the event time in
	// milliseconds and the event's own fields as additional fields.
	AddExtendedInformation bool
	// AdditionalFields are added to every message.
	AdditionalFields map[string]string
}

// Event is a log event after an adapter has unpacked it.
type Event struct {
	Level gelf.Level
	Text  string
	// Time is the moment the event was logged.  The zero value means
	// the logging library does not record one.
	Time   time.Time
	File   string
	Line   int
	Logger string
	Stack  string
	Fields map[string]interface{}
}

// Message builds the GELF message for ev.  The short message is left
// untruncated; the writer truncates it on send.
func (o *Options) Message(ev Event) *gelf.Message {
	ts := ev.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	full := ev.Text
	if o.ExtractStacktrace && ev.Stack != "" {
		full += stackSeparator + ev.Stack
	}

	m := &gelf.Message{
		Version:  gelf.Version,
		Host:     o.OriginHost,
		Short:    ev.Text,
		Full:     full,
		TimeUnix: gelf.Timestamp(ts),
		Level:    ev.Level,
		Facility: o.Facility,
		File:     ev.File,
		Line:     ev.Line,
	}

	extra := make(map[string]interface{}, len(o.AdditionalFields)+len(ev.Fields)+2)
	for k, v := range o.AdditionalFields {
		if k == originHostKey {
			if m.Host == "" {
				m.Host = v
			}
			continue
		}
		extra[k] = v
	}

	if o.AddExtendedInformation {
		if ev.Logger != "" {
			extra[loggerNameKey] = ev.Logger
		}
		extra[timestampKey] = strconv.FormatInt(ts.UnixMilli(), 10)
		for k, v := range ev.Fields {
			extra[k] = v
		}
	}

	if len(extra) > 0 {
		m.Extra = extra
	}
	return m
}
