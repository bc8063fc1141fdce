// Package gelfzap is a zapcore.Core that sends every entry as a GELF
// message.  Tee it with the application's console core to log to both.
package gelfzap

import (
	"go.uber.org/zap/zapcore"

	"github.com/grafana/gelfsend/gelf"
	"github.com/grafana/gelfsend/internal/appender"
)

// Core implements zapcore.Core.
type Core struct {
	zapcore.LevelEnabler

	w      gelf.MessageWriter
	opts   appender.Options
	fields []zapcore.Field
}

var _ zapcore.Core = (*Core)(nil)

// NewCore returns a core sending the entries enab enables to w.
func NewCore(w gelf.MessageWriter, enab zapcore.LevelEnabler, opts appender.Options) *Core {
	return &Core{LevelEnabler: enab, w: w, opts: opts}
}

// Level maps zap levels onto syslog severities.
func Level(l zapcore.Level) gelf.Level {
	switch l {
	case zapcore.DebugLevel:
		return gelf.LevelDebug
	case zapcore.WarnLevel:
		return gelf.LevelWarning
	case zapcore.ErrorLevel:
		return gelf.LevelErr
	case zapcore.DPanicLevel:
		return gelf.LevelCrit
	case zapcore.PanicLevel:
		return gelf.LevelAlert
	case zapcore.FatalLevel:
		return gelf.LevelEmerg
	default:
		return gelf.LevelInfo
	}
}

func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	c2 := *c
	c2.fields = make([]zapcore.Field, 0, len(c.fields)+len(fields))
	c2.fields = append(c2.fields, c.fields...)
	c2.fields = append(c2.fields, fields...)
	return &c2
}

func (c *Core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *Core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	ev := appender.Event{
		Level:  Level(ent.Level),
		Text:   ent.Message,
		Time:   ent.Time,
		Logger: ent.LoggerName,
		Stack:  ent.Stack,
		Fields: enc.Fields,
	}
	if ent.Caller.Defined {
		ev.File, ev.Line = ent.Caller.File, ent.Caller.Line
	}

	return c.w.WriteMessage(c.opts.Message(ev))
}

// Sync is a no-op; every entry is sent as it is written.
func (c *Core) Sync() error {
	return nil
}
