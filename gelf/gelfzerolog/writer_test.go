package gelfzerolog

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/grafana/gelfsend/gelf"
	"github.com/grafana/gelfsend/internal/appender"
)

type recorder struct {
	msgs []*gelf.Message
	err  error
}

func (r *recorder) WriteMessage(m *gelf.Message) error {
	r.msgs = append(r.msgs, m)
	return r.err
}

func TestWriterEvent(t *testing.T) {
	rec := &recorder{}
	logger := zerolog.New(New(rec, Options{Options: appender.Options{OriginHost: "node1", Facility: "app"}})).
		With().Timestamp().Caller().Logger()

	logger.Warn().Int("free", 12).Msg("disk nearly full")

	require.Len(t, rec.msgs, 1)
	m := rec.msgs[0]
	require.Equal(t, "disk nearly full", m.Short)
	require.Equal(t, "node1", m.Host)
	require.Equal(t, "app", m.Facility)
	require.Equal(t, gelf.LevelWarning, m.Level)
	require.True(t, strings.HasSuffix(m.File, "/gelfzerolog/writer_test.go"), m.File)
	require.Positive(t, m.Line)
	// RFC3339 timestamps have whole seconds
	require.InDelta(t, gelf.Timestamp(time.Now()), m.TimeUnix, 5)
	require.Nil(t, m.Extra)
}

func TestWriterExtendedInformation(t *testing.T) {
	rec := &recorder{}
	logger := zerolog.New(New(rec, Options{
		Options: appender.Options{AddExtendedInformation: true},
		Logger:  "db",
	}))

	logger.Info().Str("user", "bob").Int("rows", 3).Bool("cached", true).Msg("query")

	extra := rec.msgs[0].Extra
	require.Equal(t, "bob", extra["user"])
	require.Equal(t, float64(3), extra["rows"])
	require.Equal(t, true, extra["cached"])
	require.Equal(t, "db", extra["logger"])
	require.Contains(t, extra, "timestampMs")
	require.NotContains(t, extra, zerolog.LevelFieldName)
	require.NotContains(t, extra, zerolog.MessageFieldName)
}

func TestWriterLevels(t *testing.T) {
	for l, want := range map[zerolog.Level]gelf.Level{
		zerolog.TraceLevel: gelf.LevelDebug,
		zerolog.DebugLevel: gelf.LevelDebug,
		zerolog.InfoLevel:  gelf.LevelInfo,
		zerolog.WarnLevel:  gelf.LevelWarning,
		zerolog.ErrorLevel: gelf.LevelErr,
		zerolog.FatalLevel: gelf.LevelAlert,
		zerolog.PanicLevel: gelf.LevelEmerg,
		zerolog.NoLevel:    gelf.LevelInfo,
	} {
		require.Equal(t, want, Level(l), l.String())
	}
}

func TestWriterLevelFromEvent(t *testing.T) {
	rec := &recorder{}
	w := New(rec, Options{})

	_, err := w.Write([]byte(`{"level":"error","message":"from the event"}` + "\n"))
	require.NoError(t, err)
	require.Equal(t, gelf.LevelErr, rec.msgs[0].Level)

	_, err = w.Write([]byte(`{"message":"no level"}`))
	require.NoError(t, err)
	require.Equal(t, gelf.LevelInfo, rec.msgs[1].Level)
}

func TestWriterStacktrace(t *testing.T) {
	rec := &recorder{}
	w := New(rec, Options{Options: appender.Options{ExtractStacktrace: true, AddExtendedInformation: true}})

	n, err := w.WriteLevel(zerolog.ErrorLevel, []byte(`{"message":"failed","stack":"main.main()","error":"boom"}`))
	require.NoError(t, err)
	require.Positive(t, n)

	m := rec.msgs[0]
	require.Equal(t, "failed\n\rmain.main()", m.Full)
	require.Equal(t, "boom", m.Extra["error"])
	require.NotContains(t, m.Extra, "stack")
}

func TestParseTime(t *testing.T) {
	want := time.UnixMilli(1700000000123)

	got, ok := parseTime(float64(1700000000123), zerolog.TimeFormatUnixMs)
	require.True(t, ok)
	require.True(t, want.Equal(got))

	got, ok = parseTime(float64(1700000000123000), zerolog.TimeFormatUnixMicro)
	require.True(t, ok)
	require.True(t, want.Equal(got))

	got, ok = parseTime(float64(1700000000), zerolog.TimeFormatUnix)
	require.True(t, ok)
	require.Equal(t, int64(1700000000), got.Unix())

	got, ok = parseTime(want.UTC().Format(time.RFC3339Nano), time.RFC3339Nano)
	require.True(t, ok)
	require.True(t, want.Equal(got))

	_, ok = parseTime("yesterday", time.RFC3339)
	require.False(t, ok)
	_, ok = parseTime(true, time.RFC3339)
	require.False(t, ok)
}

func TestWriterErrors(t *testing.T) {
	rec := &recorder{err: errors.New("socket gone")}
	w := New(rec, Options{})

	_, err := w.Write([]byte(`{"message":"x"}`))
	require.EqualError(t, err, "socket gone")

	_, err = w.Write([]byte(`not json`))
	require.Error(t, err)
}

func TestWriterOverUDP(t *testing.T) {
	r, err := gelf.NewReader("127.0.0.1:0")
	require.NoError(t, err)
	defer r.Close()

	gw, err := gelf.NewUDPWriter(r.Addr())
	require.NoError(t, err)
	defer gw.Close()

	var console bytes.Buffer
	logger := zerolog.New(zerolog.MultiLevelWriter(&console, New(gw, Options{})))
	logger.Error().Msg("over the wire")

	msg, err := r.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, "over the wire", msg.Short)
	require.Equal(t, gelf.LevelErr, msg.Level)
	require.Contains(t, console.String(), "over the wire")
}
