package gelf

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/francoispqt/gojay"
)

// Version is the GELF spec version written when a Message has none.
const Version = "1.1"

const (
	// DefaultMaxShortMessageLength bounds short_message, in bytes.
	DefaultMaxShortMessageLength = 250
	truncationMarker             = "..."
)

// Message represents the contents of the GELF message.  It is gzipped
// before sending when it does not fit in a single datagram.
//
// Extra holds the additional fields.  Keys may be given with or without
// the leading underscore GELF uses on the wire; see fieldKey for the keys
// that are dropped.
type Message struct {
	Version  string
	Host     string
	Short    string
	Full     string
	TimeUnix float64
	Level    Level
	Facility string
	File     string
	Line     int
	Extra    map[string]interface{}
}

// reserved top-level names.  An additional field with one of these
// names is dropped rather than shadowing the real field.
var reservedFields = map[string]struct{}{
	"version":       {},
	"host":          {},
	"short_message": {},
	"full_message":  {},
	"timestamp":     {},
	"level":         {},
	"facility":      {},
	"file":          {},
	"line":          {},
	// GELF servers reject _id
	"id": {},
}

// Timestamp converts t to GELF's seconds-since-epoch with millisecond
// precision.
func Timestamp(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000
}

// TruncateShortMessage returns s unchanged when it is at most max bytes
// long.  Longer strings are cut so that the result, including the
// trailing "...", is at most max bytes and still valid UTF-8.  A max
// of zero or less yields "".
func TruncateShortMessage(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	if max <= len(truncationMarker) {
		return truncationMarker[:max]
	}
	cut := max - len(truncationMarker)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncationMarker
}

// fieldKey maps an additional field name to its wire key.  ok is false
// for names that must not be sent: empty names, names outside
// [A-Za-z0-9_.-], and reserved names.
func fieldKey(name string) (key string, ok bool) {
	bare := strings.TrimPrefix(name, "_")
	if bare == "" {
		return "", false
	}
	for i := 0; i < len(bare); i++ {
		c := bare[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		case c == '_', c == '.', c == '-':
		default:
			return "", false
		}
	}
	if _, reserved := reservedFields[bare]; reserved {
		return "", false
	}
	return "_" + bare, true
}

func (m *Message) IsNil() bool {
	return m == nil
}

// MarshalJSONObject implements gojay.MarshalerJSONObject.  Additional
// fields are written in key order so equal messages encode to equal bytes.
func (m *Message) MarshalJSONObject(enc *gojay.Encoder) {
	version := m.Version
	if version == "" {
		version = Version
	}
	enc.StringKey("version", version)
	enc.StringKey("host", m.Host)
	enc.StringKey("short_message", m.Short)
	enc.StringKeyOmitEmpty("full_message", m.Full)
	enc.Float64Key("timestamp", m.TimeUnix)
	enc.Int32Key("level", int32(m.Level))
	enc.StringKeyOmitEmpty("facility", m.Facility)
	enc.StringKeyOmitEmpty("file", m.File)
	enc.IntKeyOmitEmpty("line", m.Line)

	if len(m.Extra) == 0 {
		return
	}
	fields := make(map[string]interface{}, len(m.Extra))
	keys := make([]string, 0, len(m.Extra))
	for k, v := range m.Extra {
		key, ok := fieldKey(k)
		if !ok {
			continue
		}
		// "_x" and "x" name the same field; the explicit form wins
		if _, dup := fields[key]; dup && !strings.HasPrefix(k, "_") {
			continue
		} else if !dup {
			keys = append(keys, key)
		}
		fields[key] = v
	}
	sort.Strings(keys)
	for _, k := range keys {
		encodeField(enc, k, fields[k])
	}
}

// encodeField writes v as a JSON scalar.  Numbers and booleans keep
// their type; everything else, including non-finite floats, is sent as
// its string form.
func encodeField(enc *gojay.Encoder, key string, v interface{}) {
	switch v := v.(type) {
	case string:
		enc.StringKey(key, v)
	case bool:
		enc.BoolKey(key, v)
	case int:
		enc.Int64Key(key, int64(v))
	case int8:
		enc.Int64Key(key, int64(v))
	case int16:
		enc.Int64Key(key, int64(v))
	case int32:
		enc.Int64Key(key, int64(v))
	case int64:
		enc.Int64Key(key, v)
	case uint:
		enc.Uint64Key(key, uint64(v))
	case uint8:
		enc.Uint64Key(key, uint64(v))
	case uint16:
		enc.Uint64Key(key, uint64(v))
	case uint32:
		enc.Uint64Key(key, uint64(v))
	case uint64:
		enc.Uint64Key(key, v)
	case float32:
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			enc.StringKey(key, strconv.FormatFloat(f, 'g', -1, 32))
			return
		}
		enc.Float32Key(key, v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			enc.StringKey(key, strconv.FormatFloat(v, 'g', -1, 64))
			return
		}
		enc.Float64Key(key, v)
	case error:
		enc.StringKey(key, v.Error())
	case fmt.Stringer:
		enc.StringKey(key, v.String())
	default:
		enc.StringKey(key, fmt.Sprint(v))
	}
}

// MarshalJSONBuf appends the JSON encoding of m to buf.
func (m *Message) MarshalJSONBuf(buf *bytes.Buffer) error {
	if m.Host == "" {
		return ErrMissingHost
	}
	enc := gojay.BorrowEncoder(buf)
	defer enc.Release()
	return enc.EncodeObject(m)
}

func (m *Message) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := m.MarshalJSONBuf(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSONObject implements gojay.UnmarshalerJSONObject.  Unknown
// keys are kept in Extra only when they carry the additional field
// prefix; numbers decode as float64.
func (m *Message) UnmarshalJSONObject(dec *gojay.Decoder, key string) error {
	switch key {
	case "version":
		return dec.String(&m.Version)
	case "host":
		return dec.String(&m.Host)
	case "short_message":
		return dec.String(&m.Short)
	case "full_message":
		return dec.String(&m.Full)
	case "timestamp":
		return dec.Float64(&m.TimeUnix)
	case "level":
		var l int32
		if err := dec.Int32(&l); err != nil {
			return err
		}
		m.Level = Level(l)
		return nil
	case "facility":
		return dec.String(&m.Facility)
	case "file":
		return dec.String(&m.File)
	case "line":
		return dec.Int(&m.Line)
	}

	var v interface{}
	if err := dec.Interface(&v); err != nil {
		return err
	}
	if strings.HasPrefix(key, "_") {
		if m.Extra == nil {
			m.Extra = make(map[string]interface{})
		}
		m.Extra[key] = v
	}
	return nil
}

func (m *Message) NKeys() int {
	return 0
}

func (m *Message) UnmarshalJSON(data []byte) error {
	return gojay.UnmarshalJSONObject(data, m)
}
