package gelf

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestTruncateShortMessage(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"empty", "", 10, ""},
		{"fits", "disk full", 10, "disk full"},
		{"exact", "0123456789", 10, "0123456789"},
		{"one over", "0123456789a", 10, "0123456..."},
		{"tiny max", "abcdef", 2, ".."},
		{"multibyte", "héhéhéhé", 8, "héh..."},
		{"zero max", "abc", 0, ""},
		{"negative max", "abc", -1, ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, TruncateShortMessage(tc.in, tc.max))
		})
	}
}

func TestTruncateShortMessageBound(t *testing.T) {
	long := strings.Repeat("ünïcode ", 100)
	for n := 0; n <= len(long); n += 7 {
		s := long[:n]
		if !utf8.ValidString(s) {
			continue
		}
		for _, max := range []int{4, 10, 50, DefaultMaxShortMessageLength} {
			got := TruncateShortMessage(s, max)
			require.LessOrEqual(t, len(got), max)
			require.True(t, utf8.ValidString(got))
			if len(s) <= max {
				require.Equal(t, s, got)
			} else {
				require.True(t, strings.HasSuffix(got, truncationMarker))
				require.True(t, strings.HasPrefix(s, strings.TrimSuffix(got, truncationMarker)))
			}
		}
	}
}

func TestFieldKey(t *testing.T) {
	for name, want := range map[string]string{
		"user_id":      "_user_id",
		"_user_id":     "_user_id",
		"some.info":    "_some.info",
		"x-request":    "_x-request",
		"__internal":   "__internal",
		"":             "",
		"_":            "",
		"with space":   "",
		"ünïcode":      "",
		"id":           "",
		"_id":          "",
		"host":         "",
		"_host":        "",
		"timestamp":    "",
		"full_message": "",
		"line":         "",
	} {
		key, ok := fieldKey(name)
		require.Equalf(t, want != "", ok, "%q", name)
		require.Equalf(t, want, key, "%q", name)
	}
}

func TestMarshalJSONFields(t *testing.T) {
	m := &Message{
		Host:     "node1",
		Short:    "short",
		Full:     "full\nmessage",
		TimeUnix: 1385053862.307,
		Level:    LevelAlert,
		Facility: "fac",
		File:     "main.go",
		Line:     42,
		Extra: map[string]interface{}{
			"str":      "v",
			"int":      -3,
			"uint":     uint16(7),
			"float":    2.5,
			"float32":  float32(0.5),
			"bool":     true,
			"nan":      math.NaN(),
			"inf":      math.Inf(1),
			"duration": 1500 * time.Millisecond,
			"err":      errors.New("boom"),
			"slice":    []int{1, 2},
			"nil":      nil,
			"level":    "shadowed",
		},
	}

	b, err := m.MarshalJSON()
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &doc))
	require.Equal(t, map[string]interface{}{
		"version":       Version,
		"host":          "node1",
		"short_message": "short",
		"full_message":  "full\nmessage",
		"timestamp":     1385053862.307,
		"level":         float64(1),
		"facility":      "fac",
		"file":          "main.go",
		"line":          float64(42),
		"_str":          "v",
		"_int":          float64(-3),
		"_uint":         float64(7),
		"_float":        2.5,
		"_float32":      0.5,
		"_bool":         true,
		"_nan":          "NaN",
		"_inf":          "+Inf",
		"_duration":     "1.5s",
		"_err":          "boom",
		"_slice":        "[1 2]",
		"_nil":          "<nil>",
	}, doc)
}

func TestMarshalJSONOmitsEmptyOptionalFields(t *testing.T) {
	b, err := (&Message{Host: "h", Level: LevelEmerg}).MarshalJSON()
	require.NoError(t, err)
	require.JSONEq(t, `{"version":"1.1","host":"h","short_message":"","timestamp":0,"level":0}`, string(b))
}

func TestMarshalJSONDeterministic(t *testing.T) {
	extra := map[string]interface{}{}
	for _, k := range strings.Fields("q w e r t y u i o p a s d f g h j k l z x c v b n m") {
		extra[k] = k
	}
	m := &Message{Host: "h", Short: "s", Extra: extra}

	first, err := m.MarshalJSON()
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		b, err := m.MarshalJSON()
		require.NoError(t, err)
		require.Equal(t, string(first), string(b))
	}
	require.Contains(t, string(first), `"_a":"a","_b":"b","_c":"c"`)
}

func TestMarshalJSONUnderscoreFormWins(t *testing.T) {
	m := &Message{Host: "h", Extra: map[string]interface{}{"k": "bare", "_k": "explicit"}}
	for i := 0; i < 10; i++ {
		b, err := m.MarshalJSON()
		require.NoError(t, err)
		require.Contains(t, string(b), `"_k":"explicit"`)
		require.NotContains(t, string(b), "bare")
	}
}

func TestMarshalJSONMissingHost(t *testing.T) {
	_, err := (&Message{Short: "no host"}).MarshalJSON()
	require.ErrorIs(t, err, ErrMissingHost)
}

func TestMessageRoundTrip(t *testing.T) {
	m := &Message{
		Version:  Version,
		Host:     "node1",
		Short:    "round trip \"quoted\" é",
		Full:     "line one\nline two\ttabbed",
		TimeUnix: Timestamp(time.UnixMilli(1700000000123)),
		Level:    LevelDebug,
		Facility: "fac",
		File:     "x.go",
		Line:     9,
		Extra:    map[string]interface{}{"_n": 1.5, "_s": "v", "_b": false},
	}

	b, err := m.MarshalJSON()
	require.NoError(t, err)

	var got Message
	require.NoError(t, got.UnmarshalJSON(b))
	require.Equal(t, *m, got)

	again, err := got.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, string(b), string(again))
}

func TestUnmarshalJSONIgnoresUnprefixedUnknownKeys(t *testing.T) {
	var m Message
	require.NoError(t, m.UnmarshalJSON([]byte(`{"host":"h","short_message":"s","woo":"hoo","_x":[1,2]}`)))
	require.Equal(t, map[string]interface{}{"_x": []interface{}{float64(1), float64(2)}}, m.Extra)
}

func TestTimestamp(t *testing.T) {
	ts := time.Date(2023, 11, 14, 22, 13, 20, 123456789, time.UTC)
	require.Equal(t, 1700000000.123, Timestamp(ts))
}
