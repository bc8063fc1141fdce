package gelf

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultTargetConfig(t *testing.T) {
	cfg := DefaultTargetConfig()

	require.NotEmpty(t, cfg.Host)
	require.Equal(t, cfg.Host, cfg.OriginHost)
	require.Equal(t, 12201, cfg.Port)
	require.Equal(t, "GELF", cfg.Facility)
	require.True(t, cfg.CompressedChunking)
	require.Equal(t, "gzip", cfg.Compression)
	require.Equal(t, ChunkSize, cfg.ChunkSize)
}

func TestTargetConfigValidate(t *testing.T) {
	base := DefaultTargetConfig()
	base.Host = "graylog.example.com"
	require.NoError(t, base.Validate())

	for name, mutate := range map[string]func(*TargetConfig){
		"empty host":        func(c *TargetConfig) { c.Host = "" },
		"bad host":          func(c *TargetConfig) { c.Host = "not a host!" },
		"port zero":         func(c *TargetConfig) { c.Port = 0 },
		"port too big":      func(c *TargetConfig) { c.Port = 70000 },
		"no origin":         func(c *TargetConfig) { c.OriginHost = "" },
		"compression":       func(c *TargetConfig) { c.Compression = "lz4" },
		"chunk size small":  func(c *TargetConfig) { c.ChunkSize = 10 },
		"chunk size beyond": func(c *TargetConfig) { c.ChunkSize = 70000 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			require.Error(t, cfg.Validate())

			w, err := cfg.NewWriter()
			require.Error(t, err)
			require.Nil(t, w)
		})
	}

	ip := base
	ip.Host = "::1"
	require.NoError(t, ip.Validate())
	require.Equal(t, "[::1]:12201", ip.Addr())
}

func TestTargetConfigNewWriter(t *testing.T) {
	cfg := DefaultTargetConfig()
	cfg.Host = "127.0.0.1"
	cfg.OriginHost = "origin"
	cfg.Facility = "app"
	cfg.Compression = "zlib"
	cfg.ChunkSize = 512
	cfg.AdditionalFields = map[string]string{"env": "test"}

	w, err := cfg.NewWriter()
	require.NoError(t, err)
	require.Equal(t, "origin", w.Hostname())
	require.Equal(t, "app", w.Facility)
	require.Equal(t, CompressZlib, w.CompressionType)
	require.Equal(t, FramingChunked, w.Framing)
	require.Equal(t, 512, w.ChunkSize)
	require.Equal(t, map[string]interface{}{"env": "test"}, w.AdditionalFields)
	require.NoError(t, w.Close())

	cfg.CompressedChunking = false
	w, err = cfg.NewWriter()
	require.NoError(t, err)
	require.Equal(t, FramingLegacy, w.Framing)
}

func TestTargetConfigOpen(t *testing.T) {
	r, err := NewReader("127.0.0.1:0")
	require.NoError(t, err)
	defer r.Close()

	cfg := DefaultTargetConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = r.conn.LocalAddr().(*net.UDPAddr).Port
	cfg.AdditionalFields = map[string]string{"env": "test"}

	w, err := cfg.Open()
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.WriteMessage(&Message{Short: "configured"}))
	msg, err := r.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, "configured", msg.Short)
	require.Equal(t, cfg.OriginHost, msg.Host)
	require.Equal(t, "GELF", msg.Facility)
	require.Equal(t, "test", msg.Extra["_env"])
}
