package gelf

import (
	"fmt"
	"net"
	"strconv"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultPort     = 12201
	DefaultFacility = "GELF"
)

// TargetConfig describes where and how messages are sent.  It is
// usually loaded from a file or the environment, hence the koanf tags.
type TargetConfig struct {
	Host       string `koanf:"host" validate:"required,hostname_rfc1123|ip"`
	Port       int    `koanf:"port" validate:"min=1,max=65535"`
	OriginHost string `koanf:"origin_host" validate:"required"`
	Facility   string `koanf:"facility"`
	// CompressedChunking selects gzip + modern chunk framing.  When
	// false the uncompressed chunking format used by graylog prior to
	// 0.9.6 is sent instead.
	CompressedChunking bool              `koanf:"compressed_chunking"`
	Compression        string            `koanf:"compression" validate:"oneof=gzip zlib none"`
	ChunkSize          int               `koanf:"chunk_size" validate:"min=64,max=65507"`
	AdditionalFields   map[string]string `koanf:"additional_fields"`
}

var validate = validator.New()

func DefaultTargetConfig() TargetConfig {
	host := localHostname()
	return TargetConfig{
		Host:               host,
		Port:               DefaultPort,
		OriginHost:         host,
		Facility:           DefaultFacility,
		CompressedChunking: true,
		Compression:        CompressGzip.String(),
		ChunkSize:          ChunkSize,
	}
}

func (c *TargetConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("gelf: invalid target config: %w", err)
	}
	return nil
}

// Addr is the host:port messages are sent to.
func (c *TargetConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// NewWriter returns an unopened writer for this target.  The host is
// only resolved by Open.
func (c *TargetConfig) NewWriter() (*UDPWriter, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	ct, err := ParseCompressType(c.Compression)
	if err != nil {
		return nil, err
	}

	w := newUDPWriter(c.Addr(), c.OriginHost)
	if c.Facility != "" {
		w.Facility = c.Facility
	}
	w.CompressionType = ct
	w.ChunkSize = c.ChunkSize
	if !c.CompressedChunking {
		w.Framing = FramingLegacy
	}
	if len(c.AdditionalFields) > 0 {
		w.AdditionalFields = make(map[string]interface{}, len(c.AdditionalFields))
		for k, v := range c.AdditionalFields {
			w.AdditionalFields[k] = v
		}
	}
	return w, nil
}

// Open is NewWriter followed by Open.
func (c *TargetConfig) Open() (*UDPWriter, error) {
	w, err := c.NewWriter()
	if err != nil {
		return nil, err
	}
	if err := w.Open(); err != nil {
		return nil, err
	}
	return w, nil
}
