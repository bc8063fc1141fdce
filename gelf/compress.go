package gelf

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// What compression type the writer should use when sending messages
// to the graylog2 server
type CompressType int

const (
	CompressGzip CompressType = iota
	CompressZlib
	CompressNone
)

func (c CompressType) String() string {
	switch c {
	case CompressGzip:
		return "gzip"
	case CompressZlib:
		return "zlib"
	case CompressNone:
		return "none"
	}
	return fmt.Sprintf("CompressType(%d)", int(c))
}

func ParseCompressType(s string) (CompressType, error) {
	switch strings.ToLower(s) {
	case "gzip", "":
		return CompressGzip, nil
	case "zlib":
		return CompressZlib, nil
	case "none":
		return CompressNone, nil
	}
	return 0, fmt.Errorf("gelf: unknown compression type %q", s)
}

// compressor keeps one compressing writer per algorithm so repeated
// sends reuse their state.  It is not safe for concurrent use.
type compressor struct {
	level int
	buf   bytes.Buffer
	gz    *gzip.Writer
	zw    *zlib.Writer
}

// compress returns the compressed form of b.  The result aliases an
// internal buffer and is only valid until the next call.
func (c *compressor) compress(b []byte, ct CompressType, level int) ([]byte, error) {
	if ct == CompressNone {
		return b, nil
	}
	if level != c.level {
		c.gz, c.zw = nil, nil
		c.level = level
	}

	c.buf.Reset()
	var zw io.WriteCloser
	switch ct {
	case CompressGzip:
		if c.gz == nil {
			w, err := gzip.NewWriterLevel(&c.buf, level)
			if err != nil {
				return nil, err
			}
			c.gz = w
		} else {
			c.gz.Reset(&c.buf)
		}
		zw = c.gz
	case CompressZlib:
		if c.zw == nil {
			w, err := zlib.NewWriterLevel(&c.buf, level)
			if err != nil {
				return nil, err
			}
			c.zw = w
		} else {
			c.zw.Reset(&c.buf)
		}
		zw = c.zw
	default:
		return nil, fmt.Errorf("gelf: unknown compression type %d", int(ct))
	}

	if _, err := zw.Write(b); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return c.buf.Bytes(), nil
}

// decompress undoes whatever compression the magic header of b names.
// Payloads without a known magic are returned unchanged.
func decompress(b []byte) ([]byte, error) {
	var (
		r   io.ReadCloser
		err error
	)
	switch {
	case bytes.HasPrefix(b, magicGzip):
		r, err = gzip.NewReader(bytes.NewReader(b))
	case bytes.HasPrefix(b, magicZlib):
		r, err = zlib.NewReader(bytes.NewReader(b))
	default:
		return b, nil
	}
	if err != nil {
		return nil, fmt.Errorf("gelf: bad compressed payload: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gelf: bad compressed payload: %w", err)
	}
	return out, nil
}
