// Copyright 2012 SocialCode. All rights reserved.
// Use of this source code is governed by the MIT
// license that can be found in the LICENSE file.

package gelf

import (
	"bytes"
	"compress/flate"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

type connState int

const (
	stateUnopened connState = iota
	stateOpen
	stateClosed
)

// UDPWriter sends GELF messages to a graylog2 server over UDP.  It owns
// one socket from Open until Close.  Sends are serialized, so a
// UDPWriter may be shared between goroutines; the chunks of two
// messages never interleave.
//
// The exported fields must not be changed once the writer is in use.
type UDPWriter struct {
	Facility         string // defaults to current process name
	CompressionLevel int    // one of the consts from compress/flate
	CompressionType  CompressType
	// Framing picks the chunk layout.  FramingLegacy also disables
	// compression, matching what pre 0.9.6 servers expect.
	Framing Framing
	// ChunkSize is the largest datagram written, headers included.
	ChunkSize             int
	MaxShortMessageLength int
	// AdditionalFields are added to every message.  Fields set on the
	// message itself take precedence.
	AdditionalFields map[string]interface{}
	Metrics          *Metrics

	addr     string
	hostname string

	mu    sync.Mutex
	state connState
	conn  net.Conn
	buf   bytes.Buffer
	comp  compressor
}

func newUDPWriter(addr, hostname string) *UDPWriter {
	return &UDPWriter{
		Facility:              processName(),
		CompressionLevel:      flate.BestSpeed,
		CompressionType:       CompressGzip,
		Framing:               FramingChunked,
		ChunkSize:             ChunkSize,
		MaxShortMessageLength: DefaultMaxShortMessageLength,
		addr:                  addr,
		hostname:              hostname,
	}
}

// NewUDPWriter returns a new, open GELF Writer.  This writer can be
// used to send the output of the standard Go log functions to a
// central GELF server by passing it to log.SetOutput()
func NewUDPWriter(addr string) (*UDPWriter, error) {
	w := newUDPWriter(addr, localHostname())
	if err := w.Open(); err != nil {
		return nil, err
	}
	return w, nil
}

// Hostname is the origin host stamped on messages that have none.
func (w *UDPWriter) Hostname() string {
	return w.hostname
}

// Open resolves the destination and binds the socket.  UDP has no
// handshake, so an unreachable server is not detected here.
func (w *UDPWriter) Open() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case stateOpen:
		return ErrAlreadyOpen
	case stateClosed:
		return ErrClosed
	}

	if w.addr == "" {
		return errors.New("gelf: no server address")
	}
	raddr, err := net.ResolveUDPAddr("udp", w.addr)
	if err != nil {
		return fmt.Errorf("gelf: resolving %s: %w", w.addr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return fmt.Errorf("gelf: dialing %s: %w", w.addr, err)
	}

	w.conn = conn
	w.state = stateOpen
	return nil
}

// Close releases the socket.  Closing a writer that is not open is a
// no-op.
func (w *UDPWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != stateOpen {
		return nil
	}
	err := w.conn.Close()
	w.conn = nil
	w.state = stateClosed
	return err
}

// Send is WriteMessage.
func (w *UDPWriter) Send(m *Message) error {
	return w.WriteMessage(m)
}

// WriteMessage sends the specified message to the GELF server
// specified in the call to New().  It assumes all the fields are
// filled out appropriately.  In general, clients will want to use
// Write, rather than WriteMessage.
//
// A nil error only means the datagrams were handed to the kernel.  When
// any chunk fails to send the whole message is reported as failed; it
// is never retried.
func (w *UDPWriter) WriteMessage(m *Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case stateUnopened:
		return ErrNotOpen
	case stateClosed:
		return ErrClosed
	}

	msg := w.prepare(m)

	w.buf.Reset()
	if err := msg.MarshalJSONBuf(&w.buf); err != nil {
		w.Metrics.failed("encode")
		return err
	}

	chunkSize := w.ChunkSize
	if chunkSize <= 0 {
		chunkSize = ChunkSize
	}

	payload := w.buf.Bytes()
	if len(payload) > chunkSize && w.Framing == FramingChunked {
		var err error
		payload, err = w.comp.compress(payload, w.CompressionType, w.CompressionLevel)
		if err != nil {
			w.Metrics.failed("encode")
			return fmt.Errorf("gelf: compressing: %w", err)
		}
	}

	var id []byte
	if len(payload) > chunkSize {
		var err error
		if id, err = newMessageID(w.Framing); err != nil {
			w.Metrics.failed("encode")
			return fmt.Errorf("gelf: message id: %w", err)
		}
	}
	chunks, err := chunkPayload(payload, id, w.Framing, chunkSize)
	if err != nil {
		w.Metrics.failed("oversized")
		return err
	}

	sent := 0
	for i, c := range chunks {
		n, err := w.conn.Write(c)
		if err == nil && n != len(c) {
			err = io.ErrShortWrite
		}
		if err != nil {
			w.Metrics.failed("transport")
			if len(chunks) == 1 {
				return fmt.Errorf("gelf: write: %w", err)
			}
			return fmt.Errorf("gelf: write chunk %d of %d: %w", i+1, len(chunks), err)
		}
		sent += n
	}

	mode := "single"
	if len(chunks) > 1 {
		mode = "chunked"
	}
	w.Metrics.sent(mode, len(chunks), sent)
	return nil
}

// prepare returns a copy of m with the writer's defaults filled in and
// the short message truncated.  A level outside 0-7 is sent as ALERT.
// m itself is not modified.
func (w *UDPWriter) prepare(m *Message) *Message {
	msg := *m
	if msg.Version == "" {
		msg.Version = Version
	}
	if msg.Host == "" {
		msg.Host = w.hostname
	}
	if msg.Facility == "" {
		msg.Facility = w.Facility
	}
	if msg.TimeUnix == 0 {
		msg.TimeUnix = Timestamp(time.Now())
	}

	max := w.MaxShortMessageLength
	if max <= 0 {
		max = DefaultMaxShortMessageLength
	}
	msg.Short = TruncateShortMessage(msg.Short, max)

	if !msg.Level.Valid() {
		msg.Level = LevelAlert
	}

	if len(w.AdditionalFields) > 0 {
		extra := make(map[string]interface{}, len(w.AdditionalFields)+len(m.Extra))
		mergeFields(extra, w.AdditionalFields)
		mergeFields(extra, m.Extra)
		msg.Extra = extra
	}
	return &msg
}

// mergeFields copies src into dst under their wire keys, overwriting
// what dst already holds.  Within src, "_x" wins over "x".  Names
// fieldKey rejects are left out.
func mergeFields(dst, src map[string]interface{}) {
	explicit := make(map[string]bool, len(src))
	for k, v := range src {
		key, ok := fieldKey(k)
		if !ok {
			continue
		}
		prefixed := strings.HasPrefix(k, "_")
		if explicit[key] && !prefixed {
			continue
		}
		dst[key] = v
		explicit[key] = explicit[key] || prefixed
	}
}

// Write encodes the given string in a GELF message and sends it to
// the server specified in New().
func (w *UDPWriter) Write(p []byte) (n int, err error) {
	// remove trailing and leading whitespace
	text := bytes.TrimSpace(p)

	// If there are newlines in the message, use the first line
	// for the short message and set the full message to the
	// original input.  If the input has no newlines, stick the
	// whole thing in Short.
	short := text
	full := []byte("")
	if i := bytes.IndexRune(text, '\n'); i > 0 {
		short = text[:i]
		full = text
	}

	file, line := getCallerIgnoringLogMulti(1)

	m := &Message{
		Version:  Version,
		Host:     w.hostname,
		Short:    string(short),
		Full:     string(full),
		TimeUnix: Timestamp(time.Now()),
		Level:    LevelInfo,
		Facility: w.Facility,
		File:     file,
		Line:     line,
	}

	if err = w.WriteMessage(m); err != nil {
		return 0, err
	}

	return len(p), nil
}
