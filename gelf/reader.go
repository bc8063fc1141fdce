// Copyright 2012 SocialCode. All rights reserved.
// Use of this source code is governed by the MIT
// license that can be found in the LICENSE file.

package gelf

import (
	"bytes"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// incompleteTimeout is how long chunks of an unfinished message are
// kept.  Graylog servers use the same window.
const incompleteTimeout = 5 * time.Second

// Reader receives GELF datagrams, reassembling chunked messages in
// sequence order whatever order their chunks arrive in.
type Reader struct {
	// Framing must match the sender's.  Both layouts start with the
	// same magic bytes, so it cannot be detected.
	Framing Framing

	mu      sync.Mutex
	conn    *net.UDPConn
	pending map[string]*partialMessage
}

type partialMessage struct {
	first  time.Time
	chunks [][]byte
	have   int
}

func NewReader(addr string) (*Reader, error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("ResolveUDPAddr('%s'): %w", addr, err)
	}

	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("ListenUDP: %w", err)
	}

	r := &Reader{
		conn:    conn,
		pending: make(map[string]*partialMessage),
	}
	return r, nil
}

func (r *Reader) Addr() string {
	return r.conn.LocalAddr().String()
}

func (r *Reader) Close() error {
	return r.conn.Close()
}

// SetDeadline bounds how long the next reads may block.
func (r *Reader) SetDeadline(t time.Time) error {
	return r.conn.SetReadDeadline(t)
}

// ReadDatagram returns the next datagram exactly as it came off the wire.
func (r *Reader) ReadDatagram() ([]byte, error) {
	buf := make([]byte, 65536)
	n, err := r.conn.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// ReadRaw returns the next complete payload: reassembled if it was
// chunked and decompressed if it was compressed.
func (r *Reader) ReadRaw() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		p, err := r.ReadDatagram()
		if err != nil {
			return nil, err
		}

		if !bytes.HasPrefix(p, magicChunked) {
			return decompress(p)
		}

		payload, err := r.addChunk(p, time.Now())
		if err != nil {
			return nil, err
		}
		if payload != nil {
			return decompress(payload)
		}
	}
}

// addChunk files one chunk away and returns the whole payload once its
// last missing chunk arrives.
func (r *Reader) addChunk(p []byte, now time.Time) ([]byte, error) {
	for id, pm := range r.pending {
		if now.Sub(pm.first) > incompleteTimeout {
			delete(r.pending, id)
		}
	}

	h, body, err := parseChunk(p, r.Framing)
	if err != nil {
		return nil, err
	}

	pm, ok := r.pending[h.id]
	if !ok {
		pm = &partialMessage{first: now, chunks: make([][]byte, h.count)}
		r.pending[h.id] = pm
	}
	if len(pm.chunks) != h.count {
		delete(r.pending, h.id)
		return nil, fmt.Errorf("gelf: chunk %d claims %d chunks, earlier ones claimed %d", h.seq, h.count, len(pm.chunks))
	}
	if pm.chunks[h.seq] != nil {
		// duplicate
		return nil, nil
	}
	pm.chunks[h.seq] = body
	pm.have++
	if pm.have < h.count {
		return nil, nil
	}

	delete(r.pending, h.id)
	return bytes.Join(pm.chunks, nil), nil
}

func (r *Reader) ReadMessage() (*Message, error) {
	b, err := r.ReadRaw()
	if err != nil {
		return nil, err
	}

	msg := new(Message)
	if err := msg.UnmarshalJSON(b); err != nil {
		return nil, fmt.Errorf("gelf: decoding message: %w", err)
	}
	return msg, nil
}

// Read returns the text of the next message: its full message, or the
// short one when there is none.
func (r *Reader) Read(p []byte) (int, error) {
	msg, err := r.ReadMessage()
	if err != nil {
		return 0, err
	}

	var data string
	if msg.Full == "" {
		data = msg.Short
	} else {
		data = msg.Full
	}

	return strings.NewReader(data).Read(p)
}
