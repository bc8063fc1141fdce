package gelf

import (
	"encoding/binary"
	"fmt"
)

// Used to control GELF chunking.  Should be less than (MTU - len(UDP
// header)).
//
// TODO: generate dynamically using Path MTU Discovery?
const (
	ChunkSize        = 1420
	chunkedHeaderLen = 12
	chunkedDataLen   = ChunkSize - chunkedHeaderLen
	// legacy (pre 0.9.6) chunks carry a 32 byte id and 16 bit counters
	legacyHeaderLen = 38
	// maxChunksCount is limited by the protocol to a maximum of 128
	// https://docs.graylog.org/docs/gelf#gelf-via-udp
	maxChunksCount = 128
)

var (
	magicChunked = []byte{0x1e, 0x0f}
	magicZlib    = []byte{0x78}
	magicGzip    = []byte{0x1f, 0x8b}
)

// Framing selects the chunk header layout written in front of every
// chunk of an oversized message.
type Framing int

const (
	// FramingChunked is the current GELF layout:
	//
	//	1e 0f | message id (8) | seq index (1) | seq count (1) | body
	FramingChunked Framing = iota
	// FramingLegacy is the uncompressed chunking layout understood by
	// Graylog2 servers before 0.9.6:
	//
	//	1e 0f | message id (32, ASCII hex) | seq index (2, BE) | seq count (2, BE) | body
	FramingLegacy
)

func (f Framing) String() string {
	switch f {
	case FramingChunked:
		return "chunked"
	case FramingLegacy:
		return "legacy"
	}
	return fmt.Sprintf("Framing(%d)", int(f))
}

func (f Framing) headerLen() int {
	if f == FramingLegacy {
		return legacyHeaderLen
	}
	return chunkedHeaderLen
}

func (f Framing) idLen() int {
	return f.headerLen() - len(magicChunked) - 2*f.counterLen()
}

func (f Framing) counterLen() int {
	if f == FramingLegacy {
		return 2
	}
	return 1
}

// numChunks returns the number of GELF chunks necessary to transmit
// a payload of n bytes when no datagram may exceed chunkSize bytes.
func numChunks(n, chunkSize int, f Framing) int {
	if n <= chunkSize {
		return 1
	}
	dataLen := chunkSize - f.headerLen()
	return (n + dataLen - 1) / dataLen
}

// chunkPayload splits b into datagrams of at most chunkSize bytes.  A
// payload that fits is returned as the single, unframed datagram.  The
// returned chunks are in sequence order and their bodies concatenate to
// b.  Nothing is returned if the payload needs more than maxChunksCount
// chunks.
func chunkPayload(b, id []byte, f Framing, chunkSize int) ([][]byte, error) {
	if len(b) <= chunkSize {
		return [][]byte{b}, nil
	}

	hdrLen := f.headerLen()
	if chunkSize <= hdrLen {
		return nil, fmt.Errorf("%w: %d bytes leaves no room after a %d byte %s header",
			ErrChunkSize, chunkSize, hdrLen, f)
	}
	if len(id) != f.idLen() {
		return nil, fmt.Errorf("gelf: %s message id must be %d bytes, got %d", f, f.idLen(), len(id))
	}

	count := numChunks(len(b), chunkSize, f)
	if count > maxChunksCount {
		return nil, fmt.Errorf("%w: %d bytes need %d chunks, limit is %d",
			ErrTooManyChunks, len(b), count, maxChunksCount)
	}

	dataLen := chunkSize - hdrLen
	chunks := make([][]byte, 0, count)
	for seq := 0; seq < count; seq++ {
		body := b[seq*dataLen : min((seq+1)*dataLen, len(b))]

		chunk := make([]byte, hdrLen+len(body))
		n := copy(chunk, magicChunked)
		n += copy(chunk[n:], id)
		if f == FramingLegacy {
			binary.BigEndian.PutUint16(chunk[n:], uint16(seq))
			binary.BigEndian.PutUint16(chunk[n+2:], uint16(count))
		} else {
			chunk[n] = uint8(seq)
			chunk[n+1] = uint8(count)
		}
		copy(chunk[hdrLen:], body)

		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// chunkHeader is the parsed framing of one received chunk.
type chunkHeader struct {
	id    string
	seq   int
	count int
}

// parseChunk splits a framed datagram into its header and body.
func parseChunk(p []byte, f Framing) (chunkHeader, []byte, error) {
	hdrLen := f.headerLen()
	if len(p) < hdrLen || p[0] != magicChunked[0] || p[1] != magicChunked[1] {
		return chunkHeader{}, nil, fmt.Errorf("gelf: datagram of %d bytes is not a %s chunk", len(p), f)
	}

	idEnd := len(magicChunked) + f.idLen()
	h := chunkHeader{id: string(p[len(magicChunked):idEnd])}
	if f == FramingLegacy {
		h.seq = int(binary.BigEndian.Uint16(p[idEnd:]))
		h.count = int(binary.BigEndian.Uint16(p[idEnd+2:]))
	} else {
		h.seq = int(p[idEnd])
		h.count = int(p[idEnd+1])
	}

	if h.count < 1 || h.count > maxChunksCount || h.seq >= h.count {
		return chunkHeader{}, nil, fmt.Errorf("gelf: bad chunk sequence %d/%d", h.seq, h.count)
	}
	return h, p[hdrLen:], nil
}
