package gelf

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// newMessageID returns a fresh chunk message id for the given framing.
//
// Modern ids are 8 bytes: bytes 4-7 of a version 7 UUID (the low 16
// bits of the millisecond clock followed by the version nibble and the
// generator's 12 bit sub-millisecond sequence) and its last 4 random
// bytes.  The uuid package serializes that sequence, so ids built in
// the same process and millisecond differ; across hosts the random half
// keeps collisions negligible.
//
// Legacy ids are the 32 hex digits of a random UUID.
func newMessageID(f Framing) ([]byte, error) {
	if f == FramingLegacy {
		u, err := uuid.NewRandom()
		if err != nil {
			return nil, err
		}
		id := make([]byte, hex.EncodedLen(len(u)))
		hex.Encode(id, u[:])
		return id, nil
	}

	u, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	id := make([]byte, 0, 8)
	id = append(id, u[4:8]...)
	id = append(id, u[12:16]...)
	return id, nil
}
