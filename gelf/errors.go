package gelf

import "errors"

var (
	// ErrNotOpen is returned when sending on a writer that was never opened.
	ErrNotOpen = errors.New("gelf: writer is not open")
	// ErrAlreadyOpen is returned by Open on an open writer.
	ErrAlreadyOpen = errors.New("gelf: writer is already open")
	// ErrClosed is returned when using a writer after Close.
	ErrClosed = errors.New("gelf: writer is closed")

	// ErrTooManyChunks rejects a message that would need more chunks
	// than the protocol allows.  No datagram is sent for it.
	ErrTooManyChunks = errors.New("gelf: message too large")
	// ErrChunkSize reports a datagram ceiling too small for the chunk header.
	ErrChunkSize = errors.New("gelf: chunk size too small")

	ErrMissingHost = errors.New("gelf: message has no host")
)
