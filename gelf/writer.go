// Copyright 2012 SocialCode. All rights reserved.
// Use of this source code is governed by the MIT
// license that can be found in the LICENSE file.

package gelf

import (
	"os"
	"path"
)

// Writer sends both discrete messages to a graylog2 server, and data
// from a stream-oriented interface (like the functions in log).
type Writer interface {
	Close() error
	Write([]byte) (int, error)
	WriteMessage(*Message) error
}

// MessageWriter is the part of Writer the logging adapters need.
type MessageWriter interface {
	WriteMessage(*Message) error
}

var _ Writer = (*UDPWriter)(nil)

// localHostname is the origin host used when none is configured.
func localHostname() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "localhost"
}

func processName() string {
	return path.Base(os.Args[0])
}
