// Package sink holds the flush destinations a debug.Logger fans out to.
// Concrete byte transports stay outside; sinks only adapt them.
package sink

import (
	"io"
	"sync/atomic"
)

// Writer forwards each flush to an io.Writer in a single call. Write
// errors are counted, never returned: a failing transport must not disturb
// the code being observed.
type Writer struct {
	w      io.Writer
	errors atomic.Uint32
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

func (s *Writer) Flush(p []byte) {
	if len(p) == 0 {
		return
	}
	if _, err := s.w.Write(p); err != nil {
		s.errors.Add(1)
	}
}

func (s *Writer) Errors() uint32 { return s.errors.Load() }
