package sink

import (
	"context"
	"io"

	"devicediag-go/x/shmring"
)

// Ring decouples flushing from a slow byte transport (a UART): Flush only
// copies into a ring, and Pump moves bytes to the transport at its own
// pace. Bytes that do not fit in the ring are dropped and counted by the
// ring.
type Ring struct {
	r *shmring.Ring
}

// NewRing allocates a ring of the given power-of-two size.
func NewRing(size int) *Ring { return &Ring{r: shmring.New(size)} }

func (s *Ring) Flush(p []byte) { s.r.WriteFrom(p) }

func (s *Ring) Buffered() int   { return s.r.Available() }
func (s *Ring) Dropped() uint32 { return s.r.Dropped() }

// PumpOnce moves up to len(scratch) bytes into w and returns how many
// were read from the ring.
func (s *Ring) PumpOnce(w io.Writer, scratch []byte) int {
	n := s.r.ReadInto(scratch)
	if n > 0 {
		_, _ = w.Write(scratch[:n])
	}
	return n
}

// Pump drains the ring into w until ctx is cancelled. It is the ring's
// only consumer.
func (s *Ring) Pump(ctx context.Context, w io.Writer) {
	scratch := make([]byte, 64)
	for {
		for s.PumpOnce(w, scratch) > 0 {
		}
		select {
		case <-ctx.Done():
			return
		case <-s.r.Readable():
		}
	}
}
