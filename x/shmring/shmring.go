package shmring

import (
	"sync/atomic"
)

// Ring is a single-producer, single-consumer byte ring. The producer and
// consumer may live on different goroutines; each side only stores its own
// index.
type Ring struct {
	buf  []byte
	mask uint32
	rd   atomic.Uint32 // consumer index (monotonic)
	wr   atomic.Uint32 // producer index (monotonic)

	dropped atomic.Uint32

	readable chan struct{} // at most one pending wake-up
}

// New allocates a ring of the given power-of-two size (>= 2).
func New(size int) *Ring {
	if size < 2 || (size&(size-1)) != 0 {
		panic("shmring: size must be power of two >= 2")
	}
	return &Ring{
		buf:      make([]byte, size),
		mask:     uint32(size - 1),
		readable: make(chan struct{}, 1),
	}
}

func (r *Ring) size() uint32 { return uint32(len(r.buf)) }

func (r *Ring) Space() int {
	return int(r.size() - (r.wr.Load() - r.rd.Load()))
}

func (r *Ring) Available() int {
	return int(r.wr.Load() - r.rd.Load())
}

// Dropped is the number of bytes WriteFrom could not place.
func (r *Ring) Dropped() uint32 { return r.dropped.Load() }

// WriteFrom copies as much of src as fits and never blocks. Bytes that do
// not fit are counted in Dropped.
func (r *Ring) WriteFrom(src []byte) (n int) {
	if len(src) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	beforeAvail := wr - rd
	space := int(r.size() - beforeAvail)
	n = len(src)
	if n > space {
		r.dropped.Add(uint32(n - space))
		n = space
	}
	if n == 0 {
		return 0
	}

	wrIdx := wr & r.mask
	first := int(r.size() - wrIdx)
	if first > n {
		first = n
	}
	copy(r.buf[wrIdx:wrIdx+uint32(first)], src[:first])
	if second := n - first; second > 0 {
		copy(r.buf[:second], src[first:n])
	}
	r.wr.Store(wr + uint32(n)) // release

	// Signal every write. The channel holds one token, so this coalesces,
	// and a consumer that read up to a stale wr still gets woken.
	select {
	case r.readable <- struct{}{}:
	default:
	}
	return n
}

// ReadInto copies up to len(dst) buffered bytes out of the ring.
func (r *Ring) ReadInto(dst []byte) (n int) {
	if len(dst) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load() // acquire
	n = int(wr - rd)
	if n <= 0 {
		return 0
	}
	if len(dst) < n {
		n = len(dst)
	}

	rdIdx := rd & r.mask
	first := int(r.size() - rdIdx)
	if first > n {
		first = n
	}
	copy(dst[:first], r.buf[rdIdx:rdIdx+uint32(first)])
	if second := n - first; second > 0 {
		copy(dst[first:n], r.buf[:second])
	}
	r.rd.Store(rd + uint32(n)) // release
	return n
}

// Readable fires after writes. Consumers drain until ReadInto returns 0
// and then wait; a write racing that drain leaves a token behind.
func (r *Ring) Readable() <-chan struct{} { return r.readable }
