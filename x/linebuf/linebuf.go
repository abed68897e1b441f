// x/linebuf/linebuf.go
package linebuf

// Sink consumes the bytes held by a Buffer when it flushes.
// p is only valid for the duration of the call.
type Sink interface {
	Flush(p []byte)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(p []byte)

func (f SinkFunc) Flush(p []byte) { f(p) }

// Buffer accumulates text in a fixed region and hands it to a Sink when
// full or on demand. It is not safe for concurrent use; callers running
// more than one goroutine must serialise access (see debug.Logger).
//
// Invariants: 0 <= off <= cap; storage[off] is always a NUL terminator;
// no append lands while a flush is in progress.
type Buffer struct {
	storage []byte
	off     int
	locked  bool
	sink    Sink
}

// New allocates a buffer holding up to capacity bytes of text plus one
// terminator byte. A non-positive capacity yields a buffer that accepts
// nothing but empty appends.
func New(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{storage: make([]byte, capacity+1)}
}

// AttachSink replaces the flush destination. Buffered content is kept.
func (b *Buffer) AttachSink(s Sink) { b.sink = s }

func (b *Buffer) Cap() int        { return len(b.storage) - 1 }
func (b *Buffer) Len() int        { return b.off }
func (b *Buffer) Available() bool { return b.off > 0 }
func (b *Buffer) Locked() bool    { return b.locked }

// Bytes returns the buffered text without the terminator. The slice
// aliases internal storage and is invalidated by the next Append or Flush.
func (b *Buffer) Bytes() []byte { return b.storage[:b.off] }

// Reset drops buffered content without calling the sink.
func (b *Buffer) Reset() {
	b.off = 0
	b.storage[0] = 0
}

// Append copies text into the buffer, flushing existing content first when
// text would not fit. It reports false when called during a flush, or when
// text does not fit and there is no sink to make room; the buffer is left
// unchanged in both cases. Text longer than the whole capacity is cut to
// capacity once the buffer is empty.
func (b *Buffer) Append(text []byte) bool {
	if b.locked {
		return false
	}
	capacity := b.Cap()
	if b.off+len(text) > capacity {
		if b.sink == nil {
			return false
		}
		if b.off > 0 {
			b.Flush()
		}
		if len(text) > capacity {
			text = text[:capacity]
		}
	}
	copy(b.storage[b.off:], text)
	b.off += len(text)
	b.storage[b.off] = 0
	return true
}

// AppendString is Append for string input.
func (b *Buffer) AppendString(s string) bool {
	if b.locked {
		return false
	}
	return b.Append([]byte(s))
}

// Flush hands the buffered bytes to the sink and empties the buffer.
// Without a sink it does nothing. Appends issued by the sink while it runs
// are rejected.
func (b *Buffer) Flush() {
	if b.sink == nil || b.locked {
		return
	}
	b.locked = true
	b.sink.Flush(b.storage[:b.off])
	b.locked = false
	b.Reset()
}
