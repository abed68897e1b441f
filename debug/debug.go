// Package debug is the producer-facing side of the log path: it formats
// messages, prefixes them with an uptime stamp and accumulates them in a
// linebuf.Buffer that flushes to every attached sink.
package debug

import (
	"sync"
	"sync/atomic"

	"devicediag-go/x/conv"
	"devicediag-go/x/fmtx"
	"devicediag-go/x/linebuf"
	"devicediag-go/x/timex"
)

const DefaultCapacity = 1024

type Config struct {
	Capacity   int         // buffered bytes before an automatic flush
	Timestamps bool        // prefix each message with "[%06d] " uptime ms
	AutoFlush  bool        // flush after every message
	Clock      timex.Clock // nil means timex.Millis
}

// Logger never blocks its caller. A call that finds the logger busy, which
// is what happens when a sink logs from inside a flush, is dropped and
// counted instead of waiting.
type Logger struct {
	mu      sync.Mutex
	buf     *linebuf.Buffer
	sinks   []linebuf.Sink
	scratch []byte
	cfg     Config

	dropped atomic.Uint32
}

func New(cfg Config) *Logger {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Clock == nil {
		cfg.Clock = timex.Millis
	}
	l := &Logger{cfg: cfg, scratch: make([]byte, 0, 128)}
	l.buf = linebuf.New(cfg.Capacity)
	l.buf.AttachSink(linebuf.SinkFunc(l.fanout))
	return l
}

// AddSink attaches another output. Sinks are flushed in attach order.
func (l *Logger) AddSink(s linebuf.Sink) bool {
	if !l.mu.TryLock() {
		return false
	}
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, s)
	return true
}

func (l *Logger) fanout(p []byte) {
	for _, s := range l.sinks {
		s.Flush(p)
	}
}

// Msg logs text as-is (callers terminate lines with '\n').
func (l *Logger) Msg(text string) bool {
	if !l.mu.TryLock() {
		l.dropped.Add(1)
		return false
	}
	defer l.mu.Unlock()
	l.scratch = l.stamp(l.scratch[:0])
	l.scratch = append(l.scratch, text...)
	return l.commit()
}

// Msgf formats straight into the logger's scratch space.
func (l *Logger) Msgf(format string, args ...any) bool {
	if !l.mu.TryLock() {
		l.dropped.Add(1)
		return false
	}
	defer l.mu.Unlock()
	l.scratch = l.stamp(l.scratch[:0])
	l.scratch = fmtx.Appendf(l.scratch, format, args...)
	return l.commit()
}

func (l *Logger) stamp(dst []byte) []byte {
	if !l.cfg.Timestamps {
		return dst
	}
	dst = append(dst, '[')
	dst = conv.AppendPadUint(dst, uint64(l.cfg.Clock()), 6)
	return append(dst, "] "...)
}

// commit runs with mu held.
func (l *Logger) commit() bool {
	if !l.buf.Append(l.scratch) {
		l.dropped.Add(1)
		return false
	}
	if l.cfg.AutoFlush {
		l.buf.Flush()
	}
	return true
}

// Flush pushes buffered text to the sinks now.
func (l *Logger) Flush() {
	if !l.mu.TryLock() {
		return
	}
	defer l.mu.Unlock()
	l.buf.Flush()
}

// Pending reports whether text is waiting for a flush.
func (l *Logger) Pending() bool {
	if !l.mu.TryLock() {
		return false
	}
	defer l.mu.Unlock()
	return l.buf.Available()
}

// Reconfigure applies new settings. A capacity change flushes what is
// buffered and swaps in a fresh buffer.
func (l *Logger) Reconfigure(cfg Config) bool {
	if !l.mu.TryLock() {
		return false
	}
	defer l.mu.Unlock()
	if cfg.Clock == nil {
		cfg.Clock = l.cfg.Clock
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = l.cfg.Capacity
	}
	if cfg.Capacity != l.buf.Cap() {
		l.buf.Flush()
		nb := linebuf.New(cfg.Capacity)
		nb.AttachSink(linebuf.SinkFunc(l.fanout))
		l.buf = nb
	}
	l.cfg = cfg
	return true
}

// Dropped is the number of messages lost to contention or overflow.
func (l *Logger) Dropped() uint32 { return l.dropped.Load() }

// Writer returns an io.Writer view that logs each write as one message.
func (l *Logger) Writer() *Writer { return &Writer{l: l} }

// Writer adapts a Logger to io.Writer for code that only knows writers.
type Writer struct{ l *Logger }

func (w *Writer) Write(p []byte) (int, error) {
	w.l.Msg(string(p))
	return len(p), nil
}
