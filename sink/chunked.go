package sink

import (
	"io"

	"github.com/eapache/queue"

	"devicediag-go/x/chunk"
)

const DefaultBacklog = 16

// Chunked feeds a transport that accepts at most limit bytes per write
// (a datagram, a websocket frame, an async TCP segment). Flushed text is
// cut at line boundaries with chunk.Split and consecutive lines are packed
// into one write while they fit. Lines longer than limit are split hard.
//
// A short write keeps the unsent rest in a bounded backlog, oldest dropped
// first, which Drain retries. New text queues behind an existing backlog
// so ordering is preserved.
type Chunked struct {
	w       io.Writer
	limit   int
	delim   byte
	max     int
	backlog *queue.Queue // of *[]byte
	dropped uint32
}

// NewChunked wraps w. limit <= 0 disables the per-write limit; backlog <= 0
// uses DefaultBacklog.
func NewChunked(w io.Writer, limit, backlog int) *Chunked {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	return &Chunked{w: w, limit: limit, delim: '\n', max: backlog, backlog: queue.New()}
}

// SetLimits applies a new per-write limit and backlog bound. A smaller
// backlog evicts the oldest queued chunks, counted as dropped.
func (c *Chunked) SetLimits(limit, backlog int) {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	c.limit = limit
	c.max = backlog
	for c.backlog.Length() > c.max {
		c.backlog.Remove()
		c.dropped++
	}
}

func (c *Chunked) Flush(p []byte) {
	c.Drain()
	if c.limit <= 0 {
		c.offer(p)
		return
	}
	// Pack adjacent lines: every slice from chunk.Split is contiguous with
	// the previous one, so a batch is just p[start:end].
	start, end := 0, 0
	s := chunk.Split(p, c.delim)
	for line, ok := s.Next(); ok; line, ok = s.Next() {
		if end+len(line)-start > c.limit && end > start {
			c.offer(p[start:end])
			start = end
		}
		end += len(line)
		for end-start > c.limit {
			c.offer(p[start : start+c.limit])
			start += c.limit
		}
	}
	if end > start {
		c.offer(p[start:end])
	}
	// The splitter never yields an unterminated tail; send it explicitly.
	for tail := chunk.Tail(p, c.delim); len(tail) > 0; {
		n := len(tail)
		if n > c.limit {
			n = c.limit
		}
		c.offer(tail[:n])
		tail = tail[n:]
	}
}

// Drain retries queued chunks until the transport refuses one.
func (c *Chunked) Drain() {
	for c.backlog.Length() > 0 {
		head := c.backlog.Peek().(*[]byte)
		n, _ := c.w.Write(*head)
		if n < len(*head) {
			*head = (*head)[n:]
			return
		}
		c.backlog.Remove()
	}
}

// Pending is the number of queued chunks.
func (c *Chunked) Pending() int { return c.backlog.Length() }

// Dropped is the number of chunks evicted from a full backlog.
func (c *Chunked) Dropped() uint32 { return c.dropped }

func (c *Chunked) offer(part []byte) {
	if len(part) == 0 {
		return
	}
	if c.backlog.Length() == 0 {
		n, _ := c.w.Write(part)
		if n >= len(part) {
			return
		}
		if n < 0 {
			n = 0
		}
		part = part[n:]
	}
	if c.backlog.Length() >= c.max {
		c.backlog.Remove()
		c.dropped++
	}
	// part aliases the logger's buffer, which is reused after the flush.
	cp := append([]byte(nil), part...)
	c.backlog.Add(&cp)
}
