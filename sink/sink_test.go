package sink

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// limitedWriter records each write and accepts at most room bytes per call
// (room < 0 means unlimited).
type limitedWriter struct {
	writes []string
	room   int
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if w.room >= 0 && n > w.room {
		n = w.room
	}
	if n > 0 {
		w.writes = append(w.writes, string(p[:n]))
	}
	if n < len(p) {
		return n, errors.New("short write")
	}
	return n, nil
}

func TestChunkedPacksLinesUpToLimit(t *testing.T) {
	w := &limitedWriter{room: -1}
	c := NewChunked(w, 10, 4)
	c.Flush([]byte("aaaa\nbbbb\ncc\n"))
	want := []string{"aaaa\nbbbb\n", "cc\n"}
	if strings.Join(w.writes, "|") != strings.Join(want, "|") {
		t.Fatalf("writes = %q, want %q", w.writes, want)
	}
}

func TestChunkedSplitsLongLinesAndKeepsTail(t *testing.T) {
	w := &limitedWriter{room: -1}
	c := NewChunked(w, 4, 4)
	c.Flush([]byte("0123456789\nxy"))
	got := strings.Join(w.writes, "")
	if got != "0123456789\nxy" {
		t.Fatalf("bytes lost: %q", got)
	}
	for _, wr := range w.writes {
		if len(wr) > 4 {
			t.Fatalf("write %q exceeds limit", wr)
		}
	}
}

func TestChunkedBacklogOnShortWrite(t *testing.T) {
	w := &limitedWriter{room: 3}
	c := NewChunked(w, 0, 2)
	c.Flush([]byte("hello\n"))
	if c.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", c.Pending())
	}
	c.Flush([]byte("next\n")) // queued behind the rest of "hello\n"
	w.room = -1
	c.Drain()
	if got := strings.Join(w.writes, ""); got != "hello\nnext\n" {
		t.Fatalf("order broken: %q", got)
	}
	if c.Pending() != 0 {
		t.Fatalf("pending = %d after drain", c.Pending())
	}
}

func TestChunkedBacklogDropsOldest(t *testing.T) {
	w := &limitedWriter{room: 0}
	c := NewChunked(w, 0, 2)
	c.Flush([]byte("1\n"))
	c.Flush([]byte("2\n"))
	c.Flush([]byte("3\n"))
	if c.Pending() != 2 || c.Dropped() != 1 {
		t.Fatalf("pending=%d dropped=%d", c.Pending(), c.Dropped())
	}
	w.room = -1
	c.Drain()
	if got := strings.Join(w.writes, ""); got != "2\n3\n" {
		t.Fatalf("drained %q", got)
	}
}

func TestChunkedCopiesQueuedBytes(t *testing.T) {
	w := &limitedWriter{room: 0}
	c := NewChunked(w, 0, 2)
	buf := []byte("abc\n")
	c.Flush(buf)
	copy(buf, "zzz\n") // the logger reuses its buffer after a flush
	w.room = -1
	c.Drain()
	if len(w.writes) != 1 || w.writes[0] != "abc\n" {
		t.Fatalf("writes = %q", w.writes)
	}
}

func TestChunkedSetLimits(t *testing.T) {
	w := &limitedWriter{room: 0}
	c := NewChunked(w, 0, 4)
	for _, line := range []string{"1\n", "2\n", "3\n"} {
		c.Flush([]byte(line))
	}
	c.SetLimits(4, 1)
	if c.Pending() != 1 || c.Dropped() != 2 {
		t.Fatalf("pending=%d dropped=%d after shrinking backlog", c.Pending(), c.Dropped())
	}
	w.room = -1
	c.Drain()
	w.writes = nil
	c.Flush([]byte("abcdefgh\n"))
	for _, wr := range w.writes {
		if len(wr) > 4 {
			t.Fatalf("write %q exceeds new limit", wr)
		}
	}
	if got := strings.Join(w.writes, ""); got != "abcdefgh\n" {
		t.Fatalf("bytes lost: %q", got)
	}
}

func TestWriterCountsErrors(t *testing.T) {
	w := &limitedWriter{room: 1}
	s := NewWriter(w)
	s.Flush([]byte("ab"))
	s.Flush(nil)
	if s.Errors() != 1 {
		t.Fatalf("errors = %d", s.Errors())
	}
}

func TestRingPump(t *testing.T) {
	r := NewRing(16)
	r.Flush([]byte("serial out\n"))
	if r.Buffered() != 11 {
		t.Fatalf("buffered = %d", r.Buffered())
	}

	var out bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Pump(ctx, &syncWriter{w: &out, ch: done})
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pump did not write")
	}
	cancel()
	if out.String() != "serial out\n" {
		t.Fatalf("pumped %q", out.String())
	}
}

// syncWriter signals after the first write so the test can stop the pump.
type syncWriter struct {
	w  *bytes.Buffer
	ch chan struct{}
}

func (s *syncWriter) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	select {
	case <-s.ch:
	default:
		close(s.ch)
	}
	return n, err
}
