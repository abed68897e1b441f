package chunk

import (
	"bytes"
	"iter"
)

// Splitter walks data one delimiter-terminated slice at a time. It is
// single-pass: once exhausted it stays exhausted.
type Splitter struct {
	data  []byte
	delim byte
	off   int
}

// Split returns a Splitter over data. No work happens until Next.
func Split(data []byte, delim byte) *Splitter {
	return &Splitter{data: data, delim: delim}
}

// Next returns the next slice, ending at and including the delimiter.
// Bytes after the last delimiter are never yielded; see Tail.
func (s *Splitter) Next() ([]byte, bool) {
	i := bytes.IndexByte(s.data[s.off:], s.delim)
	if i < 0 {
		s.off = len(s.data)
		return nil, false
	}
	part := s.data[s.off : s.off+i+1]
	s.off += i + 1
	return part, true
}

// All adapts the Splitter to a range-over-func sequence. Ranging twice
// continues where the first range stopped.
func (s *Splitter) All() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for {
			part, ok := s.Next()
			if !ok || !yield(part) {
				return
			}
		}
	}
}

// Tail returns the bytes a Splitter leaves behind: everything after the
// last delimiter, or all of data when it holds none.
func Tail(data []byte, delim byte) []byte {
	i := bytes.LastIndexByte(data, delim)
	if i == len(data)-1 {
		return nil
	}
	return data[i+1:]
}

// ForEach calls fn for every delimiter-terminated slice of data and
// returns the sum of fn's results.
func ForEach(data []byte, delim byte, fn func(p []byte) int) int {
	total := 0
	s := Split(data, delim)
	for part, ok := s.Next(); ok; part, ok = s.Next() {
		total += fn(part)
	}
	return total
}
