package crash

import (
	"io"

	"devicediag-go/errcode"
)

// Storage is the non-volatile region holding the record slot.
type Storage interface {
	io.ReaderAt
	io.WriterAt
}

// MemStorage is a RAM-backed Storage that starts out erased (0xFF), like
// fresh flash. Hosts and tests use it; a retained-RAM section would too.
type MemStorage struct {
	b []byte
}

func NewMemStorage(size int) *MemStorage {
	b := make([]byte, size)
	for i := range b {
		b[i] = 0xFF
	}
	return &MemStorage{b: b}
}

func (m *MemStorage) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(m.b)) {
		return 0, errcode.Storage
	}
	n := copy(p, m.b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *MemStorage) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(m.b)) {
		return 0, errcode.Storage
	}
	return copy(m.b[off:], p), nil
}

// Bytes exposes the raw image, e.g. for dumping to a file.
func (m *MemStorage) Bytes() []byte { return m.b }
