package crash

import (
	"encoding/binary"

	"github.com/zeebo/blake3"

	"devicediag-go/x/mathx"
)

// Context is the fault state handed over by the platform's fault hook.
type Context struct {
	Time       uint32 `cbor:"1,keyasint"` // ms since boot
	Reason     uint8  `cbor:"2,keyasint"`
	Cause      uint8  `cbor:"3,keyasint"`
	EPC1       uint32 `cbor:"4,keyasint"`
	EPC2       uint32 `cbor:"5,keyasint"`
	EPC3       uint32 `cbor:"6,keyasint"`
	ExcVAddr   uint32 `cbor:"7,keyasint"`
	DEPC       uint32 `cbor:"8,keyasint"`
	StackStart uint32 `cbor:"9,keyasint"`
	StackEnd   uint32 `cbor:"10,keyasint"`
	Trace      []byte `cbor:"11,keyasint"`
}

// checksumKey domain-separates record checksums; zero-padded ASCII.
var checksumKey = [32]byte{
	'd', 'e', 'v', 'i', 'c', 'e', 'd', 'i', 'a', 'g', '.', 'c', 'r', 'a', 's', 'h',
	'.', 'r', 'e', 'c', 'o', 'r', 'd', 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

var le = binary.LittleEndian

// Encode appends the binary record for c to dst. At most traceMax trace
// bytes are kept; the length field records what was actually copied.
func Encode(dst []byte, c Context, traceMax int) []byte {
	traceMax = mathx.Clamp(traceMax, 0, MaxTraceMax)
	trace := c.Trace[:mathx.Min(len(c.Trace), traceMax)]

	start := len(dst)
	var hdr [HeaderSize]byte
	le.PutUint32(hdr[offTime:], c.Time)
	hdr[offReason] = c.Reason
	hdr[offCause] = c.Cause
	le.PutUint32(hdr[offEPC1:], c.EPC1)
	le.PutUint32(hdr[offEPC2:], c.EPC2)
	le.PutUint32(hdr[offEPC3:], c.EPC3)
	le.PutUint32(hdr[offExcVAddr:], c.ExcVAddr)
	le.PutUint32(hdr[offDEPC:], c.DEPC)
	le.PutUint32(hdr[offStackStart:], c.StackStart)
	le.PutUint32(hdr[offStackEnd:], c.StackEnd)
	le.PutUint16(hdr[offTraceLen:], uint16(len(trace)))

	dst = append(dst, hdr[:]...)
	dst = append(dst, trace...)
	dst = le.AppendUint32(dst, Magic)
	return le.AppendUint32(dst, checksum(dst[start:]))
}

// Decode parses a record from p. It reports false when p does not hold a
// valid record: too short, trace length above traceMax, bad magic or bad
// checksum. The returned trace is a copy.
func Decode(p []byte, traceMax int) (Context, bool) {
	if len(p) < HeaderSize {
		return Context{}, false
	}
	n := int(le.Uint16(p[offTraceLen:]))
	if n > traceMax || len(p) < RecordSize(n) {
		return Context{}, false
	}
	body := p[:HeaderSize+n]
	tr := p[HeaderSize+n:]
	if le.Uint32(tr) != Magic || le.Uint32(tr[4:]) != checksum(body) {
		return Context{}, false
	}
	return Context{
		Time:       le.Uint32(p[offTime:]),
		Reason:     p[offReason],
		Cause:      p[offCause],
		EPC1:       le.Uint32(p[offEPC1:]),
		EPC2:       le.Uint32(p[offEPC2:]),
		EPC3:       le.Uint32(p[offEPC3:]),
		ExcVAddr:   le.Uint32(p[offExcVAddr:]),
		DEPC:       le.Uint32(p[offDEPC:]),
		StackStart: le.Uint32(p[offStackStart:]),
		StackEnd:   le.Uint32(p[offStackEnd:]),
		Trace:      append([]byte(nil), p[offTrace:offTrace+n]...),
	}, true
}

// traceLen peeks at the length field of a header.
func traceLen(hdr []byte) int { return int(le.Uint16(hdr[offTraceLen:])) }

func checksum(p []byte) uint32 {
	h, err := blake3.NewKeyed(checksumKey[:])
	if err != nil {
		return 0
	}
	_, _ = h.Write(p)
	var sum [32]byte
	return le.Uint32(h.Sum(sum[:0]))
}
