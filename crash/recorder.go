package crash

import (
	"errors"

	"devicediag-go/errcode"
	"devicediag-go/x/mathx"
	"devicediag-go/x/timex"
)

var ErrNoRecord = errors.New("crash: no record")

// Recorder owns the single record slot at base in st.
type Recorder struct {
	st       Storage
	base     int64
	traceMax int

	// scratch is sized for the largest record up front so the fault path
	// does not allocate.
	scratch []byte
	errs    uint32
}

// NewRecorder prepares the slot. traceMax <= 0 selects DefaultTraceMax.
func NewRecorder(st Storage, base int64, traceMax int) *Recorder {
	if traceMax <= 0 {
		traceMax = DefaultTraceMax
	}
	traceMax = mathx.Min(traceMax, MaxTraceMax)
	return &Recorder{
		st:       st,
		base:     base,
		traceMax: traceMax,
		scratch:  make([]byte, 0, RecordSize(traceMax)),
	}
}

func (r *Recorder) TraceMax() int { return r.traceMax }

// Errors counts storage failures seen by Record and Clear.
func (r *Recorder) Errors() uint32 { return r.errs }

// Record overwrites the slot with c. It runs on the fault path, so it
// never panics and never returns an error: a failed write just leaves the
// previous slot contents in place.
func (r *Recorder) Record(c Context) (ok bool) {
	defer func() {
		if recover() != nil {
			r.errs++
			ok = false
		}
	}()
	if r == nil || r.st == nil {
		return false
	}
	r.scratch = Encode(r.scratch[:0], c, r.traceMax)
	if _, err := r.st.WriteAt(r.scratch, r.base); err != nil {
		r.errs++
		return false
	}
	return true
}

// Load reads the slot back. A slot that does not hold a valid record
// yields ErrNoRecord.
func (r *Recorder) Load() (Context, error) {
	var hdr [HeaderSize]byte
	if _, err := r.st.ReadAt(hdr[:], r.base); err != nil {
		return Context{}, errcode.Wrap(errcode.Storage, "crash.load", err)
	}
	n := traceLen(hdr[:])
	if n > r.traceMax {
		return Context{}, ErrNoRecord
	}
	p := make([]byte, RecordSize(n))
	if _, err := r.st.ReadAt(p, r.base); err != nil {
		return Context{}, ErrNoRecord
	}
	c, ok := Decode(p, r.traceMax)
	if !ok {
		return Context{}, ErrNoRecord
	}
	return c, nil
}

// Clear invalidates the slot by zeroing the trailer of the record it
// holds. An empty slot is left as is.
func (r *Recorder) Clear() error {
	var hdr [HeaderSize]byte
	if _, err := r.st.ReadAt(hdr[:], r.base); err != nil {
		r.errs++
		return errcode.Wrap(errcode.Storage, "crash.clear", err)
	}
	n := traceLen(hdr[:])
	if n <= r.traceMax {
		var zero [TrailerSize]byte
		if _, err := r.st.WriteAt(zero[:], r.base+int64(HeaderSize+n)); err != nil {
			r.errs++
			return errcode.Wrap(errcode.Storage, "crash.clear", err)
		}
	}
	return nil
}

// Catch records a panicking goroutine's fault and re-panics. Use it as
//
//	defer rec.Catch()
func (r *Recorder) Catch() {
	if v := recover(); v != nil {
		r.Record(FromPanic(timex.Millis()))
		panic(v)
	}
}
