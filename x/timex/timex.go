package timex

import "time"

var boot = time.Now()

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// Millis returns milliseconds since process start, wrapping at 2^32 like
// a hardware tick counter.
func Millis() uint32 { return uint32(time.Since(boot).Milliseconds()) }

// Clock is a wrapping millisecond source. Tests substitute a fake.
type Clock func() uint32
