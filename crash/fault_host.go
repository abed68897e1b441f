//go:build !(rp2040 || rp2350)

package crash

import (
	"runtime/debug"
)

// FromPanic builds a fault context for a Go panic on the host build. There
// are no CPU registers to capture; the trace is the goroutine stack text.
func FromPanic(uptimeMs uint32) Context {
	return Context{
		Time:   uptimeMs,
		Reason: ReasonPanic,
		Trace:  debug.Stack(),
	}
}
