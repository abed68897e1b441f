//go:build rp2040 || rp2350

package crash

// FromPanic builds a fault context for a Go panic. The runtime gives no
// stack text on the microcontroller, so only the time and reason are kept.
func FromPanic(uptimeMs uint32) Context {
	return Context{Time: uptimeMs, Reason: ReasonPanic}
}
