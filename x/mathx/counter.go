package mathx

import "golang.org/x/exp/constraints"

// Counter tracks monotonic progress from Start towards Stop and saturates
// there. Periodic drivers use it for "do this N times" bookkeeping.
type Counter[T constraints.Unsigned] struct {
	Current T
	Start   T
	Stop    T
}

func NewCounter[T constraints.Unsigned](start, stop T) Counter[T] {
	return Counter[T]{Current: start, Start: start, Stop: stop}
}

// Next advances by one unless already at Stop.
func (c *Counter[T]) Next() {
	if c.Current < c.Stop {
		c.Current++
	}
}

func (c *Counter[T]) Done() bool { return c.Current >= c.Stop }
func (c *Counter[T]) Reset()     { c.Current = c.Start }

// Remaining is the number of Next calls left before Done.
func (c *Counter[T]) Remaining() T {
	if c.Current >= c.Stop {
		return 0
	}
	return c.Stop - c.Current
}
