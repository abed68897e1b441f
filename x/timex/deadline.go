package timex

// Deadline is a polled millisecond timer: armed with a timeout, it reports
// expiry once the clock has advanced by at least that much since the last
// feed. Elapsed time is computed with unsigned subtraction, so it stays
// correct across a counter wrap.
type Deadline struct {
	clock   Clock
	start   uint32
	timeout uint32
	active  bool
}

// NewDeadline returns a deadline armed now. A nil clock means Millis.
func NewDeadline(clock Clock, timeoutMs uint32) Deadline {
	if clock == nil {
		clock = Millis
	}
	return Deadline{clock: clock, start: clock(), timeout: timeoutMs, active: true}
}

// Expired reports whether the deadline is armed and has elapsed.
func (d *Deadline) Expired() bool {
	return d.active && d.now()-d.start >= d.timeout
}

// Feed rearms the deadline from the current time, keeping its timeout.
func (d *Deadline) Feed() {
	d.start = d.now()
	d.active = true
}

// Reset rearms with a new timeout.
func (d *Deadline) Reset(timeoutMs uint32) {
	d.Feed()
	d.timeout = timeoutMs
}

// Deactivate disarms the deadline; Expired stays false until the next Feed.
func (d *Deadline) Deactivate() {
	d.active = false
	d.timeout = 0
}

func (d *Deadline) Active() bool    { return d.active }
func (d *Deadline) Timeout() uint32 { return d.timeout }
func (d *Deadline) Start() uint32   { return d.start }

// Remaining returns milliseconds left before expiry, 0 once expired or
// when disarmed.
func (d *Deadline) Remaining() uint32 {
	if !d.active {
		return 0
	}
	el := d.now() - d.start
	if el >= d.timeout {
		return 0
	}
	return d.timeout - el
}

func (d *Deadline) now() uint32 {
	if d.clock == nil {
		d.clock = Millis
	}
	return d.clock()
}
