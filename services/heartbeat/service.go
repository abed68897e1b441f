package heartbeat

import (
	"math"

	"devicediag-go/bus"
	"devicediag-go/services/config"
	"devicediag-go/x/mathx"
	"devicediag-go/x/timex"
)

// Logger is the slice of debug.Logger the heartbeat needs.
type Logger interface {
	Msgf(format string, args ...any) bool
	Flush()
	Dropped() uint32
}

// Service logs a periodic liveness line and forces a flush so that
// buffered diagnostics reach the sinks even when nothing else happens.
type Service struct {
	log   Logger
	clock timex.Clock
	dl    timex.Deadline
	beats mathx.Counter[uint32]
}

// New arms a heartbeat every intervalS seconds (0 disables it) and follows
// config.Diag updates published on r.
func New(r *bus.Registry, log Logger, clock timex.Clock, intervalS int) *Service {
	if clock == nil {
		clock = timex.Millis
	}
	s := &Service{
		log:   log,
		clock: clock,
		beats: mathx.NewCounter[uint32](0, math.MaxUint32),
	}
	s.dl = timex.NewDeadline(clock, 0)
	s.SetInterval(intervalS)
	if r != nil {
		bus.Subscribe(r, func(_ bus.Source, d config.Diag) { s.SetInterval(d.HeartbeatS) })
	}
	return s
}

// MaxIntervalS keeps the interval well inside the 32-bit millisecond clock.
const MaxIntervalS = 86400

// SetInterval re-arms the deadline from now. Intervals above MaxIntervalS
// are clamped.
func (s *Service) SetInterval(sec int) {
	if sec <= 0 {
		s.dl.Deactivate()
		return
	}
	s.dl.Reset(uint32(mathx.Min(sec, MaxIntervalS)) * 1000)
}

func (s *Service) Interval() uint32 { return s.dl.Timeout() / 1000 }
func (s *Service) Beats() uint32    { return s.beats.Current }

// Poll emits a heartbeat when the deadline has passed. Call it from the
// main loop; it returns true when it fired.
func (s *Service) Poll() bool {
	if !s.dl.Active() || !s.dl.Expired() {
		return false
	}
	s.dl.Feed()
	s.beats.Next()
	s.log.Msgf("Info: heartbeat %d uptime=%ds dropped=%d\n", s.beats.Current, s.clock()/1000, s.log.Dropped())
	s.log.Flush()
	return true
}
