package terminal

import (
	"errors"

	"devicediag-go/crash"
	"devicediag-go/errcode"
	"devicediag-go/netdiag"
)

// Flusher forces buffered log text out (debug.Logger).
type Flusher interface{ Flush() }

// Deps are the diagnostics the built-in commands act on. Nil members
// leave their commands unregistered.
type Deps struct {
	Crash *crash.Recorder
	Net   *netdiag.Inspector
	Log   Flusher
}

// RegisterBuiltins installs the diagnostics commands.
func (t *Terminal) RegisterBuiltins(d Deps) {
	if d.Crash != nil {
		rec := d.Crash
		t.Register(Command{Name: "crash", Help: "print the stored crash record", Run: func(out Output, _ []string) error {
			crash.ReportStored(out, rec)
			return nil
		}})
		t.Register(Command{Name: "crash.clear", Help: "invalidate the stored crash record", Run: func(out Output, _ []string) error {
			if err := rec.Clear(); err != nil {
				return err
			}
			out.Msg("crash record cleared\n")
			return nil
		}})
	}
	if d.Net != nil {
		ins := d.Net
		t.Register(Command{Name: "tcp.list", Help: "list TCP control blocks", Run: func(out Output, _ []string) error {
			n := ins.List(func(line string) { out.Msgf("%s\n", line) })
			out.Msgf("%d connections\n", n)
			return nil
		}})
		t.Register(Command{Name: "tcp.reset", Help: "abort every TCP connection", Run: func(out Output, _ []string) error {
			out.Msgf("aborted %d connections\n", ins.ResetAll())
			return nil
		}})
	}
	if d.Log != nil {
		lg := d.Log
		t.Register(Command{Name: "debug.flush", Help: "flush buffered log text now", Run: func(Output, []string) error {
			lg.Flush()
			return nil
		}})
	}
}

// IsUnknown reports whether err came from an unregistered command name.
func IsUnknown(err error) bool {
	var e *errcode.E
	return errors.As(err, &e) && e.C == errcode.UnknownCommand
}
