// Package terminal is the operator's command shell on the debug console.
// Input arrives as raw bytes, is assembled into lines, tokenised like a
// shell and dispatched to registered commands. Output goes through the
// same logger as every other diagnostic.
package terminal

import (
	"context"
	"sort"
	"strings"

	"github.com/google/shlex"

	"devicediag-go/errcode"
	"devicediag-go/x/chunk"
)

const (
	DefaultMaxLine = 128
	prompt         = "> "
)

// Output is the slice of debug.Logger the terminal writes through.
type Output interface {
	Msg(text string) bool
	Msgf(format string, args ...any) bool
}

// Command is one operator verb. Run receives the arguments after the name.
type Command struct {
	Name string
	Help string
	Run  func(out Output, args []string) error
}

type Terminal struct {
	out     Output
	cmds    map[string]Command
	pending []byte
	maxLine int
	errs    uint32
}

func New(out Output, maxLine int) *Terminal {
	if maxLine <= 0 {
		maxLine = DefaultMaxLine
	}
	t := &Terminal{
		out:     out,
		cmds:    make(map[string]Command),
		pending: make([]byte, 0, maxLine),
		maxLine: maxLine,
	}
	t.Register(Command{Name: "help", Help: "list commands", Run: t.help})
	return t
}

// Register adds or replaces a command.
func (t *Terminal) Register(c Command) {
	if c.Name == "" || c.Run == nil {
		return
	}
	t.cmds[c.Name] = c
}

// Errors counts command lines that failed.
func (t *Terminal) Errors() uint32 { return t.errs }

// Feed consumes raw input. Every complete line is executed; an
// unterminated tail is kept for the next call. It returns the number of
// lines executed.
func (t *Terminal) Feed(p []byte) int {
	t.pending = append(t.pending, p...)
	n := chunk.ForEach(t.pending, '\n', func(line []byte) int {
		t.run(string(line))
		return 1
	})
	tail := chunk.Tail(t.pending, '\n')
	if len(tail) > t.maxLine {
		t.out.Msgf("terminal: line longer than %d bytes discarded\n", t.maxLine)
		tail = nil
	}
	t.pending = append(t.pending[:0], tail...)
	return n
}

func (t *Terminal) run(line string) {
	if err := t.Exec(line); err != nil {
		t.errs++
		t.out.Msgf("error: %s\n", err.Error())
	}
}

// Exec runs a single command line. Blank lines are ignored.
func (t *Terminal) Exec(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	args, err := shlex.Split(line)
	if err != nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "terminal", Err: err}
	}
	if len(args) == 0 {
		return nil
	}
	c, ok := t.cmds[args[0]]
	if !ok {
		return &errcode.E{C: errcode.UnknownCommand, Op: "terminal", Msg: args[0]}
	}
	return c.Run(t.out, args[1:])
}

func (t *Terminal) help(out Output, _ []string) error {
	names := make([]string, 0, len(t.cmds))
	for name := range t.cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out.Msgf("  %s: %s\n", name, t.cmds[name].Help)
	}
	return nil
}

// Reader is the receive side of a serial port (uartx.UART on the device).
type Reader interface {
	RecvSomeContext(ctx context.Context, buf []byte) (int, error)
}

// ReadLoop copies input from r to out, one chunk per receive, until ctx is
// cancelled or r fails. The owner of the Terminal feeds the chunks from its
// own loop so that command output never races other log producers.
func ReadLoop(ctx context.Context, r Reader, out chan<- []byte) error {
	buf := make([]byte, 64)
	for {
		n, err := r.RecvSomeContext(ctx, buf)
		if n > 0 {
			select {
			case out <- append([]byte(nil), buf[:n]...):
			case <-ctx.Done():
				return nil
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// Prompt prints the input prompt.
func (t *Terminal) Prompt() { t.out.Msg(prompt) }
