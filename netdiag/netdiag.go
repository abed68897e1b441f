// Package netdiag inspects, and on request tears down, the TCP connection
// tables owned by the network stack. It never allocates or frees the
// stack's control blocks: it walks the lists the stack hands it and calls
// the stack's own abort primitive.
package netdiag

import (
	"iter"
	"net/netip"

	"devicediag-go/x/fmtx"
)

// State mirrors the TCP state machine as kept in a control block.
type State uint8

const (
	Closed State = iota
	Listen
	SynSent
	SynRcvd
	Established
	FinWait1
	FinWait2
	CloseWait
	Closing
	LastAck
	TimeWait
)

var stateNames = [...]string{
	"CLOSED",
	"LISTEN",
	"SYN_SENT",
	"SYN_RCVD",
	"ESTABLISHED",
	"FIN_WAIT_1",
	"FIN_WAIT_2",
	"CLOSE_WAIT",
	"CLOSING",
	"LAST_ACK",
	"TIME_WAIT",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// Conn is a value snapshot of one control block.
type Conn struct {
	State  State
	Local  netip.AddrPort
	Remote netip.AddrPort
	SndNxt uint32 // next sequence number to send
	RcvNxt uint32 // next sequence number expected
}

// AppendLine appends the listing form of c, without a newline.
func (c Conn) AppendLine(dst []byte) []byte {
	return fmtx.Appendf(dst, "state=%s local=%s:%d remote=%s:%d next_send=%d next_recv=%d",
		c.State.String(),
		c.Local.Addr().String(), c.Local.Port(),
		c.Remote.Addr().String(), c.Remote.Port(),
		c.SndNxt, c.RcvNxt)
}

func (c Conn) String() string { return string(c.AppendLine(nil)) }

// PCB is one node of a stack-owned, nil-terminated connection list.
// Next must return a nil interface (not a typed nil) at the end.
type PCB interface {
	Snapshot() Conn
	Next() PCB
}

// Stack exposes the heads of the three lists and the stack's abort.
// Abort unlinks and releases the block; the caller must not touch it after.
type Stack interface {
	Bound() PCB
	Active() PCB
	TimeWait() PCB
	Abort(PCB)
}

// Inspector reads and resets a Stack's connection lists.
type Inspector struct {
	stack Stack
}

func NewInspector(s Stack) *Inspector { return &Inspector{stack: s} }

func (i *Inspector) heads() [3]PCB {
	return [3]PCB{i.stack.Bound(), i.stack.Active(), i.stack.TimeWait()}
}

// All yields a snapshot of every connection: bound list, then active, then
// time-wait. It does not mutate the lists.
func (i *Inspector) All() iter.Seq[Conn] {
	return func(yield func(Conn) bool) {
		for _, head := range i.heads() {
			for n := head; n != nil; n = n.Next() {
				if !yield(n.Snapshot()) {
					return
				}
			}
		}
	}
}

// List emits one formatted line per connection and returns the count.
func (i *Inspector) List(emit func(line string)) int {
	count := 0
	line := make([]byte, 0, 128)
	for c := range i.All() {
		line = c.AppendLine(line[:0])
		emit(string(line))
		count++
	}
	return count
}

// ResetAll aborts every connection on all three lists and returns how many
// it aborted. It is immediate and destructive; there is no dry run.
func (i *Inspector) ResetAll() int {
	count := 0
	for _, head := range i.heads() {
		for n := head; n != nil; {
			// Abort releases n, so step first.
			next := n.Next()
			i.stack.Abort(n)
			count++
			n = next
		}
	}
	return count
}
