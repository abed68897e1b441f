// Package pcbtest is an in-memory three-list connection table for tests
// and the host build, shaped like a TCP/IP stack's control block lists.
package pcbtest

import (
	"net/netip"

	"devicediag-go/netdiag"
)

// Node is a control block in one of the Table's lists.
type Node struct {
	conn    netdiag.Conn
	next    *Node
	aborted bool
}

func (n *Node) Snapshot() netdiag.Conn { return n.conn }

// Next returns a nil interface at the end of the list.
func (n *Node) Next() netdiag.PCB {
	if n.next == nil {
		return nil
	}
	return n.next
}

func (n *Node) Aborted() bool { return n.aborted }

// List identifies one of the Table's lists.
type List int

const (
	Bound List = iota
	Active
	TimeWait
)

// Table owns three nil-terminated lists.
type Table struct {
	heads  [3]*Node
	Aborts []netdiag.Conn
}

func (t *Table) head(l List) netdiag.PCB {
	if t.heads[l] == nil {
		return nil
	}
	return t.heads[l]
}

func (t *Table) Bound() netdiag.PCB    { return t.head(Bound) }
func (t *Table) Active() netdiag.PCB   { return t.head(Active) }
func (t *Table) TimeWait() netdiag.PCB { return t.head(TimeWait) }

// Add pushes c at the head of list l, like a stack registering a pcb.
func (t *Table) Add(l List, c netdiag.Conn) *Node {
	n := &Node{conn: c, next: t.heads[l]}
	t.heads[l] = n
	return n
}

// Abort unlinks p from whichever list holds it and poisons it.
func (t *Table) Abort(p netdiag.PCB) {
	target, ok := p.(*Node)
	if !ok {
		return
	}
	for l := range t.heads {
		var prev *Node
		for n := t.heads[l]; n != nil; prev, n = n, n.next {
			if n != target {
				continue
			}
			if prev == nil {
				t.heads[l] = n.next
			} else {
				prev.next = n.next
			}
			t.Aborts = append(t.Aborts, n.conn)
			n.aborted = true
			// A released block's link is garbage; callers must have stepped.
			n.next = nil
			return
		}
	}
}

// Len returns the length of list l.
func (t *Table) Len(l List) int {
	c := 0
	for n := t.heads[l]; n != nil; n = n.next {
		c++
	}
	return c
}

// Conn is shorthand for building a snapshot in tests.
func Conn(state netdiag.State, local, remote string, snd, rcv uint32) netdiag.Conn {
	return netdiag.Conn{
		State:  state,
		Local:  netip.MustParseAddrPort(local),
		Remote: netip.MustParseAddrPort(remote),
		SndNxt: snd,
		RcvNxt: rcv,
	}
}
