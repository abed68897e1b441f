package netdiag_test

import (
	"strings"
	"testing"

	"devicediag-go/netdiag"
	"devicediag-go/netdiag/pcbtest"
)

func fill(t *pcbtest.Table, a, b, c int) {
	for i := 0; i < a; i++ {
		t.Add(pcbtest.Bound, pcbtest.Conn(netdiag.Listen, "0.0.0.0:80", "0.0.0.0:0", 0, 0))
	}
	for i := 0; i < b; i++ {
		t.Add(pcbtest.Active, pcbtest.Conn(netdiag.Established, "192.168.4.1:80", "192.168.4.2:51000", 1000+uint32(i), 2000))
	}
	for i := 0; i < c; i++ {
		t.Add(pcbtest.TimeWait, pcbtest.Conn(netdiag.TimeWait, "192.168.4.1:1883", "10.0.0.5:40000", 7, 9))
	}
}

func TestListCountsAllThreeLists(t *testing.T) {
	type C struct{ a, b, c int }
	for _, c := range []C{{0, 0, 0}, {1, 0, 0}, {0, 3, 0}, {2, 5, 4}} {
		tbl := &pcbtest.Table{}
		fill(tbl, c.a, c.b, c.c)
		var lines []string
		n := netdiag.NewInspector(tbl).List(func(l string) { lines = append(lines, l) })
		if n != c.a+c.b+c.c || len(lines) != n {
			t.Fatalf("%+v: n=%d lines=%d", c, n, len(lines))
		}
		if tbl.Len(pcbtest.Bound) != c.a || tbl.Len(pcbtest.Active) != c.b || tbl.Len(pcbtest.TimeWait) != c.c {
			t.Fatalf("%+v: List mutated the tables", c)
		}
	}
}

func TestLineFormat(t *testing.T) {
	tbl := &pcbtest.Table{}
	tbl.Add(pcbtest.Active, pcbtest.Conn(netdiag.Established, "192.168.4.1:80", "192.168.4.2:51000", 1000, 2000))
	var got string
	netdiag.NewInspector(tbl).List(func(l string) { got = l })
	want := "state=ESTABLISHED local=192.168.4.1:80 remote=192.168.4.2:51000 next_send=1000 next_recv=2000"
	if got != want {
		t.Fatalf("line = %q\nwant   %q", got, want)
	}
}

func TestListOrderIsBoundActiveTimeWait(t *testing.T) {
	tbl := &pcbtest.Table{}
	fill(tbl, 1, 1, 1)
	var states []string
	netdiag.NewInspector(tbl).List(func(l string) {
		states = append(states, strings.Fields(l)[0])
	})
	if strings.Join(states, ",") != "state=LISTEN,state=ESTABLISHED,state=TIME_WAIT" {
		t.Fatalf("order = %v", states)
	}
}

func TestResetAllEmptiesEveryList(t *testing.T) {
	tbl := &pcbtest.Table{}
	fill(tbl, 2, 5, 4)
	n := netdiag.NewInspector(tbl).ResetAll()
	if n != 11 || len(tbl.Aborts) != 11 {
		t.Fatalf("aborted %d (table saw %d), want 11", n, len(tbl.Aborts))
	}
	for _, l := range []pcbtest.List{pcbtest.Bound, pcbtest.Active, pcbtest.TimeWait} {
		if tbl.Len(l) != 0 {
			t.Fatalf("list %d still has %d entries", l, tbl.Len(l))
		}
	}
	if netdiag.NewInspector(tbl).ResetAll() != 0 {
		t.Fatal("reset of empty tables aborted something")
	}
}

func TestAllStopsEarly(t *testing.T) {
	tbl := &pcbtest.Table{}
	fill(tbl, 3, 3, 3)
	seen := 0
	for range netdiag.NewInspector(tbl).All() {
		seen++
		if seen == 4 {
			break
		}
	}
	if seen != 4 {
		t.Fatalf("seen = %d", seen)
	}
}

func TestStateNames(t *testing.T) {
	if netdiag.FinWait2.String() != "FIN_WAIT_2" || netdiag.State(99).String() != "UNKNOWN" {
		t.Fatal("state names")
	}
}
