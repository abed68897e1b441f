package fmtx

import (
	"errors"
	"testing"
)

func TestSprintfVerbs(t *testing.T) {
	type C struct {
		fmt  string
		args []any
		want string
	}
	for _, c := range []C{
		{"hello %s", []any{"world"}, "hello world"},
		{"num %d hex %x HEX %X", []any{255, 255, 255}, "num 255 hex ff HEX FF"},
		{"bool %t %t", []any{true, false}, "bool true false"},
		{"literal %%", nil, "literal %"},
		{"q=%q", []any{"a\"b\\c"}, `q="a\"b\\c"`},
		{"v=%v", []any{123}, "v=123"},
		{"trim: %.3s", []any{"abcdef"}, "trim: abc"},
		{"[%06d] ", []any{uint32(42)}, "[000042] "},
		{"0x%08x", []any{uint32(0xBEEF)}, "0x0000beef"},
	} {
		got := Sprintf(c.fmt, c.args...)
		if got != c.want {
			t.Fatalf("Sprintf(%q, ...) = %q, want %q", c.fmt, got, c.want)
		}
	}
}

func TestAppendfReusesDestination(t *testing.T) {
	buf := make([]byte, 0, 64)
	buf = Appendf(buf, "a=%d", 1)
	buf = Appendf(buf, " b=%s", "two")
	if got, want := string(buf), "a=1 b=two"; got != want {
		t.Fatalf("Appendf = %q, want %q", got, want)
	}
}

func TestErrorf(t *testing.T) {
	err := Errorf("bad %s: %d", "thing", 3)
	if err == nil {
		t.Fatalf("Errorf returned nil")
	}
	if err.Error() != "bad thing: 3" {
		t.Fatalf("Errorf string = %q, want %q", err.Error(), "bad thing: 3")
	}
	if !errors.Is(err, err) {
		t.Fatalf("errors.Is should be true on itself")
	}
}
