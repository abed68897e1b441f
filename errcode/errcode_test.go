package errcode

import (
	"errors"
	"testing"
)

func TestOf(t *testing.T) {
	cause := errors.New("i2c nack")
	type C struct {
		err  error
		want Code
	}
	for _, c := range []C{
		{nil, OK},
		{Busy, Busy},
		{&E{C: Storage, Op: "crash.write", Err: cause}, Storage},
		{errors.New("plain"), Error},
	} {
		if got := Of(c.err); got != c.want {
			t.Fatalf("Of(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

func TestWrap(t *testing.T) {
	if Wrap(Storage, "op", nil) != nil {
		t.Fatal("Wrap(nil) should be nil")
	}
	cause := errors.New("nack")
	err := Wrap(Storage, "crash.write", cause)
	if !errors.Is(err, cause) {
		t.Fatal("wrapped error lost its cause")
	}
	if got, want := err.Error(), "crash.write: storage (nack)"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
