package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"devicediag-go/crash"
	"devicediag-go/errcode"
)

func writeImage(t *testing.T, offset int, traceMax int, c crash.Context) string {
	t.Helper()
	img := bytes.Repeat([]byte{0xFF}, offset+crash.RecordSize(traceMax)+16)
	rec := crash.Encode(nil, c, traceMax)
	copy(img[offset:], rec)
	p := filepath.Join(t.TempDir(), "nvm.bin")
	if err := os.WriteFile(p, img, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRun_TextReport(t *testing.T) {
	img := writeImage(t, 0, 128, crash.Context{Time: 5000, Reason: crash.ReasonException, Cause: 3, StackStart: 0x3ffffe00, Trace: []byte{0xEF, 0xBE, 0xAD, 0xDE}})
	var out bytes.Buffer
	if err := run([]string{"--image", img}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	s := out.String()
	for _, want := range []string{
		"[CRASH] Latest crash was at 5000 ms after boot",
		"Reason of restart: 2 (exception)",
		"[CRASH] 3ffffe00: deadbeef",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("output lacks %q:\n%s", want, s)
		}
	}
}

func TestRun_YAMLConfigAndFlagPrecedence(t *testing.T) {
	img := writeImage(t, 64, 32, crash.Context{Time: 1, Reason: crash.ReasonPanic})
	cfg := filepath.Join(t.TempDir(), "diag.yaml")
	if err := os.WriteFile(cfg, []byte("storage_offset: 64\ntrace_max: 32\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := run([]string{"-i", img, "-c", cfg}, &out); err != nil {
		t.Fatalf("with config: %v", err)
	}
	if !strings.Contains(out.String(), "(panic)") {
		t.Fatalf("output: %s", out.String())
	}
	// An explicit flag overrides the file.
	err := run([]string{"-i", img, "-c", cfg, "--offset", "0"}, &out)
	if errcode.Of(err) != errcode.NoRecord {
		t.Fatalf("err = %v, want no_record", err)
	}
}

func TestRun_CBOR(t *testing.T) {
	img := writeImage(t, 0, 128, crash.Context{Time: 77, Trace: []byte{1}})
	var out bytes.Buffer
	if err := run([]string{img, "--format", "cbor"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(strings.TrimSpace(out.String())) == 0 {
		t.Fatal("no cbor output")
	}
}

func TestRun_Errors(t *testing.T) {
	var out bytes.Buffer
	if errcode.Of(run(nil, &out)) != errcode.InvalidParams {
		t.Fatal("missing image accepted")
	}
	if errcode.Of(run([]string{"--image", "/nonexistent/x"}, &out)) != errcode.Storage {
		t.Fatal("unreadable image not a storage error")
	}
	img := writeImage(t, 0, 16, crash.Context{})
	if errcode.Of(run([]string{img, "--format", "xml"}, &out)) != errcode.InvalidParams {
		t.Fatal("bad format accepted")
	}
	if errcode.Of(run([]string{img, "--offset", "100000"}, &out)) != errcode.Truncated {
		t.Fatal("offset beyond image accepted")
	}
}
