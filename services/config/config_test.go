package config

import (
	"testing"

	"devicediag-go/bus"
	"devicediag-go/errcode"
)

func TestParse_FillsDefaultsAndClamps(t *testing.T) {
	d, br, err := Parse([]byte(`{"diag":{"buffer_size":16,"trace_max":5000,"chunk_limit":-3}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if br != nil {
		t.Fatalf("unexpected bridge section %q", br)
	}
	if d.BufferSize != minBufferSize || d.TraceMax != maxTraceMax || d.ChunkLimit != 0 {
		t.Fatalf("not clamped: %+v", d)
	}
	if !d.Timestamps || d.HeartbeatS != DefaultHeartbeatS || d.Backlog != DefaultBacklog {
		t.Fatalf("defaults lost: %+v", d)
	}
}

func TestParse_ClampsHeartbeat(t *testing.T) {
	d, _, err := Parse([]byte(`{"diag":{"heartbeat_s":4294968}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.HeartbeatS != MaxHeartbeatS {
		t.Fatalf("heartbeat_s = %d, want %d", d.HeartbeatS, MaxHeartbeatS)
	}
}

func TestParse_BadJSON(t *testing.T) {
	d, _, err := Parse([]byte(`{"diag":`))
	if errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("err = %v, want invalid_params", err)
	}
	if d != Defaults() {
		t.Fatalf("bad document must yield defaults, got %+v", d)
	}
}

func TestLoad_EmbeddedDevices(t *testing.T) {
	for dev := range embeddedConfigs {
		if _, _, err := Load(dev); err != nil {
			t.Fatalf("%s: %v", dev, err)
		}
	}
	d, br, _ := Load("pico")
	if d.BufferSize != 512 || d.ChunkLimit != 64 || br == nil {
		t.Fatalf("pico: %+v bridge=%q", d, br)
	}
	if _, _, err := Load("nope"); errcode.Of(err) != errcode.Unsupported {
		t.Fatalf("unknown device err = %v", err)
	}
}

func TestService_PublishesOnStartAndApply(t *testing.T) {
	old := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(device string) ([]byte, bool) {
		if device != "test" {
			return nil, false
		}
		return []byte(`{"diag":{"heartbeat_s":7},"bridge":{"transport":{"type":"uart"}}}`), true
	}
	t.Cleanup(func() { EmbeddedConfigLookup = old })

	r := bus.NewRegistry()
	var got []Diag
	var bridges int
	bus.Subscribe(r, func(_ bus.Source, d Diag) { got = append(got, d) })
	bus.Subscribe(r, func(_ bus.Source, _ BridgeRaw) { bridges++ })

	s := NewService(r)
	if err := s.Start("test"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(got) != 1 || got[0].HeartbeatS != 7 || bridges != 1 {
		t.Fatalf("after start: %+v bridges=%d", got, bridges)
	}

	if err := s.Apply([]byte(`{"diag":{"timestamps":false}}`)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(got) != 2 || got[1].Timestamps || s.Current().Timestamps {
		t.Fatalf("after apply: %+v", got)
	}
	if bridges != 1 {
		t.Fatalf("bridge section republished without one in the document")
	}

	if err := s.Apply([]byte(`nope`)); err == nil || len(got) != 2 {
		t.Fatalf("bad apply published or succeeded: err=%v n=%d", err, len(got))
	}
}

func TestService_StartUnknownDevicePublishesDefaults(t *testing.T) {
	r := bus.NewRegistry()
	var got Diag
	bus.Subscribe(r, func(_ bus.Source, d Diag) { got = d })
	if err := NewService(r).Start("missing"); err == nil {
		t.Fatal("expected error for missing device")
	}
	if got != Defaults() {
		t.Fatalf("got %+v, want defaults", got)
	}
}

func TestService_PartialApplyKeepsOtherFields(t *testing.T) {
	r := bus.NewRegistry()
	s := NewService(r)
	if err := s.Start("pico"); err != nil {
		t.Fatalf("start: %v", err)
	}
	before := s.Current()
	if err := s.Apply([]byte(`{"diag":{"heartbeat_s":5}}`)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	after := s.Current()
	want := before
	want.HeartbeatS = 5
	if after != want {
		t.Fatalf("partial apply changed other fields:\nbefore %+v\nafter  %+v", before, after)
	}
	if after.BufferSize != 512 || after.ChunkLimit != 64 || after.Backlog != 8 {
		t.Fatalf("pico tunables lost: %+v", after)
	}
}
