package config

import (
	"encoding/json"
	"sync"

	"devicediag-go/bus"
	"devicediag-go/errcode"
	"devicediag-go/x/mathx"
)

// -----------------------------------------------------------------------------
// Diagnostics tunables
// -----------------------------------------------------------------------------

const (
	serviceName = "config"

	DefaultBufferSize = 1024
	DefaultTraceMax   = 128
	DefaultChunkLimit = 256
	DefaultHeartbeatS = 300
	DefaultBacklog    = 16

	minBufferSize = 64
	maxBufferSize = 8192
	minTraceMax   = 16
	maxTraceMax   = 1024
	maxBacklog    = 256
	MaxHeartbeatS = 86400
)

// Diag carries every option the diagnostics core recognises.
type Diag struct {
	BufferSize    int   `json:"buffer_size"`
	TraceMax      int   `json:"trace_max"`
	StorageOffset int64 `json:"storage_offset"`
	ChunkLimit    int   `json:"chunk_limit"` // 0 = unlimited
	Timestamps    bool  `json:"timestamps"`
	HeartbeatS    int   `json:"heartbeat_s"` // 0 disables
	Backlog       int   `json:"backlog"`
}

func Defaults() Diag {
	return Diag{
		BufferSize: DefaultBufferSize,
		TraceMax:   DefaultTraceMax,
		ChunkLimit: DefaultChunkLimit,
		Timestamps: true,
		HeartbeatS: DefaultHeartbeatS,
		Backlog:    DefaultBacklog,
	}
}

// Normalise clamps every field into its supported range.
func (d Diag) Normalise() Diag {
	d.BufferSize = mathx.Clamp(d.BufferSize, minBufferSize, maxBufferSize)
	d.TraceMax = mathx.Clamp(d.TraceMax, minTraceMax, maxTraceMax)
	d.StorageOffset = mathx.Max(d.StorageOffset, 0)
	d.ChunkLimit = mathx.Max(d.ChunkLimit, 0)
	d.HeartbeatS = mathx.Clamp(d.HeartbeatS, 0, MaxHeartbeatS)
	d.Backlog = mathx.Clamp(d.Backlog, 1, maxBacklog)
	return d
}

// BridgeRaw is the undecoded "bridge" section, handed to the bridge
// service which owns its schema.
type BridgeRaw []byte

// document is the shape of an embedded per-device configuration.
type document struct {
	Diag   json.RawMessage `json:"diag"`
	Bridge json.RawMessage `json:"bridge"`
}

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// Parse decodes a device document. Missing fields keep their defaults.
func Parse(raw []byte) (Diag, BridgeRaw, error) {
	return ParseOnto(Defaults(), raw)
}

// ParseOnto decodes a document over base: fields the document leaves out
// keep base's values. On error base is returned unchanged.
func ParseOnto(base Diag, raw []byte) (Diag, BridgeRaw, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return base, nil, &errcode.E{C: errcode.InvalidParams, Op: "config.parse", Err: err}
	}
	d := base
	if len(doc.Diag) > 0 {
		if err := json.Unmarshal(doc.Diag, &d); err != nil {
			return base, nil, &errcode.E{C: errcode.InvalidParams, Op: "config.parse", Msg: "diag", Err: err}
		}
	}
	var br BridgeRaw
	if len(doc.Bridge) > 0 && string(doc.Bridge) != "null" {
		br = BridgeRaw(doc.Bridge)
	}
	return d.Normalise(), br, nil
}

// Load resolves the embedded document for device. An unknown device yields
// the defaults together with an errcode.Unsupported error.
func Load(device string) (Diag, BridgeRaw, error) {
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return Defaults(), nil, &errcode.E{C: errcode.Unsupported, Op: "config.load", Msg: "no embedded config for device: " + device}
	}
	return Parse(raw)
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

// Service owns the live configuration and publishes every change as a
// Diag event (and a BridgeRaw event when the document carries one).
type Service struct {
	Name string

	diagPub   *bus.Publisher[Diag]
	bridgePub *bus.Publisher[BridgeRaw]

	mu  sync.Mutex
	cur Diag
}

func NewService(r *bus.Registry) *Service {
	return &Service{
		Name:      serviceName,
		diagPub:   bus.NewPublisher[Diag](r, serviceName),
		bridgePub: bus.NewPublisher[BridgeRaw](r, serviceName),
		cur:       Defaults(),
	}
}

// Start loads the embedded document for device and publishes it. The
// defaults are still published when the device has no document.
func (s *Service) Start(device string) error {
	d, br, err := Load(device)
	s.publish(d, br)
	return err
}

// Apply updates the live configuration from a JSON document, e.g. one
// received over the terminal. Fields the document omits keep their current
// values. A bad document changes nothing.
func (s *Service) Apply(raw []byte) error {
	d, br, err := ParseOnto(s.Current(), raw)
	if err != nil {
		return err
	}
	s.publish(d, br)
	return nil
}

func (s *Service) Current() Diag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

func (s *Service) publish(d Diag, br BridgeRaw) {
	s.mu.Lock()
	s.cur = d
	s.mu.Unlock()
	s.diagPub.Publish(d)
	if br != nil {
		s.bridgePub.Publish(br)
	}
}
