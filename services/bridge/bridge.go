// bridge/bridge.go
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"devicediag-go/bus"
	"devicediag-go/crash"
	"devicediag-go/errcode"
	"devicediag-go/services/config"
	"devicediag-go/x/fmtx"
	"devicediag-go/x/timex"
)

// -----------------------------------------------------------------------------
// Public entry point
// -----------------------------------------------------------------------------

// DefaultQueue is the number of outbound frames held while the link is down.
const DefaultQueue = 16

// Service forwards flushed log text and crash reports to a remote peer. It
// is a linebuf.Sink: attach it to the logger and every flush becomes a log
// frame. Frames are queued without blocking; when the queue is full the
// frame is dropped and counted.
type Service struct {
	state *bus.Publisher[State]
	cfgCh chan Config
	out   chan Frame

	mu     sync.Mutex
	curRun context.CancelFunc
	curCfg atomic.Value // stores Config

	stateMu sync.Mutex

	dropped atomic.Uint32
}

// New wires the service to r: it listens for config.BridgeRaw events and
// publishes State events. queue <= 0 selects DefaultQueue.
func New(r *bus.Registry, queue int) *Service {
	if queue <= 0 {
		queue = DefaultQueue
	}
	s := &Service{
		state: bus.NewPublisher[State](r, "bridge"),
		cfgCh: make(chan Config, 1),
		out:   make(chan Frame, queue),
	}
	bus.Subscribe(r, func(_ bus.Source, raw config.BridgeRaw) {
		cfg, err := decodeConfig([]byte(raw))
		if err != nil {
			s.publishState("error", "config_decode_failed", err)
			return
		}
		s.offerConfig(cfg)
	})
	return s
}

// Run waits for config and supervises a single link instance. It blocks
// until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	s.publishState("idle", "awaiting_config", nil)
	for {
		select {
		case <-ctx.Done():
			s.stopCurrent()
			return
		case cfg := <-s.cfgCh:
			s.reconfigure(ctx, cfg)
		}
	}
}

// Flush queues p as a log frame.
func (s *Service) Flush(p []byte) {
	for len(p) > 0 {
		n := min(len(p), maxPayload)
		s.enqueue(Frame{Type: frameLog, Payload: append([]byte(nil), p[:n]...)})
		p = p[n:]
	}
}

// SendCrash queues c as a CBOR crash frame.
func (s *Service) SendCrash(c crash.Context) error {
	b, err := crash.MarshalCBOR(c)
	if err != nil {
		return errcode.Wrap(errcode.Error, "bridge.crash", err)
	}
	if len(b) > maxPayload {
		return &errcode.E{C: errcode.Truncated, Op: "bridge.crash", Msg: "record too large"}
	}
	if !s.enqueue(Frame{Type: frameCrash, Payload: b}) {
		return &errcode.E{C: errcode.Busy, Op: "bridge.crash", Msg: "queue full"}
	}
	return nil
}

// Config returns the configuration of the current link, if any.
func (s *Service) Config() (Config, bool) {
	cfg, ok := s.curCfg.Load().(Config)
	return cfg, ok
}

// Dropped counts frames lost to a full queue.
func (s *Service) Dropped() uint32 { return s.dropped.Load() }

func (s *Service) enqueue(f Frame) bool {
	select {
	case s.out <- f:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// offerConfig keeps only the newest pending config.
func (s *Service) offerConfig(cfg Config) {
	for {
		select {
		case s.cfgCh <- cfg:
			return
		default:
		}
		select {
		case <-s.cfgCh:
		default:
		}
	}
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config is the JSON-encoded "bridge" section of the device document.
type Config struct {
	Transport TransportConfig `json:"transport"`
	PingS     int             `json:"ping_s,omitempty"` // 0 selects 5 s
}

type TransportConfig struct {
	// "uart" (provided here) or other names registered via RegisterTransport.
	Type string      `json:"type"`
	UART *UARTConfig `json:"uart,omitempty"`
	Addr string      `json:"addr,omitempty"` // host:port for network transports
}

// UARTConfig carries enough information for an injected dialler to open the UART.
// The actual pin mapping and UART instance selection is handled by UARTDial.
type UARTConfig struct {
	ID    string `json:"id,omitempty"` // "uart0" or "uart1"
	Baud  int    `json:"baud"`
	RxPin int    `json:"rx_pin"` // platform-specific numeric IDs (e.g. machine.GPIOxx)
	TxPin int    `json:"tx_pin"`
}

// -----------------------------------------------------------------------------
// State
// -----------------------------------------------------------------------------

// State is published on every link transition.
type State struct {
	Level  string // "up", "degraded", "error", "idle"
	Status string // short machine string
	Err    string
	TsMs   int64
}

func (s *Service) publishState(level, status string, err error) {
	st := State{Level: level, Status: status, TsMs: timex.NowMs()}
	if err != nil {
		st.Err = err.Error()
	}
	// Link goroutines and the config handler publish concurrently.
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.state.Publish(st)
}

// -----------------------------------------------------------------------------
// Link supervision and I/O
// -----------------------------------------------------------------------------

func (s *Service) stopCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
}

func (s *Service) reconfigure(parent context.Context, cfg Config) {
	s.mu.Lock()
	// Cancel any existing run.
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
	ctx, cancel := context.WithCancel(parent)
	s.curRun = cancel
	s.mu.Unlock()

	s.curCfg.Store(cfg)
	go s.runLink(ctx, cfg)
}

func (s *Service) runLink(ctx context.Context, cfg Config) {
	tr, err := newTransport(cfg.Transport)
	if err != nil {
		s.publishState("error", "transport_init_failed", err)
		return
	}

	backoff := backoffSeq(250*time.Millisecond, 5*time.Second)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		rwc, err := tr.Open(ctx)
		if err != nil {
			delay := backoff()
			s.publishState("degraded", "dial_failed_retrying", fmtx.Errorf("%v (retry in %s)", err, delay))
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		s.publishState("up", "link_established", nil)
		if err := s.handleLink(ctx, rwc, pingPeriod(cfg)); err != nil {
			_ = rwc.Close()
			delay := backoff()
			s.publishState("degraded", "link_lost_retrying", fmtx.Errorf("%v (retry in %s)", err, delay))
			if !sleep(ctx, delay) {
				return
			}
			continue
		}
		_ = rwc.Close()
		// Clean close: restart only on new config.
		return
	}
}

func pingPeriod(cfg Config) time.Duration {
	if cfg.PingS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(cfg.PingS) * time.Second
}

// handleLink owns the active link lifetime: it drains queued frames to the
// peer, pings it periodically and watches for the peer closing.
func (s *Service) handleLink(ctx context.Context, rwc io.ReadWriteCloser, ping time.Duration) error {
	rd := newFramedReader(rwc)
	wr := newFramedWriter(rwc)

	// Reader
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			f, err := rd.ReadFrame()
			if err != nil {
				errCh <- err
				return
			}
			switch f.Type {
			case framePong:
			case frameClose:
				errCh <- nil
				return
			default:
				// Unknown; ignore.
			}
		}
	}()

	tick := time.NewTicker(ping)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			// Best-effort close.
			_ = wr.WriteFrame(Frame{Type: frameClose})
			return nil
		case err, ok := <-errCh:
			if !ok || err == nil {
				return nil
			}
			return err
		case <-tick.C:
			if err := wr.WriteFrame(Frame{Type: framePing}); err != nil {
				return err
			}
		case f := <-s.out:
			if err := wr.WriteFrame(f); err != nil {
				// Put it back if there is room; the link is gone anyway.
				s.enqueue(f)
				return err
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Transport registry
// -----------------------------------------------------------------------------

// Transport is a pluggable link dialler/owner.
type Transport interface {
	Open(ctx context.Context) (io.ReadWriteCloser, error)
	String() string
}

type TransportFactory func(TransportConfig) (Transport, error)

var (
	regMu     sync.RWMutex
	registry  = map[string]TransportFactory{}
	errNoDial = &errcode.E{C: errcode.Unsupported, Op: "bridge.dial", Msg: "UARTDial not set"}
)

// RegisterTransport allows external packages to add transports (eg. "tcp").
func RegisterTransport(name string, f TransportFactory) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[name] = f
}

func newTransport(cfg TransportConfig) (Transport, error) {
	regMu.RLock()
	f, ok := registry[cfg.Type]
	regMu.RUnlock()
	if ok {
		return f(cfg)
	}
	switch cfg.Type {
	case "uart":
		return newUARTTransport(cfg)
	default:
		return nil, &errcode.E{C: errcode.Unsupported, Op: "bridge.transport", Msg: fmtx.Sprintf("unknown transport type: %q", cfg.Type)}
	}
}

// UARTDial is injected by platform code (main's platform_rp2.go).
// It must open and return an io.ReadWriteCloser over the configured UART.
var UARTDial func(ctx context.Context, u UARTConfig) (io.ReadWriteCloser, error)

// uartTransport implements Transport via an injected dial function.
type uartTransport struct {
	cfg TransportConfig
}

func newUARTTransport(cfg TransportConfig) (Transport, error) {
	if cfg.UART == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "bridge.transport", Msg: "uart transport requires uart config"}
	}
	return &uartTransport{cfg: cfg}, nil
}

func (u *uartTransport) Open(ctx context.Context) (io.ReadWriteCloser, error) {
	if UARTDial == nil {
		return nil, errNoDial
	}
	return UARTDial(ctx, *u.cfg.UART)
}

func (u *uartTransport) String() string { return "uart" }

// -----------------------------------------------------------------------------
// Framing
// -----------------------------------------------------------------------------

const (
	framePing  byte = 0x01
	framePong  byte = 0x02
	frameLog   byte = 0x20
	frameCrash byte = 0x21
	frameClose byte = 0x7f

	maxPayload = 0xFFFF
)

// Frame is type, big-endian 16-bit length, payload.
type Frame struct {
	Type    byte
	Payload []byte
}

type framedReader struct{ r io.Reader }
type framedWriter struct{ w io.Writer }

func newFramedReader(r io.Reader) *framedReader { return &framedReader{r: r} }
func newFramedWriter(w io.Writer) *framedWriter { return &framedWriter{w: w} }

func (fr *framedReader) ReadFrame() (Frame, error) {
	var hdr [3]byte
	if _, err := io.ReadFull(fr.r, hdr[:]); err != nil {
		return Frame{}, err
	}
	typ := hdr[0]
	n := int(hdr[1])<<8 | int(hdr[2])
	var buf []byte
	if n > 0 {
		buf = make([]byte, n)
		if _, err := io.ReadFull(fr.r, buf); err != nil {
			return Frame{}, err
		}
	}
	return Frame{Type: typ, Payload: buf}, nil
}

func (fw *framedWriter) WriteFrame(f Frame) error {
	if len(f.Payload) > maxPayload {
		return fmtx.Errorf("frame too large: %d", len(f.Payload))
	}
	hdr := []byte{f.Type, byte(len(f.Payload) >> 8), byte(len(f.Payload) & 0xFF)}
	if _, err := fw.w.Write(hdr); err != nil {
		return err
	}
	if len(f.Payload) > 0 {
		_, err := fw.w.Write(f.Payload)
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------
// Utilities
// -----------------------------------------------------------------------------

func decodeConfig(p []byte) (Config, error) {
	var cfg Config
	if len(p) == 0 {
		return cfg, errors.New("empty bridge config")
	}
	if err := json.Unmarshal(p, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	if min <= 0 {
		min = 100 * time.Millisecond
	}
	if max < min {
		max = min
	}
	var cur = min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
