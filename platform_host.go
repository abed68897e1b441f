//go:build !(rp2040 || rp2350)

package main

import (
	"context"
	"io"
	"net"
	"net/netip"
	"os"

	"github.com/spf13/pflag"

	"devicediag-go/crash"
	"devicediag-go/errcode"
	"devicediag-go/netdiag"
	"devicediag-go/netdiag/pcbtest"
	"devicediag-go/services/bridge"
	"devicediag-go/services/config"
	"devicediag-go/sink"
	"devicediag-go/x/linebuf"
)

const nvmSize = 4096

// setupPlatform runs the core on a workstation: console on stdout, the
// crash slot in a file (or RAM) and a demo connection table.
func setupPlatform() platform {
	var device, nvmPath, logPath string
	fs := pflag.NewFlagSet("devicediag", pflag.ExitOnError)
	fs.StringVar(&device, "device", "host", "device id selecting the embedded config")
	fs.StringVar(&nvmPath, "nvm", "", "file backing the crash slot (default: RAM)")
	fs.StringVar(&logPath, "log-file", "", "also append log text to this file")
	_ = fs.Parse(os.Args[1:])

	bridge.RegisterTransport("tcp", newTCPTransport)

	var st crash.Storage = crash.NewMemStorage(nvmSize)
	if nvmPath != "" {
		f, err := openNVM(nvmPath)
		if err != nil {
			println("[main] nvm:", err.Error(), "- using RAM")
		} else {
			st = f
		}
	}

	return platform{
		device:  device,
		storage: st,
		stack:   demoStack(),
		input:   stdin{},
		sinks: func(_ context.Context, cfg config.Diag) []linebuf.Sink {
			out := []linebuf.Sink{sink.NewChunked(os.Stdout, cfg.ChunkLimit, cfg.Backlog)}
			if logPath != "" {
				if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
					out = append(out, sink.NewWriter(f))
				}
			}
			return out
		},
	}
}

// openNVM opens path as an erased image, extending it with 0xFF.
func openNVM(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.Size() < nvmSize {
		pad := make([]byte, nvmSize-fi.Size())
		for i := range pad {
			pad[i] = 0xFF
		}
		if _, err := f.WriteAt(pad, fi.Size()); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func demoStack() *pcbtest.Table {
	t := &pcbtest.Table{}
	local := netip.MustParseAddr("127.0.0.1")
	t.Add(pcbtest.Bound, netdiag.Conn{State: netdiag.Listen, Local: netip.AddrPortFrom(local, 8080), Remote: netip.AddrPortFrom(netip.IPv4Unspecified(), 0)})
	t.Add(pcbtest.Active, netdiag.Conn{State: netdiag.Established, Local: netip.AddrPortFrom(local, 8080), Remote: netip.AddrPortFrom(local, 50312), SndNxt: 1001, RcvNxt: 73})
	t.Add(pcbtest.TimeWait, netdiag.Conn{State: netdiag.TimeWait, Local: netip.AddrPortFrom(local, 8080), Remote: netip.AddrPortFrom(local, 50290), SndNxt: 4410, RcvNxt: 90})
	return t
}

// stdin reads the terminal from the process's standard input. Reads are
// not interruptible; the process exits with the goroutine still parked.
type stdin struct{}

func (stdin) RecvSomeContext(_ context.Context, buf []byte) (int, error) {
	return os.Stdin.Read(buf)
}

// tcpTransport lets the host bridge uplink to a collector, e.g.
// {"bridge":{"transport":{"type":"tcp","addr":"127.0.0.1:7000"}}}.
type tcpTransport struct{ addr string }

func newTCPTransport(cfg bridge.TransportConfig) (bridge.Transport, error) {
	if cfg.Addr == "" {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "bridge.transport", Msg: "tcp transport requires addr"}
	}
	return &tcpTransport{addr: cfg.Addr}, nil
}

func (t *tcpTransport) Open(ctx context.Context) (io.ReadWriteCloser, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", t.addr)
}

func (t *tcpTransport) String() string { return "tcp" }
