//go:build rp2040 || rp2350

package main

import (
	"context"
	"io"
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers/at24cx"

	"devicediag-go/crash"
	"devicediag-go/errcode"
	"devicediag-go/services/bridge"
	"devicediag-go/services/config"
	"devicediag-go/sink"
	"devicediag-go/x/linebuf"
)

const (
	consoleBaud = 115200
	consoleRing = 1024
)

// setupPlatform wires the board: console and terminal on UART0, the crash
// slot in an AT24C32 EEPROM on I2C0, bridge uplink on UART1.
func setupPlatform() platform {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)

	console := sink.OpenUART(sink.UARTConfig{ID: "uart0", Baud: consoleBaud, TX: int(machine.GPIO0), RX: int(machine.GPIO1)})

	_ = machine.I2C0.Configure(machine.I2CConfig{Frequency: 400 * machine.KHz, SDA: machine.GPIO20, SCL: machine.GPIO21})
	ee := crash.NewEEPROM(machine.I2C0, at24cx.Config{PageSize: 32, EndRAMAddress: 4096})

	bridge.UARTDial = func(_ context.Context, u bridge.UARTConfig) (io.ReadWriteCloser, error) {
		id := u.ID
		if id == "" {
			id = "uart1"
		}
		hw := sink.OpenUART(sink.UARTConfig{ID: id, Baud: uint32(u.Baud), TX: u.TxPin, RX: u.RxPin})
		if hw == nil {
			return nil, errUnknownUART
		}
		return &uartConn{u: hw}, nil
	}

	return platform{
		device:  deviceID,
		storage: ee,
		input:   console,
		sinks: func(ctx context.Context, cfg config.Diag) []linebuf.Sink {
			ring := sink.NewRing(consoleRing)
			go ring.Pump(ctx, console)
			return []linebuf.Sink{ring}
		},
	}
}

var errUnknownUART = &errcode.E{C: errcode.InvalidParams, Op: "bridge.dial", Msg: "unknown uart id"}

// uartConn adapts a uartx.UART to io.ReadWriteCloser for the bridge.
type uartConn struct{ u *uartx.UART }

func (c *uartConn) Read(p []byte) (int, error) {
	return c.u.RecvSomeContext(context.Background(), p)
}
func (c *uartConn) Write(p []byte) (int, error) { return c.u.Write(p) }
func (c *uartConn) Close() error                { return nil }
