//go:build rp2040 || rp2350

package sink

import (
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

// UARTConfig selects pins and baud for the debug console UART.
type UARTConfig struct {
	ID   string // "uart0" or "uart1"
	Baud uint32
	TX   int
	RX   int
}

// OpenUART configures the console UART. Defaults inside uartx apply to
// zero fields. Returns nil for an unknown ID.
func OpenUART(cfg UARTConfig) *uartx.UART {
	var hw *uartx.UART
	switch cfg.ID {
	case "uart0", "":
		hw = uartx.UART0
	case "uart1":
		hw = uartx.UART1
	default:
		return nil
	}
	_ = hw.Configure(uartx.UARTConfig{
		BaudRate: cfg.Baud,
		TX:       machine.Pin(cfg.TX),
		RX:       machine.Pin(cfg.RX),
	})
	return hw
}
