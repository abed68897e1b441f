package crash

import (
	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/at24cx"

	"devicediag-go/errcode"
)

// defaultEEPROMSize matches the at24cx default end address (AT24C32).
const defaultEEPROMSize = 4096

// EEPROM stores the record slot in an AT24Cxx serial EEPROM on any bus
// implementing drivers.I2C (machine.I2C0 on the board, a fake in tests).
// Accesses outside the device are refused; the driver would wrap them.
type EEPROM struct {
	dev  at24cx.Device
	size int64
}

// NewEEPROM wraps the EEPROM at its default address. Zero Config fields
// take the driver defaults (32-byte pages, 4 KiB).
func NewEEPROM(bus drivers.I2C, cfg at24cx.Config) *EEPROM {
	e := &EEPROM{dev: at24cx.New(bus), size: defaultEEPROMSize}
	if cfg.EndRAMAddress != 0 {
		e.size = int64(cfg.EndRAMAddress)
	}
	e.dev.Configure(cfg)
	return e
}

// Size is the number of addressable bytes.
func (e *EEPROM) Size() int64 { return e.size }

func (e *EEPROM) ReadAt(p []byte, off int64) (int, error) {
	if !e.inRange(p, off) {
		return 0, &errcode.E{C: errcode.Storage, Op: "eeprom.read", Msg: "out of range"}
	}
	return e.dev.ReadAt(p, off)
}

func (e *EEPROM) WriteAt(p []byte, off int64) (int, error) {
	if !e.inRange(p, off) {
		return 0, &errcode.E{C: errcode.Storage, Op: "eeprom.write", Msg: "out of range"}
	}
	return e.dev.WriteAt(p, off)
}

func (e *EEPROM) inRange(p []byte, off int64) bool {
	return off >= 0 && off+int64(len(p)) <= e.size
}
