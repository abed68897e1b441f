// Package crash persists a forensic record of the last fatal fault in a
// small fixed region of non-volatile storage and renders it back as log
// text on the next boot.
//
// Record layout, little-endian, offsets from the configured base:
//
//	0x00 u32 crash time (ms since boot)
//	0x04 u8  restart reason
//	0x05 u8  exception cause
//	0x06 u32 fault register 1 (pc snapshot)
//	0x0A u32 fault register 2 (pc snapshot)
//	0x0E u32 fault register 3 (pc snapshot)
//	0x12 u32 fault address
//	0x16 u32 diagnostic address
//	0x1A u32 stack start
//	0x1E u32 stack end
//	0x22 u16 trace length
//	0x24 ... trace bytes (trace length of them, <= configured maximum)
//	then u32 magic "CRSH" and u32 checksum (keyed BLAKE3 of header+trace,
//	first 4 bytes)
//
// The trailer marks a slot as holding a real record. Erased (0xFF) or
// zeroed storage fails the trace-length bound or the magic.
package crash

const (
	offTime       = 0x00
	offReason     = 0x04
	offCause      = 0x05
	offEPC1       = 0x06
	offEPC2       = 0x0A
	offEPC3       = 0x0E
	offExcVAddr   = 0x12
	offDEPC       = 0x16
	offStackStart = 0x1A
	offStackEnd   = 0x1E
	offTraceLen   = 0x22
	offTrace      = 0x24

	HeaderSize  = offTrace
	TrailerSize = 8

	// Magic is "CRSH" read as a little-endian u32.
	Magic uint32 = 0x48535243

	DefaultTraceMax = 128
	// MaxTraceMax bounds the configurable maximum by the u16 length field.
	MaxTraceMax = 0xFFFF
)

// RecordSize returns the storage footprint of a record carrying traceLen
// trace bytes.
func RecordSize(traceLen int) int { return HeaderSize + traceLen + TrailerSize }

// Restart reasons, numbered like the ESP8266 SDK's rst_info.reason with a
// host-only panic code appended.
const (
	ReasonPowerOn     uint8 = 0
	ReasonHWWatchdog  uint8 = 1
	ReasonException   uint8 = 2
	ReasonSWWatchdog  uint8 = 3
	ReasonSoftRestart uint8 = 4
	ReasonDeepSleep   uint8 = 5
	ReasonExtReset    uint8 = 6
	ReasonPanic       uint8 = 7
)

var reasonNames = [...]string{
	"power_on",
	"hw_wdt",
	"exception",
	"soft_wdt",
	"soft_restart",
	"deep_sleep_awake",
	"ext_reset",
	"panic",
}

// ReasonName returns a short name for a restart reason code.
func ReasonName(r uint8) string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return "unknown"
}
