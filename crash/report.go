package crash

import (
	"devicediag-go/x/conv"
)

// Printer is the logging surface Report writes through (debug.Logger).
type Printer interface {
	Msg(text string) bool
	Msgf(format string, args ...any) bool
}

const tag = "[CRASH] "

// Report renders c as log lines: decimal and hex header fields, then the
// trace as a hex dump of little-endian words, four per line, each line
// prefixed with the stack address it starts at.
func Report(p Printer, c Context) {
	p.Msgf(tag+"Latest crash was at %d ms after boot\n", c.Time)
	p.Msgf(tag+"Reason of restart: %d (%s)\n", c.Reason, ReasonName(c.Reason))
	p.Msgf(tag+"Exception cause: %d\n", c.Cause)
	p.Msgf(tag+"epc1=0x%08x epc2=0x%08x epc3=0x%08x\n", c.EPC1, c.EPC2, c.EPC3)
	p.Msgf(tag+"excvaddr=0x%08x depc=0x%08x\n", c.ExcVAddr, c.DEPC)
	p.Msgf(tag+"sp=0x%08x end=0x%08x saved=%d\n", c.StackStart, c.StackEnd, len(c.Trace))
	if len(c.Trace) == 0 {
		return
	}
	p.Msg(tag + ">>>stack>>>\n")
	line := make([]byte, 0, 64)
	for off := 0; off < len(c.Trace); off += 16 {
		line = appendDumpLine(line[:0], c.StackStart+uint32(off), c.Trace[off:min(off+16, len(c.Trace))])
		p.Msg(string(line))
	}
	p.Msg(tag + "<<<stack<<<\n")
}

// appendDumpLine renders "[CRASH] aaaaaaaa: wwwwwwww wwwwwwww ...\n".
// A trailing partial word is printed byte by byte.
func appendDumpLine(dst []byte, addr uint32, row []byte) []byte {
	dst = append(dst, tag...)
	dst = conv.AppendHex32(dst, addr)
	dst = append(dst, ':')
	i := 0
	for ; i+4 <= len(row); i += 4 {
		dst = append(dst, ' ')
		dst = conv.AppendHex32(dst, le.Uint32(row[i:]))
	}
	for ; i < len(row); i++ {
		dst = append(dst, ' ')
		dst = conv.AppendHex8(dst, row[i])
	}
	return append(dst, '\n')
}

// ReportStored loads the slot and reports it, or logs that there is none.
// It returns whether a record was found.
func ReportStored(p Printer, r *Recorder) bool {
	c, err := r.Load()
	if err != nil {
		p.Msg(tag + "No crash info\n")
		return false
	}
	Report(p, c)
	return true
}
