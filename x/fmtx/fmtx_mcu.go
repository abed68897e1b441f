//go:build rp2040 || rp2350

package fmtx

import (
	"unicode/utf8"

	"devicediag-go/x/conv"
)

// --- Public API (signatures match fmt) ---

func Appendf(dst []byte, format string, a ...any) []byte {
	return appendFormat(dst, format, a...)
}

func Sprintf(format string, a ...any) string {
	return string(appendFormat(nil, format, a...))
}

func Errorf(format string, a ...any) error {
	return &stringError{Sprintf(format, a...)}
}

// --- Internals: tiny formatter subset ---
// Supports: %s %q %d %u %x %X %v %t %c %% with width, zero padding and
// precision for %s. No other flags; keep MCU cost low.

type stringError struct{ s string }

func (e *stringError) Error() string { return e.s }

func appendAny(dst []byte, v any) []byte {
	switch x := v.(type) {
	case string:
		return append(dst, x...)
	case []byte:
		return append(dst, x...)
	case bool:
		if x {
			return append(dst, "true"...)
		}
		return append(dst, "false"...)
	case error:
		return append(dst, x.Error()...)
	case interface{ String() string }:
		return append(dst, x.String()...)
	}
	if i, ok := toI64(v); ok {
		return conv.AppendInt(dst, i)
	}
	if u, ok := toU64(v); ok {
		return conv.AppendUint(dst, u)
	}
	return append(dst, "<unk>"...)
}

func toU64(v any) (uint64, bool) {
	switch t := v.(type) {
	case uint:
		return uint64(t), true
	case uint8:
		return uint64(t), true
	case uint16:
		return uint64(t), true
	case uint32:
		return uint64(t), true
	case uint64:
		return t, true
	case uintptr:
		return uint64(t), true
	}
	return 0, false
}

func toI64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	}
	return 0, false
}

func appendFormat(dst []byte, format string, args ...any) []byte {
	ai := 0
	for i := 0; i < len(format); {
		if format[i] != '%' {
			dst = append(dst, format[i])
			i++
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			dst = append(dst, '%')
			i += 2
			continue
		}
		i++
		zero := i < len(format) && format[i] == '0'
		width, prec, hasPrec := 0, 0, false
		i = parseNum(format, i, &width)
		if i < len(format) && format[i] == '.' {
			i++
			hasPrec = true
			i = parseNum(format, i, &prec)
		}
		if i >= len(format) || ai >= len(args) {
			return dst
		}
		verb := format[i]
		arg := args[ai]
		ai++
		i++

		start := len(dst)
		switch verb {
		case 's', 'v':
			dst = appendAny(dst, arg)
			if hasPrec && len(dst)-start > prec {
				dst = dst[:start+prec]
			}
		case 'q':
			dst = appendQuoted(dst, string(appendAny(nil, arg)))
		case 'd', 'u':
			dst = appendAny(dst, arg)
		case 'x', 'X':
			u, ok := toU64(arg)
			if !ok {
				if s, ok2 := toI64(arg); ok2 {
					u = uint64(s)
				}
			}
			dst = appendHex(dst, u, verb == 'X')
		case 'c':
			if r, ok := toI64(arg); ok {
				dst = utf8.AppendRune(dst, rune(r))
			}
		case 't':
			b, _ := arg.(bool)
			dst = appendAny(dst, b)
		default:
			// Unknown verb: write it literally to aid debugging.
			dst = append(dst, '%', verb)
			continue
		}
		if pad := width - (len(dst) - start); pad > 0 {
			dst = padLeft(dst, start, pad, zero)
		}
	}
	return dst
}

func appendHex(dst []byte, u uint64, upper bool) []byte {
	digits := "0123456789abcdef"
	if upper {
		digits = "0123456789ABCDEF"
	}
	var buf [16]byte
	i := len(buf)
	for {
		i--
		buf[i] = digits[u&0xF]
		u >>= 4
		if u == 0 {
			break
		}
	}
	return append(dst, buf[i:]...)
}

// padLeft shifts dst[start:] right by pad bytes and fills the gap.
func padLeft(dst []byte, start, pad int, zero bool) []byte {
	fill := byte(' ')
	if zero {
		fill = '0'
	}
	n := len(dst)
	for j := 0; j < pad; j++ {
		dst = append(dst, 0)
	}
	copy(dst[start+pad:], dst[start:n])
	for j := 0; j < pad; j++ {
		dst[start+j] = fill
	}
	return dst
}

func parseNum(s string, i int, out *int) int {
	n := 0
	start := i
	for i < len(s) && '0' <= s[i] && s[i] <= '9' {
		n = n*10 + int(s[i]-'0')
		i++
	}
	if i > start {
		*out = n
	}
	return i
}

// appendQuoted is a minimal %q: escape backslash, quotes and common controls.
func appendQuoted(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', '"':
			dst = append(dst, '\\', s[i])
		case '\n':
			dst = append(dst, '\\', 'n')
		case '\r':
			dst = append(dst, '\\', 'r')
		case '\t':
			dst = append(dst, '\\', 't')
		default:
			dst = append(dst, s[i])
		}
	}
	return append(dst, '"')
}
