package conv

const hexd = "0123456789abcdef"

// AppendHex32 appends n as 8 zero-padded lower-case hex digits, no prefix.
func AppendHex32(dst []byte, n uint32) []byte {
	var buf [8]byte
	for i := len(buf) - 1; i >= 0; i-- {
		buf[i] = hexd[n&0xF]
		n >>= 4
	}
	return append(dst, buf[:]...)
}

// AppendHex8 appends b as 2 hex digits.
func AppendHex8(dst []byte, b byte) []byte {
	return append(dst, hexd[b>>4], hexd[b&0xF])
}
