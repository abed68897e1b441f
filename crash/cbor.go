package crash

import (
	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding: the same record always
// produces the same bytes on the uplink.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("crash: CBOR encoder initialization failed: " + err.Error())
	}
}

// MarshalCBOR encodes c for shipping off-device (bridge crash frames).
func MarshalCBOR(c Context) ([]byte, error) { return encMode.Marshal(c) }

// UnmarshalCBOR decodes a context produced by MarshalCBOR.
func UnmarshalCBOR(p []byte) (Context, error) {
	var c Context
	err := cbor.Unmarshal(p, &c)
	return c, err
}
