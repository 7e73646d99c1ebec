package wk2132

// Object selects which of a channel's two bus endpoints a transaction
// targets. It occupies bit 0 of the bus address.
type Object uint8

const (
	ObjectRegister Object = 0
	ObjectFIFO     Object = 1
)

// DefaultAddr is the 5-bit board select prefix with both A1/A0 straps high.
const DefaultAddr uint8 = 0x0E

// Address returns the bus address of one endpoint of one channel.
//
//	b7..b3   b2..b1    b0
//	prefix   channel   object
//
// The prefix is the board select value (0 A1 A0 1 0), so with the default
// straps channel 0 answers at 0x70/0x71 and channel 1 at 0x72/0x73.
// Each field is masked to its width; the channel is not range checked.
func Address(boardSelect, channel uint8, obj Object) uint8 {
	return (boardSelect&0x1F)<<3 | (channel&0x03)<<1 | uint8(obj)&0x01
}
