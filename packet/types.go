// Package packet implements the PacketMessage codec: the header,
// SURB and payload layering carried inside a single mixnet packet,
// ahead of whatever fixed-size padding scheme the transport applies.
package packet

// PacketSignal is a small flag set passed up between the packet
// sender and its destination, carried in the upper 4 bits of the
// header byte.
type PacketSignal uint8

const (
	// SurbDistress indicates the other party may soon run out of
	// SURBs to reply with. Has no effect on forward-path packets.
	SurbDistress PacketSignal = 0b0001
	// OutOfSurbs indicates the other party has run out of SURBs;
	// this may be the last message they can send. Implies
	// SurbDistress.
	OutOfSurbs PacketSignal = 0b0011
)

// signalMask is the set of bits a PacketSignal value may occupy; it
// must fit in the upper nibble of the header byte.
const signalMask = 0b0000_1111

// Has reports whether every bit of flag is set in s.
func (s PacketSignal) Has(flag PacketSignal) bool {
	return s&flag == flag
}

// MaxSurbsPerMessage is the largest number of SURBs a single
// PacketMessage may carry: the surb_count nibble caps out at 15.
const MaxSurbsPerMessage = 0b0000_1111

// HeaderLen is the fixed size, in bytes, of the PacketMessage header.
const HeaderLen = 1

// SURB is an opaque, fixed-size single-use reply block. Its contents
// are meaningless to this package; only its length is checked against
// the codec's configured SurbSize.
type SURB []byte

// PacketParts is the decomposed view of a PacketMessage: a (possibly
// empty) list of SURBs, the payload, and the signals passed alongside
// it.
type PacketParts struct {
	Surbs   []SURB
	Payload []byte
	Signals PacketSignal
}
