package packet

import "errors"

var (
	// ErrTooManySurbs is returned when a PacketParts carries more than
	// MaxSurbsPerMessage SURBs.
	ErrTooManySurbs = errors.New("packet: too many surbs")
	// ErrInvalidSignals is returned when the signal set does not fit
	// in the 4 bits reserved for it in the header byte.
	ErrInvalidSignals = errors.New("packet: signals exceed 4 bits")
	// ErrTooLarge is returned when header + surbs + payload would
	// exceed the configured maximum packet size.
	ErrTooLarge = errors.New("packet: encoded size exceeds maximum")
	// ErrWrongSurbSize is returned when a SURB's byte form does not
	// match the codec's configured SurbSize.
	ErrWrongSurbSize = errors.New("packet: surb has the wrong size")
	// ErrEmptyPacket is returned when Decode is given zero bytes.
	ErrEmptyPacket = errors.New("packet: empty input")
	// ErrTruncated is returned when the header claims more SURBs than
	// the input can possibly hold.
	ErrTruncated = errors.New("packet: truncated surb region")
)
