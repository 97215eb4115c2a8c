package packet

import "fmt"

// Codec encodes and decodes PacketMessages of a fixed SURB size,
// bounded by MaxSize: the largest number of bytes the header, SURBs
// and payload may occupy before the paired, external padding codec
// pads the result up to the transport's fixed packet size.
type Codec struct {
	SurbSize int
	MaxSize  int
}

// NewCodec constructs a Codec for SURBs of surbSize bytes, rejecting
// any encoding whose header+surbs+payload would exceed maxSize.
func NewCodec(surbSize, maxSize int) *Codec {
	return &Codec{SurbSize: surbSize, MaxSize: maxSize}
}

// Encode serializes parts into header || surbs || payload. It never
// pads the result: that is the job of the paired codec operating on
// the fixed-size envelope this message is carried in.
func (c *Codec) Encode(parts PacketParts) ([]byte, error) {
	if len(parts.Surbs) > MaxSurbsPerMessage {
		return nil, fmt.Errorf("%w: %d", ErrTooManySurbs, len(parts.Surbs))
	}
	if parts.Signals&^signalMask != 0 {
		return nil, fmt.Errorf("%w: %#b", ErrInvalidSignals, parts.Signals)
	}
	for i, surb := range parts.Surbs {
		if len(surb) != c.SurbSize {
			return nil, fmt.Errorf("%w: surb %d has %d bytes, want %d", ErrWrongSurbSize, i, len(surb), c.SurbSize)
		}
	}

	total := HeaderLen + len(parts.Surbs)*c.SurbSize + len(parts.Payload)
	if total > c.MaxSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooLarge, total, c.MaxSize)
	}

	out := make([]byte, 0, total)
	out = append(out, byte(parts.Signals)<<4|byte(len(parts.Surbs)))
	for _, surb := range parts.Surbs {
		out = append(out, surb...)
	}
	out = append(out, parts.Payload...)
	return out, nil
}

// Decode parses the literal inverse of Encode: it does not strip any
// fixed-size padding, so the caller must already have depadded data
// down to its meaningful length.
func (c *Codec) Decode(data []byte) (PacketParts, error) {
	if len(data) == 0 {
		return PacketParts{}, ErrEmptyPacket
	}

	header := data[0]
	surbCount := int(header & signalMask)
	signals := PacketSignal(header >> 4)

	surbsEnd := HeaderLen + surbCount*c.SurbSize
	if surbsEnd > len(data) {
		return PacketParts{}, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, surbsEnd, len(data))
	}

	var surbs []SURB
	if surbCount > 0 {
		surbs = make([]SURB, surbCount)
		for i := 0; i < surbCount; i++ {
			start := HeaderLen + i*c.SurbSize
			surb := make(SURB, c.SurbSize)
			copy(surb, data[start:start+c.SurbSize])
			surbs[i] = surb
		}
	}

	payload := make([]byte, len(data)-surbsEnd)
	copy(payload, data[surbsEnd:])

	return PacketParts{Surbs: surbs, Payload: payload, Signals: signals}, nil
}
