package session

import (
	"encoding/binary"
	"fmt"
)

// FrameID identifies a Frame. It is monotonically increasing starting
// at 1; 0 is reserved as the Sequencer's end-of-sequence sentinel.
type FrameID = uint32

// SeqNum indexes a Segment within a Frame, bounding a frame to 255
// segments.
type SeqNum = uint8

// MaxSegmentsPerFrame is the largest value a SeqNum can represent,
// i.e. the maximum number of segments composing a single Frame.
const MaxSegmentsPerFrame = 255

// SegmentHeaderSize is the fixed wire size of a Segment header:
// 4 bytes frame_id + 1 byte seq_idx + 1 byte seq_len.
const SegmentHeaderSize = 6

// SegmentID uniquely identifies a Segment within a Frame.
type SegmentID struct {
	FrameID FrameID
	SeqIdx  SeqNum
}

func (s SegmentID) String() string {
	return fmt.Sprintf("seg(%d,%d)", s.FrameID, s.SeqIdx)
}

// Segment is a fixed-size, header-tagged fragment of a Frame, small
// enough to fit in one mixnet packet.
type Segment struct {
	FrameID FrameID
	SeqIdx  SeqNum
	SeqLen  SeqNum
	Data    []byte
}

// ID returns the SegmentID of this segment.
func (s *Segment) ID() SegmentID {
	return SegmentID{FrameID: s.FrameID, SeqIdx: s.SeqIdx}
}

// Len is the wire length of the segment: header plus data.
func (s *Segment) Len() int {
	return SegmentHeaderSize + len(s.Data)
}

// IsLast reports whether this is the final segment of its frame.
func (s *Segment) IsLast() bool {
	return s.SeqLen > 0 && s.SeqIdx == s.SeqLen-1
}

// Encode serializes the segment to its wire form:
// frame_id(4,BE) || seq_idx(1) || seq_len(1) || data.
func (s *Segment) Encode() []byte {
	out := make([]byte, SegmentHeaderSize+len(s.Data))
	binary.BigEndian.PutUint32(out[0:4], s.FrameID)
	out[4] = s.SeqIdx
	out[5] = s.SeqLen
	copy(out[6:], s.Data)
	return out
}

// DecodeSegment parses the wire form produced by Segment.Encode,
// failing with ErrInvalidSegment on malformed input.
func DecodeSegment(b []byte) (Segment, error) {
	if len(b) < SegmentHeaderSize+1 {
		return Segment{}, ErrInvalidSegment
	}

	frameID := binary.BigEndian.Uint32(b[0:4])
	seqIdx := b[4]
	seqLen := b[5]

	if frameID == 0 || seqIdx >= seqLen {
		return Segment{}, ErrInvalidSegment
	}

	data := make([]byte, len(b)-SegmentHeaderSize)
	copy(data, b[SegmentHeaderSize:])

	return Segment{FrameID: frameID, SeqIdx: seqIdx, SeqLen: seqLen, Data: data}, nil
}

// Frame is a contiguous block of application bytes assembled from all
// segments sharing a frame_id.
type Frame struct {
	FrameID FrameID
	Data    []byte
}
