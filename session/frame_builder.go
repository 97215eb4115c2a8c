package session

import "time"

// FrameBuilder accumulates the segments of a single frame until it is
// complete. It is created on receipt of the first segment of an
// unseen frame_id and consumed (via Finalize) once every segment has
// arrived.
type FrameBuilder struct {
	frameID      FrameID
	segments     []*Segment
	segRemaining SeqNum
	recvBytes    int
	lastRecv     time.Time
}

// NewFrameBuilder creates a builder from the first segment observed
// for a frame.
func NewFrameBuilder(first Segment) *FrameBuilder {
	fb := &FrameBuilder{
		frameID:      first.FrameID,
		segments:     make([]*Segment, first.SeqLen),
		segRemaining: first.SeqLen - 1,
		recvBytes:    len(first.Data),
		lastRecv:     time.Now(),
	}
	fb.segments[first.SeqIdx] = &first
	return fb
}

// FrameID returns the frame_id this builder is accumulating.
func (fb *FrameBuilder) FrameID() FrameID {
	return fb.frameID
}

// LastRecv returns the time the last segment was accepted.
func (fb *FrameBuilder) LastRecv() time.Time {
	return fb.lastRecv
}

// IsComplete reports whether every segment slot has been filled.
func (fb *FrameBuilder) IsComplete() bool {
	return fb.segRemaining == 0
}

// AddSegment inserts a subsequent segment into the builder. It fails
// with ErrInvalidSegment if the segment belongs to a different frame,
// has an inconsistent seq_len, an out-of-range seq_idx, a slot that is
// already occupied, or if the builder is already complete.
func (fb *FrameBuilder) AddSegment(seg Segment) error {
	idx := int(seg.SeqIdx)
	if seg.FrameID != fb.frameID ||
		idx >= len(fb.segments) ||
		int(seg.SeqLen) != len(fb.segments) ||
		fb.segRemaining == 0 ||
		fb.segments[idx] != nil {
		return ErrInvalidSegment
	}

	fb.recvBytes += len(seg.Data)
	fb.segRemaining--
	fb.segments[idx] = &seg
	fb.lastRecv = time.Now()
	return nil
}

// Finalize concatenates every segment's data, in index order, into a
// Frame. It fails with IncompleteFrameError unless IsComplete.
func (fb *FrameBuilder) Finalize() (Frame, error) {
	if !fb.IsComplete() {
		return Frame{}, &IncompleteFrameError{FrameID: fb.frameID}
	}

	data := make([]byte, 0, fb.recvBytes)
	for _, seg := range fb.segments {
		if seg == nil {
			// Unreachable given IsComplete, kept as a defensive invariant check.
			return Frame{}, &IncompleteFrameError{FrameID: fb.frameID}
		}
		data = append(data, seg.Data...)
	}

	return Frame{FrameID: fb.frameID, Data: data}, nil
}

// MissingBitmap returns a bitmap (up to 64 bits) in which bit i is set
// iff segment slot i has not yet been received.
func (fb *FrameBuilder) MissingBitmap() uint64 {
	var bitmap uint64
	limit := len(fb.segments)
	if limit > 64 {
		limit = 64
	}
	for i := 0; i < limit; i++ {
		if fb.segments[i] == nil {
			bitmap |= 1 << uint(i)
		}
	}
	return bitmap
}
