package session

import (
	"errors"
	"fmt"
)

// ErrInvalidSegment is returned when a segment fails to decode or
// violates the frame_id/seq_idx/seq_len invariants.
var ErrInvalidSegment = errors.New("invalid segment")

// ErrStreamClosed is returned by Session I/O once the stream has been
// closed locally or by the peer.
var ErrStreamClosed = errors.New("session closed")

// FrameDiscardedError indicates a frame was evicted before it could be
// fully reassembled (Reassembler) or emitted in order (Sequencer).
type FrameDiscardedError struct {
	FrameID FrameID
}

func (e *FrameDiscardedError) Error() string {
	return fmt.Sprintf("frame %d discarded", e.FrameID)
}

// IncompleteFrameError indicates finalize() was called on a FrameBuilder
// that is still missing segments.
type IncompleteFrameError struct {
	FrameID FrameID
}

func (e *IncompleteFrameError) Error() string {
	return fmt.Sprintf("frame %d incomplete", e.FrameID)
}
