package session

import (
	"context"
	"io"
)

// SegmentOverhead is the number of wire bytes a Segment spends on its
// header, unavailable to payload data.
const SegmentOverhead = SegmentHeaderSize

// Segmenter is a sink adaptor that chops a written byte stream into
// fixed-size Segments, grouped into Frames of FrameSize bytes, and
// delivers them on out. It implements io.WriteCloser.
//
// MTU bounds the wire size of a single segment, header included.
// FrameSize is clamped into [MTU, MTU*MaxSegmentsPerFrame] and governs
// how many segments accumulate before a Frame is flushed as a unit.
type Segmenter struct {
	ctx context.Context
	out chan<- Segment

	mtu       int
	frameSize int
	metrics   MetricsRecorder

	segBuffer      []byte
	readySegments  []Segment
	nextFrameID    FrameID
	currentFrameLn int
	closed         bool
}

// NewSegmenter constructs a Segmenter writing completed segments to
// out. FrameID numbering starts at 1. metrics may be nil, in which
// case emitted segments are simply not recorded.
func NewSegmenter(ctx context.Context, out chan<- Segment, mtu, frameSize int, metrics MetricsRecorder) *Segmenter {
	maxFrame := mtu * MaxSegmentsPerFrame
	switch {
	case frameSize < mtu:
		frameSize = mtu
	case frameSize > maxFrame:
		frameSize = maxFrame
	}
	if metrics == nil {
		metrics = noopMetricsRecorder{}
	}
	return &Segmenter{
		ctx:           ctx,
		out:           out,
		mtu:           mtu,
		frameSize:     frameSize,
		metrics:       metrics,
		segBuffer:     make([]byte, 0, mtu-SegmentOverhead),
		readySegments: make([]Segment, 0, frameSize/mtu+1),
		nextFrameID:   1,
	}
}

func (s *Segmenter) payloadCap() int {
	return s.mtu - SegmentOverhead
}

// Write buffers p, segmenting and flushing completed segments/frames
// as their size thresholds are reached. It always consumes all of p
// before returning, unless it encounters an error.
func (s *Segmenter) Write(p []byte) (int, error) {
	if s.closed {
		return 0, ErrStreamClosed
	}

	total := 0
	for len(p) > 0 {
		remainingSeg := s.payloadCap() - len(s.segBuffer)
		remainingFrame := s.frameSize - s.currentFrameLn - len(s.segBuffer)
		n := len(p)
		if remainingSeg < n {
			n = remainingSeg
		}
		if remainingFrame < n {
			n = remainingFrame
		}
		if n <= 0 {
			return total, io.ErrShortWrite
		}

		s.segBuffer = append(s.segBuffer, p[:n]...)
		p = p[n:]
		total += n

		if s.currentFrameLn+len(s.segBuffer) == s.frameSize {
			// This write exactly completes the frame, even if the
			// current segment is shorter than a full MTU payload.
			s.completeSegment()
			if err := s.flushSegments(); err != nil {
				return total, err
			}
		} else if len(s.segBuffer) == s.payloadCap() {
			s.completeSegment()
			if s.currentFrameLn == s.frameSize {
				if err := s.flushSegments(); err != nil {
					return total, err
				}
			}
		}
	}
	return total, nil
}

// Flush forces out whatever has been buffered as a final, possibly
// short, segment of the current frame, then sends every segment ready
// so far. If anything was sent, the frame is finished and later writes
// start the next frame_id.
func (s *Segmenter) Flush() error {
	if s.closed {
		return ErrStreamClosed
	}
	if len(s.segBuffer) > 0 {
		s.completeSegment()
	}
	return s.flushSegments()
}

// Close flushes any buffered data and closes the output channel. It
// is not safe to call Write after Close.
func (s *Segmenter) Close() error {
	if s.closed {
		return nil
	}
	if len(s.segBuffer) > 0 {
		s.completeSegment()
	}
	err := s.flushSegments()
	s.closed = true
	close(s.out)
	return err
}

// completeSegment moves the accumulated seg_buffer into a new segment
// awaiting seq_idx/seq_len assignment at flush time.
func (s *Segmenter) completeSegment() {
	data := make([]byte, len(s.segBuffer))
	copy(data, s.segBuffer)
	s.segBuffer = s.segBuffer[:0]
	s.currentFrameLn += len(data)
	s.readySegments = append(s.readySegments, Segment{FrameID: s.nextFrameID, Data: data})
}

// flushSegments assigns seq_idx/seq_len across every pending segment
// of the current frame and sends them out in order, then advances to
// the next frame_id.
func (s *Segmenter) flushSegments() error {
	seqLen := len(s.readySegments)
	if seqLen == 0 {
		return nil
	}

	for i := range s.readySegments {
		s.readySegments[i].SeqIdx = SeqNum(i)
		s.readySegments[i].SeqLen = SeqNum(seqLen)
		select {
		case s.out <- s.readySegments[i]:
			s.metrics.RecordSegmentEmitted()
		case <-s.ctx.Done():
			return s.ctx.Err()
		}
	}
	s.readySegments = s.readySegments[:0]
	s.nextFrameID++
	s.currentFrameLn = 0
	return nil
}
