package session

import (
	"container/heap"
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// frameHeap is a min-heap of Frames ordered by FrameID.
type frameHeap []Frame

func (h frameHeap) Len() int           { return len(h) }
func (h frameHeap) Less(i, j int) bool { return h[i].FrameID < h[j].FrameID }
func (h frameHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *frameHeap) Push(x any) { *h = append(*h, x.(Frame)) }

func (h *frameHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Sequencer is a stream adaptor that re-orders Frames arriving out of
// order, yielding them starting at FrameID 1 in strictly increasing
// order.
//
// MaxWait bounds how long the Sequencer waits for the next expected
// FrameID before discarding it and advancing past it. Capacity bounds
// how many out-of-order frames may be held at once; once reached, the
// missing next FrameID is discarded immediately, without waiting out
// MaxWait, to free room.
//
// FrameID 0 is the end-of-sequence sentinel: once nextID reaches 0
// (via wraparound, or because it was never seeded otherwise),
// Sequencer.Run terminates immediately and drops anything buffered.
type Sequencer struct {
	MaxWait  time.Duration
	Capacity int
	Log      *log.Logger

	buffer      frameHeap
	nextID      FrameID
	lastEmitted time.Time
}

// NewSequencer constructs a Sequencer expecting FrameIDs starting at 1.
func NewSequencer(maxWait time.Duration, capacity int, logger *log.Logger) *Sequencer {
	if logger == nil {
		logger = log.Default()
	}
	return &Sequencer{
		MaxWait:  maxWait,
		Capacity: capacity,
		Log:      logger,
		buffer:   make(frameHeap, 0, capacity),
		nextID:   1,
	}
}

// Run drives the sequencing loop: it consumes Frames from in, which
// may arrive in any order, and produces FrameResults on out in strict
// FrameID order starting at 1. A FrameID that fails to show up within
// MaxWait is discarded (emitted as a FrameDiscardedError) so the
// sequence can advance past it. Run closes out before returning.
func (s *Sequencer) Run(ctx context.Context, in <-chan Frame, out chan<- FrameResult) {
	defer close(out)
	heap.Init(&s.buffer)
	s.lastEmitted = time.Now()

	timer := time.NewTimer(s.nonZero(s.MaxWait))
	defer timer.Stop()

	inputClosed := false

	for {
		if s.nextID == 0 {
			s.Log.Debug("end of frame sequence reached")
			return
		}

		if inputClosed {
			if !s.drainNext(out) {
				return
			}
			continue
		}

		if s.emitOrDiscard(out) {
			continue
		}

		if len(s.buffer) >= s.Capacity {
			s.Log.Warn("sequencer buffer full, not polling source", "capacity", s.Capacity)
			select {
			case <-ctx.Done():
				s.finalDrain(ctx, out)
				return
			case <-timer.C:
				timer.Reset(s.nonZero(s.MaxWait))
			}
			continue
		}

		select {
		case <-ctx.Done():
			s.finalDrain(ctx, out)
			return
		case frame, ok := <-in:
			if !ok {
				inputClosed = true
				continue
			}
			s.accept(frame)
		case <-timer.C:
			timer.Reset(s.nonZero(s.MaxWait))
		}
	}
}

func (s *Sequencer) nonZero(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Second
	}
	return d
}

// accept pushes a freshly-arrived frame onto the heap, silently
// dropping it if its FrameID has already been passed.
func (s *Sequencer) accept(frame Frame) {
	if frame.FrameID < s.nextID {
		s.Log.Debug("dropping stale frame", "frame_id", frame.FrameID, "next_id", s.nextID)
		return
	}
	if len(s.buffer) == 0 {
		s.lastEmitted = time.Now()
	}
	heap.Push(&s.buffer, frame)
}

// emitOrDiscard inspects the lowest-FrameID entry in the buffer. If it
// matches nextID it is emitted. Otherwise, once MaxWait has elapsed
// since the last emission or the buffer is full, nextID itself is
// discarded so the sequence can advance. It reports whether it took
// either action, so the caller can keep draining without waiting on
// new input or the timer.
func (s *Sequencer) emitOrDiscard(out chan<- FrameResult) bool {
	if len(s.buffer) == 0 {
		return false
	}

	top := s.buffer[0]
	if top.FrameID == s.nextID {
		heap.Pop(&s.buffer)
		out <- FrameResult{Frame: top}
		s.nextID++
		s.lastEmitted = time.Now()
		return true
	}

	if time.Since(s.lastEmitted) >= s.MaxWait || len(s.buffer) >= s.Capacity {
		discarded := s.nextID
		s.nextID++
		s.lastEmitted = time.Now()
		out <- FrameResult{Err: &FrameDiscardedError{FrameID: discarded}}
		return true
	}

	return false
}

// drainNext resolves exactly one buffered entry once the source has
// closed: decisions are forced, ignoring MaxWait and Capacity, since
// there is nothing left to wait for. It reports whether the buffer had
// anything left to resolve.
func (s *Sequencer) drainNext(out chan<- FrameResult) bool {
	if len(s.buffer) == 0 {
		return false
	}

	top := s.buffer[0]
	switch {
	case top.FrameID < s.nextID:
		// Already passed; drop silently.
		heap.Pop(&s.buffer)
	case top.FrameID == s.nextID:
		heap.Pop(&s.buffer)
		out <- FrameResult{Frame: top}
		s.nextID++
	default:
		// top is not yet due; leave it buffered and discard the gap
		// in front of it instead.
		discarded := s.nextID
		s.nextID++
		out <- FrameResult{Err: &FrameDiscardedError{FrameID: discarded}}
	}
	return true
}

// finalDrain resolves every remaining buffered entry on context
// cancellation, giving up on a send only if ctx is done.
func (s *Sequencer) finalDrain(ctx context.Context, out chan<- FrameResult) {
	for s.nextID != 0 && len(s.buffer) > 0 {
		top := s.buffer[0]
		var result FrameResult
		switch {
		case top.FrameID < s.nextID:
			heap.Pop(&s.buffer)
			continue
		case top.FrameID == s.nextID:
			heap.Pop(&s.buffer)
			result = FrameResult{Frame: top}
			s.nextID++
		default:
			// top is not yet due; leave it buffered and discard the
			// gap in front of it instead.
			result = FrameResult{Err: &FrameDiscardedError{FrameID: s.nextID}}
			s.nextID++
		}
		select {
		case out <- result:
		case <-ctx.Done():
			return
		}
	}
}
