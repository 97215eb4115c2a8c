package session

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// FrameResult is what the Reassembler and Sequencer emit: either a
// successfully produced Frame, or a discard error for a frame_id that
// was evicted before completion/emission.
type FrameResult struct {
	Frame Frame
	Err   error
}

// MetricsRecorder observes pipeline outcomes across the Reassembler
// and Segmenter. Kept as an interface here, the same way
// chainactions.MetricsRecorder is, so this package has no dependency
// on the concrete metrics package.
type MetricsRecorder interface {
	RecordFrameDiscarded(reason string)
	RecordFrameReassembled()
	RecordSegmentEmitted()
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) RecordFrameDiscarded(string) {}
func (noopMetricsRecorder) RecordFrameReassembled()     {}
func (noopMetricsRecorder) RecordSegmentEmitted()       {}

// Reassembler is a stream adaptor that reads Segments and emits
// completed Frames, or FrameDiscardedError for frames that expire
// before every segment arrives.
//
// MaxAge bounds how long an incomplete frame is kept around.
// Capacity bounds how many incomplete frames may be buffered at once;
// once it holds more than Capacity, the Reassembler stops reading new
// segments, which forces the oldest incomplete frames toward eviction.
type Reassembler struct {
	MaxAge   time.Duration
	Capacity int
	Log      *log.Logger
	Metrics  MetricsRecorder

	incomplete map[FrameID]*FrameBuilder
}

// NewReassembler constructs a Reassembler with the given parameters.
// metrics may be nil, in which case outcomes are simply not recorded.
func NewReassembler(maxAge time.Duration, capacity int, logger *log.Logger, metrics MetricsRecorder) *Reassembler {
	if logger == nil {
		logger = log.Default()
	}
	if metrics == nil {
		metrics = noopMetricsRecorder{}
	}
	return &Reassembler{
		MaxAge:     maxAge,
		Capacity:   capacity,
		Log:        logger,
		Metrics:    metrics,
		incomplete: make(map[FrameID]*FrameBuilder),
	}
}

// Run drives the reassembly loop: it consumes segments from in and
// produces FrameResults on out until in is closed and every incomplete
// frame has been drained (each yielding FrameDiscardedError), or ctx
// is cancelled. Run closes out before returning.
func (r *Reassembler) Run(ctx context.Context, in <-chan Segment, out chan<- FrameResult) {
	defer close(out)

	ticker := time.NewTicker(r.tickInterval())
	defer ticker.Stop()

	inputClosed := false

	for {
		if !inputClosed && len(r.incomplete) == 0 {
			// Nothing buffered yet; no need to evict, just wait for input.
			select {
			case <-ctx.Done():
				r.drain(ctx, out)
				return
			case seg, ok := <-in:
				if !ok {
					inputClosed = true
					continue
				}
				r.accept(seg, out)
				continue
			}
		}

		if inputClosed {
			// Source exhausted: every remaining incomplete frame is
			// definitely lost, regardless of age.
			r.drain(ctx, out)
			return
		}

		if len(r.incomplete) > r.Capacity {
			// At capacity: do not poll the source, only wait for expiry.
			r.Log.Warn("reassembler at capacity, not polling source", "capacity", r.Capacity)
			select {
			case <-ctx.Done():
				r.drain(ctx, out)
				return
			case <-ticker.C:
				r.evict(out)
				continue
			}
		}

		select {
		case <-ctx.Done():
			r.drain(ctx, out)
			return
		case seg, ok := <-in:
			if !ok {
				inputClosed = true
				continue
			}
			r.accept(seg, out)
		case <-ticker.C:
			r.evict(out)
		}
	}
}

func (r *Reassembler) tickInterval() time.Duration {
	if r.MaxAge <= 0 {
		return time.Second
	}
	interval := r.MaxAge / 4
	if interval <= 0 {
		interval = time.Millisecond
	}
	return interval
}

func (r *Reassembler) accept(seg Segment, out chan<- FrameResult) {
	builder, exists := r.incomplete[seg.FrameID]
	if exists {
		if err := builder.AddSegment(seg); err != nil {
			r.Log.Debug("dropping invalid segment", "seg", seg.ID(), "err", err)
			return
		}
		if builder.IsComplete() {
			delete(r.incomplete, seg.FrameID)
			if frame, err := builder.Finalize(); err == nil {
				r.Metrics.RecordFrameReassembled()
				out <- FrameResult{Frame: frame}
			} else {
				out <- FrameResult{Err: err}
			}
		}
		return
	}

	if len(r.incomplete) > r.Capacity {
		r.Log.Debug("dropping segment for new frame, reassembler at capacity", "seg", seg.ID())
		r.Metrics.RecordFrameDiscarded("capacity")
		return
	}

	builder = NewFrameBuilder(seg)
	if builder.IsComplete() {
		if frame, err := builder.Finalize(); err == nil {
			r.Metrics.RecordFrameReassembled()
			out <- FrameResult{Frame: frame}
		} else {
			out <- FrameResult{Err: err}
		}
		return
	}
	r.incomplete[seg.FrameID] = builder
}

// evict removes every incomplete builder older than MaxAge, emitting
// a FrameDiscardedError for each.
func (r *Reassembler) evict(out chan<- FrameResult) {
	now := time.Now()
	for id, builder := range r.incomplete {
		if now.Sub(builder.LastRecv()) >= r.MaxAge {
			delete(r.incomplete, id)
			r.Metrics.RecordFrameDiscarded("age")
			out <- FrameResult{Err: &FrameDiscardedError{FrameID: id}}
		}
	}
}

// drain discards every remaining incomplete frame unconditionally,
// used when the source stream ends or the context is cancelled.
func (r *Reassembler) drain(ctx context.Context, out chan<- FrameResult) {
	for id := range r.incomplete {
		delete(r.incomplete, id)
		r.Metrics.RecordFrameDiscarded("drain")
		select {
		case out <- FrameResult{Err: &FrameDiscardedError{FrameID: id}}:
		case <-ctx.Done():
			return
		}
	}
}
