package session

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mixsession/core/internal/worker"
)

// Config bounds the behavior of a Session's framing, reassembly and
// sequencing stages.
type Config struct {
	// MTU is the largest wire size of a single segment, header
	// included.
	MTU int
	// FrameSize is the target number of payload bytes grouped into a
	// single Frame before it is flushed to the wire. Clamped into
	// [MTU, MTU*MaxSegmentsPerFrame].
	FrameSize int
	// ReassemblyMaxAge bounds how long an incomplete frame is held
	// before being discarded.
	ReassemblyMaxAge time.Duration
	// ReassemblyCapacity bounds how many incomplete frames may be
	// buffered concurrently.
	ReassemblyCapacity int
	// SequencerMaxWait bounds how long the Sequencer waits for the
	// next expected FrameID before discarding it.
	SequencerMaxWait time.Duration
	// SequencerCapacity bounds how many out-of-order frames the
	// Sequencer may hold at once.
	SequencerCapacity int
	// QueueDepth sizes the internal channels linking the pipeline
	// stages together.
	QueueDepth int
	// DefaultTimeout bounds how long Read waits for data when no
	// deadline has been set via SetReadDeadline. Write does not use it.
	DefaultTimeout time.Duration
}

// SegmentSender delivers a single outbound Segment to the wire. It is
// the seam between a Session and whatever carries PacketMessages
// across the mix network.
type SegmentSender interface {
	SendSegment(ctx context.Context, seg Segment) error
}

type sessionState uint8

const (
	stateOpen sessionState = iota
	stateClosing
	stateClosed
)

// Session is a net.Conn built from the Segmenter, Reassembler and
// Sequencer adaptors: writes are chopped into segments and frames on
// the way out, while inbound segments are reassembled and put back in
// FrameID order before being exposed to Read.
type Session struct {
	sync.Mutex
	worker.Worker

	cfg    Config
	log    *log.Logger
	cancel context.CancelFunc

	laddr, raddr net.Addr

	segmenter *Segmenter
	sendOut   chan Segment

	readBuf bytes.Buffer
	onRead  chan struct{}

	discarded int64

	wState, rState sessionState
	readDeadline   time.Time
	writeDeadline  time.Time

	onWriteClose chan struct{}
	closeOnce    sync.Once
}

// NewSession wires a Session around sender (for outbound delivery) and
// rawIn (a channel of inbound Segments, fed by the caller's transport
// receive loop). The returned Session owns the pipeline goroutines and
// must be closed with Close.
func NewSession(ctx context.Context, cfg Config, sender SegmentSender, rawIn <-chan Segment, laddr, raddr net.Addr, logger *log.Logger, metrics MetricsRecorder) *Session {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 64
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(ctx)

	s := &Session{
		cfg:          cfg,
		log:          logger,
		cancel:       cancel,
		laddr:        laddr,
		raddr:        raddr,
		onRead:       make(chan struct{}, 1),
		onWriteClose: make(chan struct{}),
	}

	s.sendOut = make(chan Segment, cfg.QueueDepth)
	s.segmenter = NewSegmenter(ctx, s.sendOut, cfg.MTU, cfg.FrameSize, metrics)

	reassembled := make(chan FrameResult, cfg.QueueDepth)
	framesForSeq := make(chan Frame, cfg.QueueDepth)
	bypassErrs := make(chan FrameResult, cfg.QueueDepth)
	seqOut := make(chan FrameResult, cfg.QueueDepth)
	ordered := make(chan FrameResult, cfg.QueueDepth)

	reassembler := NewReassembler(cfg.ReassemblyMaxAge, cfg.ReassemblyCapacity, logger, metrics)
	sequencer := NewSequencer(cfg.SequencerMaxWait, cfg.SequencerCapacity, logger)

	s.Go(func() { reassembler.Run(ctx, rawIn, reassembled) })
	s.Go(func() { s.demux(ctx, reassembled, framesForSeq, bypassErrs) })
	s.Go(func() { sequencer.Run(ctx, framesForSeq, seqOut) })
	s.Go(func() { s.mergeInbound(ctx, seqOut, bypassErrs, ordered) })
	s.Go(func() { s.deliver(ctx, ordered) })
	s.Go(func() { s.pumpSend(ctx, sender) })

	return s
}

// demux splits reassembler output: already-terminal discard errors go
// straight to bypassErrs, completed frames go to the sequencer input.
func (s *Session) demux(ctx context.Context, in <-chan FrameResult, frames chan<- Frame, bypass chan<- FrameResult) {
	defer close(frames)
	defer close(bypass)
	for res := range in {
		if res.Err != nil {
			select {
			case bypass <- res:
			case <-ctx.Done():
				return
			}
			continue
		}
		select {
		case frames <- res.Frame:
		case <-ctx.Done():
			return
		}
	}
}

// mergeInbound fans seqOut and bypassErrs into a single ordered
// stream, closing it once both sources are exhausted.
func (s *Session) mergeInbound(ctx context.Context, seqOut, bypass <-chan FrameResult, out chan<- FrameResult) {
	defer close(out)
	for seqOut != nil || bypass != nil {
		select {
		case res, ok := <-seqOut:
			if !ok {
				seqOut = nil
				continue
			}
			select {
			case out <- res:
			case <-ctx.Done():
				return
			}
		case res, ok := <-bypass:
			if !ok {
				bypass = nil
				continue
			}
			select {
			case out <- res:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// deliver consumes the ordered stream, appending delivered frame data
// to readBuf and logging discards.
func (s *Session) deliver(ctx context.Context, ordered <-chan FrameResult) {
	for {
		select {
		case res, ok := <-ordered:
			if !ok {
				s.Lock()
				s.rState = stateClosed
				s.Unlock()
				s.signalRead()
				return
			}
			if res.Err != nil {
				s.Lock()
				s.discarded++
				s.Unlock()
				s.log.Warn("frame discarded before delivery", "err", res.Err)
				continue
			}
			s.Lock()
			s.readBuf.Write(res.Frame.Data)
			s.Unlock()
			s.signalRead()
		case <-ctx.Done():
			return
		case <-s.HaltCh():
			return
		}
	}
}

func (s *Session) signalRead() {
	select {
	case s.onRead <- struct{}{}:
	default:
	}
}

// pumpSend drains segments produced by the Segmenter to sender.
func (s *Session) pumpSend(ctx context.Context, sender SegmentSender) {
	for {
		select {
		case seg, ok := <-s.sendOut:
			if !ok {
				return
			}
			if err := sender.SendSegment(ctx, seg); err != nil {
				s.log.Error("send segment failed", "frame_id", seg.FrameID, "seq_idx", seg.SeqIdx, "err", err)
			}
		case <-ctx.Done():
			return
		case <-s.HaltCh():
			return
		}
	}
}

// Read implements io.Reader, blocking until data is available, the
// inbound segment channel has been closed and fully drained (io.EOF),
// the deadline expires, or the Session is closed.
func (s *Session) Read(p []byte) (int, error) {
	s.Lock()
	if !s.readDeadline.IsZero() && time.Now().After(s.readDeadline) {
		s.Unlock()
		return 0, os.ErrDeadlineExceeded
	}
	if s.readBuf.Len() == 0 && s.rState == stateClosed {
		s.Unlock()
		return 0, io.EOF
	}
	if s.readBuf.Len() == 0 {
		s.Unlock()
		timeout := s.cfg.DefaultTimeout
		if !s.readDeadline.IsZero() {
			timeout = time.Until(s.readDeadline)
		}
		select {
		case <-time.After(timeout):
			return 0, os.ErrDeadlineExceeded
		case <-s.HaltCh():
			return 0, ErrStreamClosed
		case <-s.onRead:
		}
		s.Lock()
	}
	n, err := s.readBuf.Read(p)
	s.Unlock()
	if err == io.EOF && n > 0 {
		return n, nil
	}
	return n, err
}

// Write implements io.Writer by feeding p through the Segmenter.
func (s *Session) Write(p []byte) (int, error) {
	s.Lock()
	if s.wState != stateOpen {
		s.Unlock()
		return 0, ErrStreamClosed
	}
	if !s.writeDeadline.IsZero() && time.Now().After(s.writeDeadline) {
		s.Unlock()
		return 0, os.ErrDeadlineExceeded
	}
	s.Unlock()

	return s.segmenter.Write(p)
}

// Close flushes any buffered write data, terminates the Segmenter, and
// halts every pipeline goroutine owned by this Session.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.Lock()
		s.wState = stateClosed
		s.Unlock()
		err = s.segmenter.Close()
		s.cancel()
		s.Halt()
		close(s.onWriteClose)
	})
	return err
}

// LocalAddr returns the local network address, if known.
func (s *Session) LocalAddr() net.Addr { return s.laddr }

// RemoteAddr returns the remote network address, if known.
func (s *Session) RemoteAddr() net.Addr { return s.raddr }

// SetDeadline sets both the read and write deadlines.
func (s *Session) SetDeadline(t time.Time) error {
	s.Lock()
	defer s.Unlock()
	s.readDeadline = t
	s.writeDeadline = t
	return nil
}

// SetReadDeadline sets the deadline for future Read calls.
func (s *Session) SetReadDeadline(t time.Time) error {
	s.Lock()
	defer s.Unlock()
	s.readDeadline = t
	return nil
}

// SetWriteDeadline sets the deadline for future Write calls.
func (s *Session) SetWriteDeadline(t time.Time) error {
	s.Lock()
	defer s.Unlock()
	s.writeDeadline = t
	return nil
}

// DiscardedFrames reports how many frames were lost to reassembly or
// sequencing timeouts over the life of the Session.
func (s *Session) DiscardedFrames() int64 {
	s.Lock()
	defer s.Unlock()
	return s.discarded
}

var _ net.Conn = (*Session)(nil)
