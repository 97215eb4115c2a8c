package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func frameWithID(id FrameID) Frame { return Frame{FrameID: id, Data: []byte{byte(id)}} }

func TestSequencerReordersFrames(t *testing.T) {
	seq := NewSequencer(5*time.Second, 4096, nil)
	in := make(chan Frame, 8)
	out := make(chan FrameResult, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go seq.Run(ctx, in, out)

	order := []FrameID{4, 1, 5, 7, 8, 6, 2, 3}
	for _, id := range order {
		in <- frameWithID(id)
	}
	close(in)

	var got []FrameID
	for res := range out {
		require.NoError(t, res.Err)
		got = append(got, res.Frame.FrameID)
	}

	require.Equal(t, []FrameID{1, 2, 3, 4, 5, 6, 7, 8}, got)
}

func TestSequencerRejectsAlreadyEmittedFrameID(t *testing.T) {
	seq := NewSequencer(time.Second, 4096, nil)
	in := make(chan Frame)
	out := make(chan FrameResult)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go seq.Run(ctx, in, out)

	in <- frameWithID(1)
	res := <-out
	require.NoError(t, res.Err)
	require.Equal(t, FrameID(1), res.Frame.FrameID)

	in <- frameWithID(2)
	res = <-out
	require.NoError(t, res.Err)
	require.Equal(t, FrameID(2), res.Frame.FrameID)

	// Frame 2 has already been emitted; a repeat and a stale frame 1
	// should both be silently dropped, leaving frame 3 next.
	in <- frameWithID(2)
	in <- frameWithID(1)
	in <- frameWithID(3)

	res = <-out
	require.NoError(t, res.Err)
	require.Equal(t, FrameID(3), res.Frame.FrameID)

	close(in)
}

func TestSequencerDiscardsOnTimeout(t *testing.T) {
	timeout := 30 * time.Millisecond
	seq := NewSequencer(timeout, 4096, nil)
	in := make(chan Frame, 8)
	out := make(chan FrameResult, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go seq.Run(ctx, in, out)

	// FrameID 1 never arrives; 2 should be discarded-for after max_wait.
	in <- frameWithID(2)

	res := <-out
	require.Error(t, res.Err)
	var discarded *FrameDiscardedError
	require.ErrorAs(t, res.Err, &discarded)
	require.Equal(t, FrameID(1), discarded.FrameID)

	res = <-out
	require.NoError(t, res.Err)
	require.Equal(t, FrameID(2), res.Frame.FrameID)

	close(in)
}

func TestSequencerDrainsBufferedGapOnClose(t *testing.T) {
	// FrameID 1 never arrives; 2 and 3 do, then the source closes
	// before MaxWait elapses. The drain path must still discard the
	// gap at FrameID 1 without losing the already-buffered frames 2
	// and 3 behind it.
	seq := NewSequencer(time.Hour, 16, nil)
	in := make(chan Frame, 2)
	out := make(chan FrameResult, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go seq.Run(ctx, in, out)

	in <- frameWithID(3)
	in <- frameWithID(2)
	close(in)

	res := <-out
	require.Error(t, res.Err)
	var discarded *FrameDiscardedError
	require.ErrorAs(t, res.Err, &discarded)
	require.Equal(t, FrameID(1), discarded.FrameID)

	res = <-out
	require.NoError(t, res.Err)
	require.Equal(t, FrameID(2), res.Frame.FrameID)

	res = <-out
	require.NoError(t, res.Err)
	require.Equal(t, FrameID(3), res.Frame.FrameID)

	_, ok := <-out
	require.False(t, ok, "expected out to be closed after drain")
}

func TestSequencerTerminatesOnZeroSentinel(t *testing.T) {
	seq := NewSequencer(time.Second, 16, nil)
	seq.nextID = 0

	in := make(chan Frame)
	out := make(chan FrameResult)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		seq.Run(ctx, in, out)
		close(done)
	}()

	select {
	case _, ok := <-out:
		require.False(t, ok, "expected out to be closed immediately")
	case <-time.After(time.Second):
		t.Fatal("sequencer did not terminate on zero sentinel")
	}
	<-done
}
