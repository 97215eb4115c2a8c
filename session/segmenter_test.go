package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testMTU = 1000

func testSMTU() int { return testMTU - SegmentOverhead }

func TestSegmenterBuffersUntilFlushed(t *testing.T) {
	out := make(chan Segment, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seg := NewSegmenter(ctx, out, testMTU, 1500, nil)
	n, err := seg.Write([]byte("test"))
	require.NoError(t, err)
	require.Equal(t, 4, n)

	select {
	case <-out:
		t.Fatal("should not have emitted a segment before flush")
	case <-time.After(10 * time.Millisecond):
	}

	require.NoError(t, seg.Flush())

	got := <-out
	require.Equal(t, FrameID(1), got.FrameID)
	require.Equal(t, SeqNum(1), got.SeqLen)
	require.Equal(t, SeqNum(0), got.SeqIdx)
	require.Equal(t, []byte("test"), got.Data)
}

func TestSegmenterSegmentsCompleteFrame(t *testing.T) {
	smtu := testSMTU()
	const expectedSegs = 3
	frameSize := smtu * expectedSegs
	out := make(chan Segment, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seg := NewSegmenter(ctx, out, testMTU, frameSize, nil)
	data := make([]byte, frameSize)
	for i := range data {
		data[i] = byte(i)
	}

	n, err := seg.Write(data)
	require.NoError(t, err)
	require.Equal(t, frameSize, n)

	for i := 0; i < expectedSegs; i++ {
		got := <-out
		require.Equal(t, FrameID(1), got.FrameID)
		require.Equal(t, SeqNum(i), got.SeqIdx)
		require.Equal(t, SeqNum(expectedSegs), got.SeqLen)
		require.Equal(t, data[i*smtu:i*smtu+smtu], got.Data)
	}

	require.NoError(t, seg.Close())
	_, ok := <-out
	require.False(t, ok)
}

func TestSegmenterFlushesPartialFrameOnClose(t *testing.T) {
	smtu := testSMTU()
	const fullSegs = 3
	frameSize := smtu * fullSegs
	out := make(chan Segment, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seg := NewSegmenter(ctx, out, testMTU, frameSize, nil)
	data := make([]byte, frameSize+4)
	_, err := seg.Write(data)
	require.NoError(t, err)

	for i := 0; i < fullSegs; i++ {
		<-out
	}

	select {
	case <-out:
		t.Fatal("incomplete trailing frame should not be emitted before close")
	case <-time.After(10 * time.Millisecond):
	}

	require.NoError(t, seg.Close())

	got := <-out
	require.Equal(t, FrameID(2), got.FrameID)
	require.Equal(t, SeqNum(0), got.SeqIdx)
	require.Equal(t, SeqNum(1), got.SeqLen)
	require.Equal(t, 4, len(got.Data))

	_, ok := <-out
	require.False(t, ok)
}

func TestSegmenterClampsFrameSize(t *testing.T) {
	out := make(chan Segment, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seg := NewSegmenter(ctx, out, testMTU, 1, nil)
	require.Equal(t, testMTU, seg.frameSize)

	huge := NewSegmenter(ctx, out, testMTU, testMTU*MaxSegmentsPerFrame+1000, nil)
	require.Equal(t, testMTU*MaxSegmentsPerFrame, huge.frameSize)
}

func TestSegmenterRejectsWriteAfterClose(t *testing.T) {
	out := make(chan Segment, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seg := NewSegmenter(ctx, out, testMTU, testMTU, nil)
	require.NoError(t, seg.Close())

	_, err := seg.Write([]byte("x"))
	require.ErrorIs(t, err, ErrStreamClosed)
}
