package session

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// directSender hands segments straight to a peer's inbound channel,
// standing in for a real mix-network transport in tests.
type directSender struct {
	peerIn chan<- Segment
}

func (d *directSender) SendSegment(ctx context.Context, seg Segment) error {
	select {
	case d.peerIn <- seg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newLoopbackSessionPair(t *testing.T, cfg Config) (*Session, *Session, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	aIn := make(chan Segment, 64)
	bIn := make(chan Segment, 64)

	a := NewSession(ctx, cfg, &directSender{peerIn: bIn}, aIn, nil, nil, nil, nil)
	b := NewSession(ctx, cfg, &directSender{peerIn: aIn}, bIn, nil, nil, nil, nil)

	return a, b, cancel
}

func testConfig() Config {
	return Config{
		MTU:                testMTU,
		FrameSize:          testMTU,
		ReassemblyMaxAge:   time.Second,
		ReassemblyCapacity: 64,
		SequencerMaxWait:   time.Second,
		SequencerCapacity:  64,
		QueueDepth:         64,
		DefaultTimeout:     time.Second,
	}
}

func TestSessionRoundTripsData(t *testing.T) {
	a, b, cancel := newLoopbackSessionPair(t, testConfig())
	defer cancel()
	defer a.Close()
	defer b.Close()

	msg := []byte("hello over the mix network")
	n, err := a.Write(msg)
	require.NoError(t, err)
	require.Equal(t, len(msg), n)
	require.NoError(t, a.segmenter.Flush())

	buf := make([]byte, len(msg))
	read := 0
	for read < len(msg) {
		n, err := b.Read(buf[read:])
		require.NoError(t, err)
		read += n
	}
	require.Equal(t, msg, buf)
}

func TestSessionReadFailsAfterClose(t *testing.T) {
	a, b, cancel := newLoopbackSessionPair(t, testConfig())
	defer cancel()
	defer a.Close()

	require.NoError(t, b.Close())

	_, err := b.Read(make([]byte, 16))
	require.True(t, err == io.EOF || err == ErrStreamClosed)
}

var _ net.Conn = (*Session)(nil)
