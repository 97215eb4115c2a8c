// Package transport provides the delivery layer a Session sends
// Segments into and receives Segments from. It has no knowledge of
// frames or sequencing: it moves opaque Segments between two
// endpoints and lets the caller wire the other side to a Session's
// inbound channel.
package transport

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	mrand "math/rand"
	"time"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/mixsession/core/internal/worker"
	"github.com/mixsession/core/session"
)

// ErrClosed is returned by operations on a closed Link.
var ErrClosed = errors.New("transport: link closed")

// nonceSize is the secretbox nonce length.
const nonceSize = 24

// obfuscator measures the overhead a real per-packet encryption layer
// would add ahead of the external padding step, by actually sealing
// and opening every segment's payload with a key derived from a
// shared secret via HKDF. It never changes the Segment a Link
// delivers; it only exercises the cost of the round trip.
type obfuscator struct {
	key [32]byte
}

func newObfuscator(sharedSecret []byte) (*obfuscator, error) {
	var key [32]byte
	kdf := hkdf.New(sha256.New, sharedSecret, nil, []byte("mixsession-transport-loopback"))
	if _, err := kdf.Read(key[:]); err != nil {
		return nil, fmt.Errorf("deriving obfuscation key: %w", err)
	}
	return &obfuscator{key: key}, nil
}

// seal returns the per-segment overhead, in bytes, of sealing data
// under this obfuscator's key, after verifying the ciphertext opens
// back to the original bytes.
func (o *obfuscator) seal(data []byte) (int, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return 0, err
	}
	sealed := secretbox.Seal(nonce[:], data, &nonce, &o.key)

	opened, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &o.key)
	if !ok {
		return 0, errors.New("transport: obfuscation round trip failed to open")
	}
	if len(opened) != len(data) {
		return 0, errors.New("transport: obfuscation round trip length mismatch")
	}
	return len(sealed) - len(data), nil
}

// Link is one directed endpoint of a transport: it satisfies
// session.SegmentSender for outbound delivery and exposes an inbound
// channel a Session can be constructed with directly.
type Link interface {
	session.SegmentSender
	Inbound() <-chan session.Segment
	Close() error
}

// LoopbackConfig tunes the fault injection a Loopback pair applies to
// segments in flight, useful for exercising a Session's reassembly and
// sequencing logic against realistic mixnet jitter and loss.
type LoopbackConfig struct {
	// Jitter is the maximum random delay added before a segment is
	// delivered to its peer. Delivery order is not otherwise altered.
	Jitter time.Duration
	// LossProbability is the chance, in [0,1), that a given segment is
	// dropped instead of delivered.
	LossProbability float64
	// ObfuscationSecret, if set, is used to derive a key that every
	// segment's payload is sealed and opened under before delivery,
	// simulating the cost a real per-packet obfuscation layer would
	// add ahead of the padding step PacketMessage leaves external.
	ObfuscationSecret []byte
}

// LoopbackPair is one side of an in-memory transport built by
// NewLoopbackPair: segments sent on one side's Link arrive on the other
// side's Inbound channel and vice versa. Both sides share cfg's fault
// injection.
type LoopbackPair struct {
	worker.Worker

	cfg LoopbackConfig
	a   *loopbackLink
	b   *loopbackLink
}

// NewLoopbackPair builds a connected pair of in-memory Links. If
// cfg.ObfuscationSecret is set but derivation fails, NewLoopbackPair
// panics: a misconfigured secret is a setup error, not a runtime one.
func NewLoopbackPair(ctx context.Context, cfg LoopbackConfig) (*LoopbackPair, *LoopbackPair) {
	aToB := make(chan session.Segment, 64)
	bToA := make(chan session.Segment, 64)

	var obf *obfuscator
	if len(cfg.ObfuscationSecret) > 0 {
		var err error
		obf, err = newObfuscator(cfg.ObfuscationSecret)
		if err != nil {
			panic(err)
		}
	}

	pairA := &LoopbackPair{cfg: cfg}
	pairB := &LoopbackPair{cfg: cfg}

	pairA.a = &loopbackLink{out: aToB, in: bToA, cfg: cfg, obf: obf, halt: &pairA.Worker}
	pairB.a = &loopbackLink{out: bToA, in: aToB, cfg: cfg, obf: obf, halt: &pairB.Worker}

	_ = ctx
	return pairA, pairB
}

// Link returns this pair's local endpoint.
func (p *LoopbackPair) Link() Link { return p.a }

type loopbackLink struct {
	out  chan<- session.Segment
	in   <-chan session.Segment
	cfg  LoopbackConfig
	obf  *obfuscator
	halt *worker.Worker
}

func (l *loopbackLink) SendSegment(ctx context.Context, seg session.Segment) error {
	select {
	case <-l.halt.HaltCh():
		return ErrClosed
	default:
	}
	if l.cfg.LossProbability > 0 && mrand.Float64() < l.cfg.LossProbability {
		return nil
	}
	if l.obf != nil {
		if _, err := l.obf.seal(seg.Data); err != nil {
			return fmt.Errorf("transport: simulating obfuscation: %w", err)
		}
	}
	if l.cfg.Jitter > 0 {
		select {
		case <-time.After(time.Duration(mrand.Int63n(int64(l.cfg.Jitter) + 1))):
		case <-ctx.Done():
			return ctx.Err()
		case <-l.halt.HaltCh():
			return ErrClosed
		}
	}
	select {
	case l.out <- seg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.halt.HaltCh():
		return ErrClosed
	}
}

func (l *loopbackLink) Inbound() <-chan session.Segment {
	return l.in
}

func (l *loopbackLink) Close() error {
	l.halt.Halt()
	return nil
}
