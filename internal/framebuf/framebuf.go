// Package framebuf implements the single-slot hand-off between the decoder
// goroutine and the presentation loop.
//
// The slot is a channel of capacity one. Push never blocks: when the
// previous frame has not been consumed yet it is discarded and replaced
// (drop-oldest), and the skip counter is incremented before the new frame
// becomes visible to the consumer. Receiving from Ready is the wake signal
// and the consume operation at once.
package framebuf

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/zsiec/mirror/internal/media"
)

var (
	// ErrEmpty is returned by Consume when no frame is pending.
	ErrEmpty = errors.New("framebuf: no pending frame")

	// ErrInvalidFrame is returned by Push for nil frames.
	ErrInvalidFrame = errors.New("framebuf: invalid frame")
)

// Buffer holds at most one pending frame.
type Buffer struct {
	pushMu  sync.Mutex
	slot    chan *media.Frame
	skipped atomic.Uint64
	pushed  atomic.Uint64
}

// New creates an empty Buffer.
func New() *Buffer {
	return &Buffer{slot: make(chan *media.Frame, 1)}
}

// Push stores frame as the pending frame. It reports whether an unconsumed
// frame was overwritten. Ownership of frame passes to the buffer.
func (b *Buffer) Push(frame *media.Frame) (previousSkipped bool, err error) {
	if frame == nil {
		return false, ErrInvalidFrame
	}

	b.pushMu.Lock()
	defer b.pushMu.Unlock()

	b.pushed.Add(1)
	select {
	case b.slot <- frame:
		return false, nil
	default:
	}

	// Slot full: evict the stale frame unless the consumer took it meanwhile.
	select {
	case <-b.slot:
		b.skipped.Add(1)
		previousSkipped = true
	default:
	}

	// Only pushers fill the slot and they are serialized, so this cannot block.
	b.slot <- frame
	return previousSkipped, nil
}

// Ready returns the channel the consumer receives pending frames from.
// A successful receive transfers ownership of the frame to the receiver.
func (b *Buffer) Ready() <-chan *media.Frame {
	return b.slot
}

// Consume takes the pending frame without blocking.
func (b *Buffer) Consume() (*media.Frame, error) {
	select {
	case f := <-b.slot:
		return f, nil
	default:
		return nil, ErrEmpty
	}
}

// Wait blocks until a frame is pending or ctx is done.
func (b *Buffer) Wait(ctx context.Context) (*media.Frame, error) {
	select {
	case f := <-b.slot:
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Skipped returns the number of frames overwritten before being consumed.
func (b *Buffer) Skipped() uint64 {
	return b.skipped.Load()
}

// Pushed returns the total number of frames pushed.
func (b *Buffer) Pushed() uint64 {
	return b.pushed.Load()
}
