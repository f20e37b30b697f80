// Package source provides stand-ins for the video decoder: a synthetic test
// pattern and a replay of a framed stream. Both drive a FrameSink the way
// the decoder does: Open once with the declared size, Push every frame,
// Close at the end.
package source

import "github.com/zsiec/mirror/internal/media"

// FrameSink receives decoded frames. Push must not block on the consumer.
type FrameSink interface {
	Open(width, height int, format media.PixelFormat) error
	Push(f *media.Frame) error
	Close() error
}
