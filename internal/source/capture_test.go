package source

import (
	"sync"

	"github.com/zsiec/mirror/internal/media"
)

// captureSink is a FrameSink that records what it receives.
type captureSink struct {
	mu     sync.Mutex
	sizes  []media.Size
	frames []*media.Frame
	closed bool
}

func (c *captureSink) Open(width, height int, _ media.PixelFormat) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sizes = append(c.sizes, media.Size{Width: width, Height: height})
	return nil
}

func (c *captureSink) Push(f *media.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	return nil
}

func (c *captureSink) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Opened returns the sizes passed to Open.
func (c *captureSink) Opened() []media.Size {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]media.Size(nil), c.sizes...)
}

// Frames returns the pushed frames.
func (c *captureSink) Frames() []*media.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*media.Frame(nil), c.frames...)
}

// Closed reports whether Close was called.
func (c *captureSink) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
