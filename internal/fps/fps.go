// Package fps counts rendered and skipped frames and logs the rate once per
// interval while started.
package fps

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Counter is safe for concurrent use: AddSkipped is called from the decoder
// goroutine, everything else from the presentation loop.
type Counter struct {
	log      *slog.Logger
	interval time.Duration

	started  atomic.Bool
	rendered atomic.Uint64
	skipped  atomic.Uint64

	totalRendered atomic.Uint64
	totalSkipped  atomic.Uint64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Started       bool
	TotalRendered uint64
	TotalSkipped  uint64
}

// New returns a stopped Counter. interval <= 0 selects one second.
func New(interval time.Duration, log *slog.Logger) *Counter {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Counter{log: log.With("component", "fps"), interval: interval}
}

// Start enables periodic logging. The current interval restarts from zero.
func (c *Counter) Start() {
	c.rendered.Store(0)
	c.skipped.Store(0)
	if !c.started.Swap(true) {
		c.log.Info("FPS counter started")
	}
}

// Stop disables periodic logging.
func (c *Counter) Stop() {
	if c.started.Swap(false) {
		c.log.Info("FPS counter stopped")
	}
}

// Started reports whether periodic logging is enabled.
func (c *Counter) Started() bool {
	return c.started.Load()
}

// AddRendered counts a frame shown on screen.
func (c *Counter) AddRendered() {
	c.rendered.Add(1)
	c.totalRendered.Add(1)
}

// AddSkipped counts a frame dropped before it could be shown.
func (c *Counter) AddSkipped() {
	c.skipped.Add(1)
	c.totalSkipped.Add(1)
}

// Snapshot returns the lifetime counters.
func (c *Counter) Snapshot() Snapshot {
	return Snapshot{
		Started:       c.started.Load(),
		TotalRendered: c.totalRendered.Load(),
		TotalSkipped:  c.totalSkipped.Load(),
	}
}

// Run logs the frame rate every interval until ctx is done.
func (c *Counter) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *Counter) tick() {
	rendered := c.rendered.Swap(0)
	skipped := c.skipped.Swap(0)
	if !c.started.Load() {
		return
	}
	rate := float64(rendered) / c.interval.Seconds()
	if skipped > 0 {
		c.log.Info("frame rate", "fps", rate, "skipped", skipped)
		return
	}
	c.log.Info("frame rate", "fps", rate)
}
