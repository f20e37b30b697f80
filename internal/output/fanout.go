// Package output fans every processed frame out to the still image writer,
// the framed pipe stream and the on-screen presenter, in that order.
package output

import (
	"log/slog"
	"sync/atomic"

	"github.com/zsiec/mirror/internal/media"
)

// FrameWriter is an optional output stage. framing.Writer and StillWriter
// implement it.
type FrameWriter interface {
	WriteFrame(f *media.Frame) error
}

// Stage names an optional output.
type Stage struct {
	Name   string
	Writer FrameWriter
}

// StageStats counts a stage's outcomes.
type StageStats struct {
	Name    string
	Written uint64
	Failed  uint64
}

type stage struct {
	Stage
	written atomic.Uint64
	failed  atomic.Uint64
	failing bool
}

// Fanout delivers frames to its stages and then to the presenter. A stage
// failure is logged and abandons only that stage's copy of the frame.
type Fanout struct {
	log    *slog.Logger
	stages []*stage
}

// NewFanout returns a Fanout over the given stages, run in argument order.
// Stages with a nil Writer are skipped so callers can pass disabled outputs.
func NewFanout(log *slog.Logger, stages ...Stage) *Fanout {
	if log == nil {
		log = slog.Default()
	}
	o := &Fanout{log: log.With("component", "output")}
	for _, s := range stages {
		if s.Writer == nil {
			continue
		}
		o.stages = append(o.stages, &stage{Stage: s})
	}
	return o
}

// Deliver writes f to every stage, then hands it to present and returns
// present's error. Stage errors never reach the caller.
func (o *Fanout) Deliver(f *media.Frame, present func(*media.Frame) error) error {
	for _, s := range o.stages {
		if err := s.Writer.WriteFrame(f); err != nil {
			s.failed.Add(1)
			// Log the first failure of a run of failures; a dead pipe
			// would otherwise log on every frame.
			if !s.failing {
				o.log.Error("output stage failed, frame dropped for this output", "stage", s.Name, "error", err)
				s.failing = true
			} else {
				o.log.Debug("output stage still failing", "stage", s.Name, "error", err)
			}
			continue
		}
		s.written.Add(1)
		if s.failing {
			o.log.Info("output stage recovered", "stage", s.Name)
			s.failing = false
		}
	}
	if present == nil {
		return nil
	}
	return present(f)
}

// Stats returns per-stage counters in delivery order.
func (o *Fanout) Stats() []StageStats {
	out := make([]StageStats, 0, len(o.stages))
	for _, s := range o.stages {
		out = append(out, StageStats{Name: s.Name, Written: s.written.Load(), Failed: s.failed.Load()})
	}
	return out
}
