package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zsiec/mirror/internal/media"
)

// PatternConfig configures a Pattern.
type PatternConfig struct {
	Width, Height int
	FPS           int
	// Frames stops the pattern after this many frames; zero runs until the
	// context is done.
	Frames int
	// PTSBase is the PTS of the first frame in microseconds since device
	// boot, as a decoder would report it. Zero counts from pattern start.
	PTSBase int64
}

// Pattern generates a moving white box on a luma gradient.
type Pattern struct {
	log *slog.Logger
	cfg PatternConfig
}

// NewPattern validates cfg. FPS defaults to 30.
func NewPattern(cfg PatternConfig, log *slog.Logger) (*Pattern, error) {
	if !media.ValidDimensions(cfg.Width, cfg.Height) {
		return nil, fmt.Errorf("source: invalid pattern size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pattern{log: log.With("component", "pattern"), cfg: cfg}, nil
}

// Run pushes frames into sink at the configured rate until ctx is done or
// the frame limit is reached. PTS advances from PTSBase at the frame rate.
func (p *Pattern) Run(ctx context.Context, sink FrameSink) error {
	if err := sink.Open(p.cfg.Width, p.cfg.Height, media.PixelFormatI420); err != nil {
		return fmt.Errorf("source: open sink: %w", err)
	}
	defer sink.Close()

	p.log.Info("pattern started", "width", p.cfg.Width, "height", p.cfg.Height, "fps", p.cfg.FPS)
	interval := time.Second / time.Duration(p.cfg.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 0; p.cfg.Frames == 0 || n < p.cfg.Frames; n++ {
		f := p.Frame(n)
		if err := sink.Push(f); err != nil {
			return fmt.Errorf("source: push: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

// Frame renders frame n.
func (p *Pattern) Frame(n int) *media.Frame {
	w, h := p.cfg.Width, p.cfg.Height
	f := media.NewFrame(w, h)
	f.PTS = p.cfg.PTSBase + int64(n)*1_000_000/int64(p.cfg.FPS)

	for y := 0; y < h; y++ {
		row := f.Row(0, y)
		for x := range row {
			row[x] = byte(16 + (x+y+n)%200)
		}
	}
	for i := 1; i < 3; i++ {
		for j := range f.Planes[i] {
			f.Planes[i][j] = 128
		}
	}

	box := max(1, min(w, h)/8)
	bx := (n * 4) % max(1, w-box+1)
	by := (n * 2) % max(1, h-box+1)
	for y := by; y < by+box && y < h; y++ {
		row := f.Row(0, y)
		for x := bx; x < bx+box && x < w; x++ {
			row[x] = 235
		}
	}
	return f
}
