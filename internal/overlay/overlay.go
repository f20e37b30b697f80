// Package overlay draws the timestamp bar above mirrored frames.
package overlay

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/zsiec/mirror/internal/media"
)

// Config is built once at startup and shared by reference with the
// transform. The zero value is completed by New.
type Config struct {
	BarHeight int       // luma rows added above the picture
	BarLuma   byte      // bar background
	TextLuma  byte      // glyph color
	MarginX   int       // left text margin
	Face      font.Face // glyph source
}

// DefaultConfig returns the 60-row black bar with white 7x13 text.
func DefaultConfig() Config {
	return Config{
		BarHeight: 60,
		BarLuma:   16,
		TextLuma:  235,
		MarginX:   10,
		Face:      basicfont.Face7x13,
	}
}

// Timestamp grows frames by a text bar. It is stateless beyond its Config
// and safe to reuse for every frame.
type Timestamp struct {
	cfg Config
	src image.Image
}

// New returns a Timestamp transform. Zero fields in cfg take their
// DefaultConfig values; a zero BarLuma means black.
func New(cfg Config) *Timestamp {
	def := DefaultConfig()
	if cfg.BarHeight <= 0 {
		cfg.BarHeight = def.BarHeight
	}
	if cfg.BarLuma == 0 {
		cfg.BarLuma = def.BarLuma
	}
	if cfg.TextLuma == 0 {
		cfg.TextLuma = def.TextLuma
	}
	if cfg.MarginX == 0 {
		cfg.MarginX = def.MarginX
	}
	if cfg.Face == nil {
		cfg.Face = def.Face
	}
	return &Timestamp{cfg: cfg, src: image.NewUniform(color.Gray{Y: cfg.TextLuma})}
}

// BarHeight returns the number of rows Apply adds, after even rounding.
func (t *Timestamp) BarHeight() int {
	return t.cfg.BarHeight + t.cfg.BarHeight&1
}

// Apply returns a new frame with the bar above f and text drawn in it. f is
// left untouched. An empty text yields an empty bar.
func (t *Timestamp) Apply(f *media.Frame, text string) (*media.Frame, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	out := f.GrowTop(t.cfg.BarHeight, t.cfg.BarLuma)
	if text == "" {
		return out, nil
	}

	bar := t.BarHeight()
	luma := &image.Gray{
		Pix:    out.Planes[0][:out.Strides[0]*bar],
		Stride: out.Strides[0],
		Rect:   image.Rect(0, 0, out.Width, bar),
	}

	// Baseline 10 rows above the bottom of the bar, or centered when the
	// bar is too short for that.
	metrics := t.cfg.Face.Metrics()
	baseline := bar - 10
	if glyph := (metrics.Ascent + metrics.Descent).Ceil(); bar < glyph+20 {
		baseline = (bar+metrics.Ascent.Ceil())/2 - 1
	}

	d := &font.Drawer{
		Dst:  luma,
		Src:  t.src,
		Face: t.cfg.Face,
		Dot:  fixed.P(t.cfg.MarginX, baseline),
	}
	d.DrawString(text)
	return out, nil
}
