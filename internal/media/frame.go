// Package media defines the core frame and geometry types that flow through
// the mirror presentation pipeline, from the decoder sink through the output
// fan-out.
package media

import (
	"errors"
	"fmt"
	"math"
)

// NoPTS marks a frame whose presentation timestamp is unknown.
const NoPTS int64 = math.MinInt64

// MaxDimension is the largest frame width or height accepted at the sink
// boundary.
const MaxDimension = 0xFFFF

// PixelFormat identifies the pixel layout of decoded frames.
type PixelFormat int

// Supported pixel formats. Only planar YUV 4:2:0 is produced by the decoder.
const (
	PixelFormatI420 PixelFormat = iota
)

func (p PixelFormat) String() string {
	switch p {
	case PixelFormatI420:
		return "I420"
	default:
		return "Unknown"
	}
}

// ErrInvalidDimensions is returned for frames whose width or height is zero,
// negative or above MaxDimension.
var ErrInvalidDimensions = errors.New("media: invalid frame dimensions")

// ValidDimensions reports whether width and height are within (0, MaxDimension].
func ValidDimensions(width, height int) bool {
	return width > 0 && width <= MaxDimension && height > 0 && height <= MaxDimension
}

// Frame is a decoded planar YUV 4:2:0 picture. Plane 0 is full-resolution
// luma, planes 1 and 2 are chroma at half resolution in both directions.
// A Frame is owned by exactly one pipeline stage at a time; stages hand it
// over rather than share it.
type Frame struct {
	Planes  [3][]byte
	Strides [3]int
	Width   int
	Height  int
	PTS     int64 // microseconds, or NoPTS
}

// ChromaSize returns the dimensions of each chroma plane for a luma plane of
// the given size.
func ChromaSize(width, height int) (int, int) {
	return (width + 1) / 2, (height + 1) / 2
}

// PayloadSize returns the number of bytes of a tightly packed I420 picture
// (no stride padding).
func PayloadSize(width, height int) int {
	cw, ch := ChromaSize(width, height)
	return width*height + 2*cw*ch
}

// NewFrame allocates a frame with tightly packed planes.
func NewFrame(width, height int) *Frame {
	cw, ch := ChromaSize(width, height)
	f := &Frame{
		Width:   width,
		Height:  height,
		PTS:     NoPTS,
		Strides: [3]int{width, cw, cw},
	}
	f.Planes[0] = make([]byte, width*height)
	f.Planes[1] = make([]byte, cw*ch)
	f.Planes[2] = make([]byte, cw*ch)
	return f
}

// Size returns the frame dimensions.
func (f *Frame) Size() Size {
	return Size{Width: f.Width, Height: f.Height}
}

// HasPTS reports whether the presentation timestamp is known.
func (f *Frame) HasPTS() bool {
	return f.PTS != NoPTS
}

// PlaneDims returns the logical width and height of plane i.
func (f *Frame) PlaneDims(i int) (int, int) {
	if i == 0 {
		return f.Width, f.Height
	}
	return ChromaSize(f.Width, f.Height)
}

// Validate checks dimensions and that every plane holds its logical rows at
// the declared stride.
func (f *Frame) Validate() error {
	if !ValidDimensions(f.Width, f.Height) {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, f.Width, f.Height)
	}
	for i := range f.Planes {
		w, h := f.PlaneDims(i)
		if f.Strides[i] < w {
			return fmt.Errorf("media: plane %d stride %d shorter than row width %d", i, f.Strides[i], w)
		}
		if need := f.Strides[i]*(h-1) + w; len(f.Planes[i]) < need {
			return fmt.Errorf("media: plane %d holds %d bytes, need %d", i, len(f.Planes[i]), need)
		}
	}
	return nil
}

// Row returns row y of plane i without stride padding.
func (f *Frame) Row(i, y int) []byte {
	w, _ := f.PlaneDims(i)
	off := y * f.Strides[i]
	return f.Planes[i][off : off+w]
}

// Clone returns a deep copy with tightly packed planes.
func (f *Frame) Clone() *Frame {
	c := NewFrame(f.Width, f.Height)
	c.PTS = f.PTS
	for i := range f.Planes {
		_, h := f.PlaneDims(i)
		for y := 0; y < h; y++ {
			copy(c.Row(i, y), f.Row(i, y))
		}
	}
	return c
}

// GrowTop returns a copy of f with rows extra luma rows inserted above the
// picture. New luma rows are filled with y and new chroma rows with neutral
// gray. rows is rounded up to an even count so chroma stays aligned.
func (f *Frame) GrowTop(rows int, y byte) *Frame {
	rows += rows & 1
	g := NewFrame(f.Width, f.Height+rows)
	g.PTS = f.PTS
	for r := 0; r < rows; r++ {
		fill(g.Row(0, r), y)
	}
	for r := 0; r < f.Height; r++ {
		copy(g.Row(0, rows+r), f.Row(0, r))
	}
	_, srcCH := f.PlaneDims(1)
	for i := 1; i < 3; i++ {
		for r := 0; r < rows/2; r++ {
			fill(g.Row(i, r), 128)
		}
		for r := 0; r < srcCH; r++ {
			copy(g.Row(i, rows/2+r), f.Row(i, r))
		}
	}
	return g
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}
