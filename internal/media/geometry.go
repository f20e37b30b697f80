package media

import (
	"fmt"
	"strings"
)

// Size is a width/height pair in pixels.
type Size struct {
	Width  int
	Height int
}

// IsZero reports whether either dimension is zero.
func (s Size) IsZero() bool {
	return s.Width == 0 || s.Height == 0
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Point is a pixel position.
type Point struct {
	X int
	Y int
}

// Rect is a pixel rectangle: origin plus width and height.
type Rect struct {
	X int
	Y int
	W int
	H int
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Orientation is one of the eight display orientations: a clockwise rotation
// by 0, 90, 180 or 270 degrees, optionally preceded by a horizontal flip.
type Orientation uint8

// The eight orientations. Flip variants mirror horizontally before rotating.
const (
	Orientation0 Orientation = iota
	Orientation90
	Orientation180
	Orientation270
	OrientationFlip0
	OrientationFlip90
	OrientationFlip180
	OrientationFlip270
)

var orientationNames = [...]string{
	Orientation0:       "0",
	Orientation90:      "90",
	Orientation180:     "180",
	Orientation270:     "270",
	OrientationFlip0:   "flip0",
	OrientationFlip90:  "flip90",
	OrientationFlip180: "flip180",
	OrientationFlip270: "flip270",
}

func (o Orientation) String() string {
	if int(o) < len(orientationNames) {
		return orientationNames[o]
	}
	return fmt.Sprintf("Orientation(%d)", uint8(o))
}

// IsSwap reports whether the orientation exchanges width and height
// (the 90° and 270° family).
func (o Orientation) IsSwap() bool {
	return o&1 == 1
}

// IsFlip reports whether the orientation includes a horizontal flip.
func (o Orientation) IsFlip() bool {
	return o&4 != 0
}

// Valid reports whether o is one of the eight defined orientations.
func (o Orientation) Valid() bool {
	return o <= OrientationFlip270
}

// ParseOrientation parses names like "90", "flip180" or "@270" (the "@"
// prefix is accepted for compatibility with display-orientation options).
func ParseOrientation(s string) (Orientation, error) {
	name := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "@")
	for i, n := range orientationNames {
		if n == name {
			return Orientation(i), nil
		}
	}
	return Orientation0, fmt.Errorf("media: unknown orientation %q", s)
}
