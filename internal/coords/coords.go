// Package coords converts pointer positions between window, drawable and
// device-frame coordinates.
//
// Window coordinates are logical window points. Drawable coordinates are
// physical pixels of the rendering surface, which differ from window
// coordinates on high-density displays. Frame coordinates are pixels of the
// decoded device frame, before orientation is applied.
//
// Intermediate products are computed in int64 so that coordinate times
// dimension never overflows, whatever the platform int size.
package coords

import (
	"errors"

	"github.com/zsiec/mirror/internal/media"
)

// ErrEmptyRect is returned when the content rectangle or a size used as a
// divisor has no area, which happens before the first frame is shown.
var ErrEmptyRect = errors.New("coords: empty content rectangle")

// Mapping is a snapshot of the presentation state needed to map positions.
type Mapping struct {
	// Rect is where content is drawn inside the drawable.
	Rect media.Rect
	// Content is the frame size after orientation.
	Content media.Size
	// Orientation is the current display orientation.
	Orientation media.Orientation
}

// DrawableToFrame maps a drawable pixel to device-frame coordinates.
// Points outside Rect map outside the frame; callers clip if they need to.
func (m Mapping) DrawableToFrame(p media.Point) (media.Point, error) {
	if m.Rect.Empty() || m.Content.IsZero() {
		return media.Point{}, ErrEmptyRect
	}

	x := int64(p.X-m.Rect.X) * int64(m.Content.Width) / int64(m.Rect.W)
	y := int64(p.Y-m.Rect.Y) * int64(m.Content.Height) / int64(m.Rect.H)
	w, h := int64(m.Content.Width), int64(m.Content.Height)

	var fx, fy int64
	switch m.Orientation {
	case media.Orientation0:
		fx, fy = x, y
	case media.Orientation90:
		fx, fy = y, w-x
	case media.Orientation180:
		fx, fy = w-x, h-y
	case media.Orientation270:
		fx, fy = h-y, x
	case media.OrientationFlip0:
		fx, fy = w-x, y
	case media.OrientationFlip90:
		fx, fy = h-y, w-x
	case media.OrientationFlip180:
		fx, fy = x, h-y
	case media.OrientationFlip270:
		fx, fy = y, x
	default:
		fx, fy = x, y
	}
	return media.Point{X: int(fx), Y: int(fy)}, nil
}

// FrameToDrawable is the inverse of DrawableToFrame, up to integer rounding.
func (m Mapping) FrameToDrawable(p media.Point) (media.Point, error) {
	if m.Rect.Empty() || m.Content.IsZero() {
		return media.Point{}, ErrEmptyRect
	}

	fx, fy := int64(p.X), int64(p.Y)
	w, h := int64(m.Content.Width), int64(m.Content.Height)

	var x, y int64
	switch m.Orientation {
	case media.Orientation0:
		x, y = fx, fy
	case media.Orientation90:
		x, y = w-fy, fx
	case media.Orientation180:
		x, y = w-fx, h-fy
	case media.Orientation270:
		x, y = fy, h-fx
	case media.OrientationFlip0:
		x, y = w-fx, fy
	case media.OrientationFlip90:
		x, y = w-fy, h-fx
	case media.OrientationFlip180:
		x, y = fx, h-fy
	case media.OrientationFlip270:
		x, y = fy, fx
	default:
		x, y = fx, fy
	}

	return media.Point{
		X: int(x*int64(m.Rect.W)/w) + m.Rect.X,
		Y: int(y*int64(m.Rect.H)/h) + m.Rect.Y,
	}, nil
}

// WindowToFrame maps a window point to device-frame coordinates, scaling by
// the drawable/window ratio first.
func (m Mapping) WindowToFrame(p media.Point, window, drawable media.Size) (media.Point, error) {
	d, err := HiDPIScale(p, window, drawable)
	if err != nil {
		return media.Point{}, err
	}
	return m.DrawableToFrame(d)
}

// HiDPIScale converts a window point to drawable pixels.
func HiDPIScale(p media.Point, window, drawable media.Size) (media.Point, error) {
	if window.IsZero() {
		return media.Point{}, ErrEmptyRect
	}
	return media.Point{
		X: int(int64(p.X) * int64(drawable.Width) / int64(window.Width)),
		Y: int(int64(p.Y) * int64(drawable.Height) / int64(window.Height)),
	}, nil
}
