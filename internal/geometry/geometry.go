// Package geometry computes window and content sizes for the mirror window:
// the optimal window size for a content aspect ratio, the initial window size,
// the letterboxed content rectangle, and the window state that decides whether
// a content change resizes the window now or later.
//
// All arithmetic is integer and truncating. Functions never divide by a zero
// content dimension; they return their input size instead.
package geometry

import "github.com/zsiec/mirror/internal/media"

// DisplayMargins is subtracted from both dimensions of the usable display
// bounds when clamping the window to the display.
const DisplayMargins = 96

// OrientedSize returns size with width and height exchanged when the
// orientation belongs to the 90°/270° family.
func OrientedSize(size media.Size, o media.Orientation) media.Size {
	if o.IsSwap() {
		return media.Size{Width: size.Height, Height: size.Width}
	}
	return size
}

// PreferredBounds returns the usable display bounds minus DisplayMargins,
// floored at zero.
func PreferredBounds(usable media.Size) media.Size {
	return media.Size{
		Width:  max(0, usable.Width-DisplayMargins),
		Height: max(0, usable.Height-DisplayMargins),
	}
}

// IsOptimal reports whether one dimension of window can be recomputed exactly
// from the other using the content aspect ratio.
func IsOptimal(window, content media.Size) bool {
	if content.IsZero() {
		return false
	}
	return window.Height == window.Width*content.Height/content.Width ||
		window.Width == window.Height*content.Width/content.Height
}

// OptimalSize returns the largest size within current (clamped to bounds when
// bounds is non-nil) that matches the content aspect ratio. It keeps one
// dimension of the clamped size and shrinks the other, cropping black bars.
func OptimalSize(current, content media.Size, bounds *media.Size) media.Size {
	if content.IsZero() {
		return current
	}

	window := current
	if bounds != nil {
		window.Width = min(current.Width, bounds.Width)
		window.Height = min(current.Height, bounds.Height)
	}

	if IsOptimal(window, content) {
		return window
	}

	keepWidth := content.Width*window.Height > content.Height*window.Width
	if keepWidth {
		// remove bars above and below
		window.Height = content.Height * window.Width / content.Width
	} else {
		// remove bars left and right
		window.Width = content.Width * window.Height / content.Height
	}
	return window
}

// InitialOptimalSize returns the window size to use before the first frame is
// shown. A zero requested dimension means "not requested": with both zero the
// content size clamped to bounds is used, with one zero it is derived from
// the other through the content aspect ratio.
func InitialOptimalSize(content media.Size, reqWidth, reqHeight int, bounds *media.Size) media.Size {
	if reqWidth == 0 && reqHeight == 0 {
		return OptimalSize(content, content, bounds)
	}
	if content.IsZero() {
		return media.Size{Width: reqWidth, Height: reqHeight}
	}

	size := media.Size{Width: reqWidth, Height: reqHeight}
	if reqWidth == 0 {
		size.Width = reqHeight * content.Width / content.Height
	}
	if reqHeight == 0 {
		size.Height = reqWidth * content.Height / content.Width
	}
	return size
}

// ContentRect centers content inside drawable, letterboxing or pillarboxing
// the dimension that does not match.
func ContentRect(drawable, content media.Size) media.Rect {
	full := media.Rect{W: drawable.Width, H: drawable.Height}
	if content.IsZero() || IsOptimal(drawable, content) {
		return full
	}

	keepWidth := content.Width*drawable.Height > content.Height*drawable.Width
	if keepWidth {
		h := drawable.Width * content.Height / content.Width
		return media.Rect{X: 0, Y: (drawable.Height - h) / 2, W: drawable.Width, H: h}
	}
	w := drawable.Height * content.Width / content.Height
	return media.Rect{X: (drawable.Width - w) / 2, Y: 0, W: w, H: drawable.Height}
}

// ResizeForContent scales window by the ratio between the new and old content
// sizes, then fits the result to the new content aspect ratio within bounds.
func ResizeForContent(window, oldContent, newContent media.Size, bounds *media.Size) media.Size {
	target := window
	if !oldContent.IsZero() {
		target = media.Size{
			Width:  window.Width * newContent.Width / oldContent.Width,
			Height: window.Height * newContent.Height / oldContent.Height,
		}
	}
	return OptimalSize(target, newContent, bounds)
}

// CenteredShrink returns the position that keeps the center of a window of
// size from fixed when it is resized to size to.
func CenteredShrink(pos media.Point, from, to media.Size) media.Point {
	return media.Point{
		X: pos.X + (from.Width-to.Width)/2,
		Y: pos.Y + (from.Height-to.Height)/2,
	}
}
