package geometry

import "github.com/zsiec/mirror/internal/media"

// Constraint is a window mode during which the window size must not be
// changed by content updates.
type Constraint uint8

// Window constraints. Any combination may be active at once.
const (
	Fullscreen Constraint = 1 << iota
	Maximized
	Minimized
)

// WindowState tracks whether the window is freely resizable (windowed) or
// constrained by fullscreen, maximized or minimized mode. A deferred resize
// and its snapshot content size exist only while constrained; leaving the
// last constraint hands the snapshot back to the caller exactly once.
//
// The zero value is a windowed state with nothing pending.
type WindowState struct {
	active  Constraint
	pending *media.Size
}

// Windowed reports whether no constraint is active.
func (w *WindowState) Windowed() bool {
	return w.active == 0
}

// Has reports whether every bit of c is active.
func (w *WindowState) Has(c Constraint) bool {
	return w.active&c == c
}

// ResizePending reports whether a resize has been deferred.
func (w *WindowState) ResizePending() bool {
	return w.pending != nil
}

// Enter activates c.
func (w *WindowState) Enter(c Constraint) {
	w.active |= c
}

// Leave deactivates c. When this leaves the window unconstrained with a
// deferred resize, it returns the content size that was current when the
// resize was deferred, and clears the pending state.
func (w *WindowState) Leave(c Constraint) (from media.Size, apply bool) {
	w.active &^= c
	if w.active != 0 || w.pending == nil {
		return media.Size{}, false
	}
	from = *w.pending
	w.pending = nil
	return from, true
}

// Defer records that the content size changed while constrained. Only the
// first content size is kept until the pending resize is applied. It returns
// false, recording nothing, when the window is not constrained.
func (w *WindowState) Defer(current media.Size) bool {
	if w.active == 0 {
		return false
	}
	if w.pending == nil {
		snapshot := current
		w.pending = &snapshot
	}
	return true
}
