package screen

import (
	"fmt"

	"github.com/zsiec/mirror/internal/geometry"
	"github.com/zsiec/mirror/internal/media"
)

// Event is something the loop reacts to: a window notification or a user
// command.
type Event interface {
	event()
}

// WindowEventKind enumerates platform window notifications.
type WindowEventKind int

// Window notifications.
const (
	Exposed WindowEventKind = iota
	SizeChanged
	Maximized
	Minimized
	Restored
	FocusLost
)

func (k WindowEventKind) String() string {
	switch k {
	case Exposed:
		return "exposed"
	case SizeChanged:
		return "size-changed"
	case Maximized:
		return "maximized"
	case Minimized:
		return "minimized"
	case Restored:
		return "restored"
	case FocusLost:
		return "focus-lost"
	default:
		return fmt.Sprintf("WindowEventKind(%d)", int(k))
	}
}

// WindowEvent is a platform window notification.
type WindowEvent struct{ Kind WindowEventKind }

// SetPaused pauses or resumes the display.
type SetPaused struct{ Paused bool }

// SetOrientation changes the display orientation.
type SetOrientation struct{ Orientation media.Orientation }

// ToggleFullscreen switches between fullscreen and windowed mode.
type ToggleFullscreen struct{}

// ResizeToFit removes black borders around the content.
type ResizeToFit struct{}

// ResizeToPixelPerfect sizes the window to exactly the content size.
type ResizeToPixelPerfect struct{}

// MouseButtonUp is a mouse button release inside the window.
type MouseButtonUp struct{}

// Key identifies the keys that take part in mouse capture toggling.
type Key int

// Mouse capture keys. KeyOther is any other key.
const (
	KeyNone Key = iota
	KeyLeftAlt
	KeyLeftSuper
	KeyRightSuper
	KeyOther
)

// KeyEvent is a key press or release.
type KeyEvent struct {
	Key  Key
	Down bool
}

// initSize carries the size declared by Open.
type initSize struct{ size media.Size }

func (WindowEvent) event()          {}
func (SetPaused) event()            {}
func (SetOrientation) event()       {}
func (ToggleFullscreen) event()     {}
func (ResizeToFit) event()          {}
func (ResizeToPixelPerfect) event() {}
func (MouseButtonUp) event()        {}
func (KeyEvent) event()             {}
func (initSize) event()             {}

// Handle applies ev. Only a failed texture setup from Open is fatal.
func (s *Screen) Handle(ev Event) error {
	switch ev := ev.(type) {
	case initSize:
		if err := s.InitSize(ev.size); err != nil {
			s.log.Error("could not initialize screen size", "error", err)
			return err
		}
	case WindowEvent:
		s.handleWindowEvent(ev.Kind)
	case SetPaused:
		s.SetPaused(ev.Paused)
	case SetOrientation:
		s.SetOrientation(ev.Orientation)
	case ToggleFullscreen:
		s.SwitchFullscreen()
	case ResizeToFit:
		s.ResizeToFit()
	case ResizeToPixelPerfect:
		s.ResizeToPixelPerfect()
	case MouseButtonUp:
		if s.params.RelativeMouse && !s.win.RelativeMouseMode() {
			s.setMouseCapture(true)
		}
	case KeyEvent:
		s.handleCaptureKey(ev)
	default:
		s.log.Warn("unknown event", "type", fmt.Sprintf("%T", ev))
	}
	return nil
}

func (s *Screen) handleWindowEvent(kind WindowEventKind) {
	if !s.hasFrame {
		return
	}
	switch kind {
	case Exposed, SizeChanged:
		s.render(true)
	case Maximized:
		s.window.Enter(geometry.Maximized)
	case Minimized:
		s.window.Enter(geometry.Minimized)
	case Restored:
		if s.window.Has(geometry.Fullscreen) {
			// Some platforms report restored, then maximized, when leaving
			// fullscreen from a maximized window.
			return
		}
		s.leave(geometry.Maximized | geometry.Minimized)
		s.render(true)
	case FocusLost:
		if s.params.RelativeMouse {
			s.setMouseCapture(false)
		}
	}
}

func isCaptureKey(k Key) bool {
	return k == KeyLeftAlt || k == KeyLeftSuper || k == KeyRightSuper
}

// handleCaptureKey toggles mouse capture when a capture key is pressed and
// released alone. Pressing a second capture key cancels the toggle.
func (s *Screen) handleCaptureKey(ev KeyEvent) {
	if !s.params.RelativeMouse {
		return
	}
	if ev.Down {
		if !isCaptureKey(ev.Key) {
			return
		}
		if s.captureKey == KeyNone {
			s.captureKey = ev.Key
		} else {
			s.captureKey = KeyNone
		}
		return
	}

	pressed := s.captureKey
	s.captureKey = KeyNone
	if isCaptureKey(ev.Key) && ev.Key == pressed {
		s.setMouseCapture(!s.win.RelativeMouseMode())
	}
}
