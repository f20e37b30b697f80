package screen

import (
	"errors"
	"fmt"

	"github.com/zsiec/mirror/internal/coords"
	"github.com/zsiec/mirror/internal/geometry"
	"github.com/zsiec/mirror/internal/media"
)

// InitSize records the size declared by the decoder before any frame and
// sizes the display texture for it.
func (s *Screen) InitSize(size media.Size) error {
	if s.hasFrame {
		return errors.New("screen: size initialized after the first frame")
	}
	s.frameSize = size
	s.contentSize = geometry.OrientedSize(size, s.orientation)

	err := s.disp.SetTextureSize(size)
	if err != nil && !errors.Is(err, ErrPending) {
		return fmt.Errorf("screen: set texture size: %w", err)
	}
	return nil
}

// UpdateFrame takes a frame from the buffer. While paused the frame only
// replaces the resume frame; otherwise it goes through the transform, the
// output stages and the display. The returned error is fatal.
func (s *Screen) UpdateFrame(f *media.Frame) error {
	if s.paused {
		s.resume, s.resumeOut = f, nil
		if s.params.Transform != nil {
			// Keep resume untouched so the transform always starts from
			// the decoded picture.
			s.resumeOut = s.process(f.Clone())
		}
		return nil
	}

	processed := s.process(f)
	if s.out == nil {
		return s.applyFrame(processed)
	}
	return s.out.Deliver(processed, s.applyFrame)
}

// process runs the transform. A failing transform is logged and the frame
// is used as decoded.
func (s *Screen) process(f *media.Frame) *media.Frame {
	if s.params.Transform == nil {
		return f
	}
	var text string
	if s.params.ShowTimestamps {
		text = s.params.Clock.Label(f.PTS)
	}
	out, err := s.params.Transform.Apply(f, text)
	if err != nil {
		s.log.Warn("frame transform failed", "error", err)
		return f
	}
	return out
}

// SetPaused pauses or resumes the display. If a frame arrived while paused
// it is displayed immediately, even when re-pausing.
func (s *Screen) SetPaused(paused bool) {
	if !paused && !s.paused {
		return
	}

	if s.paused && s.resume != nil {
		f := s.resumeOut
		if f == nil {
			f = s.resume
		}
		s.resume, s.resumeOut = nil, nil
		if err := s.applyFrame(f); err != nil {
			s.log.Error("could not display resume frame", "error", err)
		}
	}

	switch {
	case !paused:
		s.log.Info("display screen unpaused")
	case !s.paused:
		s.log.Info("display screen paused")
	default:
		s.log.Info("display screen re-paused")
	}
	s.paused = paused
}

// SetOrientation changes the display orientation, resizing the window for
// the new content size.
func (s *Screen) SetOrientation(o media.Orientation) {
	if o == s.orientation || !o.Valid() {
		return
	}
	s.setContentSize(geometry.OrientedSize(s.frameSize, o))
	s.orientation = o
	s.log.Info("display orientation set", "orientation", o.String())
	s.render(true)
}

// SwitchFullscreen toggles fullscreen mode.
func (s *Screen) SwitchFullscreen() {
	fullscreen := !s.window.Has(geometry.Fullscreen)
	if err := s.win.SetFullscreen(fullscreen); err != nil {
		s.log.Warn("could not switch fullscreen mode", "error", err)
		return
	}

	if fullscreen {
		s.window.Enter(geometry.Fullscreen)
		s.log.Debug("switched to fullscreen mode")
	} else {
		s.leave(geometry.Fullscreen)
		s.log.Debug("switched to windowed mode")
	}
	s.render(true)
}

// ResizeToFit shrinks the window to the content aspect ratio, keeping its
// center in place. It does nothing unless windowed.
func (s *Screen) ResizeToFit() {
	if !s.window.Windowed() {
		return
	}
	pos := s.win.Position()
	size := s.win.Size()
	optimal := geometry.OptimalSize(size, s.contentSize, nil)

	s.win.SetSize(optimal)
	s.win.SetPosition(geometry.CenteredShrink(pos, size, optimal))
	s.log.Debug("resized to optimal size", "size", optimal.String())
}

// ResizeToPixelPerfect sizes the window to the content size, restoring a
// maximized window first. It does nothing when fullscreen or minimized.
func (s *Screen) ResizeToPixelPerfect() {
	if s.window.Has(geometry.Fullscreen) || s.window.Has(geometry.Minimized) {
		return
	}
	if s.window.Has(geometry.Maximized) {
		s.win.Restore()
		// The window gets an explicit size below, which supersedes any
		// deferred resize.
		s.window.Leave(geometry.Maximized)
	}
	s.win.SetSize(s.contentSize)
	s.log.Debug("resized to pixel-perfect", "size", s.contentSize.String())
}

// Mapping returns the current coordinate mapping for pointer conversion.
func (s *Screen) Mapping() coords.Mapping {
	return coords.Mapping{Rect: s.rect, Content: s.contentSize, Orientation: s.orientation}
}

// applyFrame shows f. Display errors are fatal; pending is not an error.
func (s *Screen) applyFrame(f *media.Frame) error {
	s.fps.AddRendered()
	s.frame = f

	err := s.prepareForFrame(f.Size())
	if errors.Is(err, ErrPending) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("screen: set texture size: %w", err)
	}

	err = s.disp.UpdateTexture(f)
	if errors.Is(err, ErrPending) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("screen: update texture: %w", err)
	}

	if !s.hasFrame {
		s.hasFrame = true
		s.showInitialWindow()
		if s.params.RelativeMouse {
			s.setMouseCapture(true)
		}
	}

	s.render(false)
	return nil
}

// prepareForFrame follows a frame size change: new content size, new
// content rectangle and a new texture.
func (s *Screen) prepareForFrame(size media.Size) error {
	if size == s.frameSize {
		return nil
	}
	s.frameSize = size
	s.setContentSize(geometry.OrientedSize(size, s.orientation))
	s.updateContentRect()
	return s.disp.SetTextureSize(size)
}

// setContentSize resizes the window now when windowed, or defers the resize
// until every constraint is left.
func (s *Screen) setContentSize(size media.Size) {
	if s.window.Windowed() {
		s.resizeForContent(s.contentSize, size)
	} else {
		s.window.Defer(s.contentSize)
	}
	s.contentSize = size
}

// leave clears constraints and applies a deferred resize when the window
// becomes freely resizable.
func (s *Screen) leave(c geometry.Constraint) {
	if from, apply := s.window.Leave(c); apply {
		s.resizeForContent(from, s.contentSize)
	}
}

func (s *Screen) resizeForContent(from, to media.Size) {
	target := geometry.ResizeForContent(s.win.Size(), from, to, s.displayBounds())
	s.setWindowSize(target)
}

// setWindowSize resizes the window. Constrained windows keep their size.
func (s *Screen) setWindowSize(size media.Size) {
	if !s.window.Windowed() {
		s.log.Debug("window size change ignored while constrained", "size", size.String())
		return
	}
	s.win.SetSize(size)
}

// displayBounds returns the usable display bounds minus margins, or nil when
// the platform cannot report them.
func (s *Screen) displayBounds() *media.Size {
	usable, err := s.win.UsableDisplayBounds()
	if err != nil {
		s.log.Warn("could not get display usable bounds", "error", err)
		return nil
	}
	b := geometry.PreferredBounds(usable)
	return &b
}

func (s *Screen) showInitialWindow() {
	p := s.params
	size := geometry.InitialOptimalSize(s.contentSize, p.WindowWidth, p.WindowHeight, s.displayBounds())
	s.setWindowSize(size)
	s.win.SetPosition(media.Point{X: p.WindowX, Y: p.WindowY})

	if p.Fullscreen {
		s.SwitchFullscreen()
	}
	if p.StartFPSCounter {
		s.fps.Start()
	}

	s.win.Show()
	s.updateContentRect()
	s.log.Info("window shown", "size", size.String(), "content", s.contentSize.String())
}

func (s *Screen) updateContentRect() {
	s.rect = geometry.ContentRect(s.win.DrawableSize(), s.contentSize)
}

// render draws the current texture. Render failures are transient.
func (s *Screen) render(updateRect bool) {
	if updateRect {
		s.updateContentRect()
	}
	if err := s.disp.Render(s.rect, s.orientation); err != nil {
		s.log.Warn("render failed", "error", err)
	}
}

func (s *Screen) setMouseCapture(capture bool) {
	if err := s.win.SetRelativeMouseMode(capture); err != nil {
		s.log.Error("could not set relative mouse mode", "capture", capture, "error", err)
	}
}
