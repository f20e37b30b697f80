// Package display provides a headless window and presentation surface. They
// keep the state a real window system would, so the mirror can run and be
// exercised without a GPU or a desktop session.
package display

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zsiec/mirror/internal/media"
	"github.com/zsiec/mirror/internal/screen"
)

var (
	_ screen.Window  = (*Window)(nil)
	_ screen.Display = (*Surface)(nil)
)

// WindowConfig describes the simulated desktop.
type WindowConfig struct {
	// Usable is the usable display area. Zero reports bounds as unknown.
	Usable media.Size
	// Scale is the HiDPI factor between window and drawable pixels.
	Scale int
}

// Window is a headless screen.Window. It is safe for concurrent use so the
// state can be inspected while the loop runs.
type Window struct {
	log *slog.Logger
	cfg WindowConfig

	mu         sync.Mutex
	size       media.Size
	windowed   media.Size // size to return to when leaving fullscreen
	pos        media.Point
	fullscreen bool
	shown      bool
	relative   bool
}

// NewWindow returns a hidden window.
func NewWindow(cfg WindowConfig, log *slog.Logger) *Window {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Scale <= 0 {
		cfg.Scale = 1
	}
	return &Window{
		log:  log.With("component", "window"),
		cfg:  cfg,
		size: media.Size{Width: 640, Height: 480},
	}
}

func (w *Window) Size() media.Size {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

func (w *Window) SetSize(s media.Size) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fullscreen {
		w.windowed = s
		return
	}
	w.size = s
	w.log.Debug("window resized", "size", s.String())
}

func (w *Window) Position() media.Point {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pos
}

// SetPosition resolves screen.Centered against the usable display area.
func (w *Window) SetPosition(p media.Point) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p.X == screen.Centered {
		p.X = (w.cfg.Usable.Width - w.size.Width) / 2
	}
	if p.Y == screen.Centered {
		p.Y = (w.cfg.Usable.Height - w.size.Height) / 2
	}
	w.pos = p
}

func (w *Window) DrawableSize() media.Size {
	w.mu.Lock()
	defer w.mu.Unlock()
	return media.Size{Width: w.size.Width * w.cfg.Scale, Height: w.size.Height * w.cfg.Scale}
}

func (w *Window) UsableDisplayBounds() (media.Size, error) {
	if w.cfg.Usable.IsZero() {
		return media.Size{}, errors.New("display: usable bounds unknown")
	}
	return w.cfg.Usable, nil
}

// SetFullscreen covers the usable area and restores the windowed size on
// exit.
func (w *Window) SetFullscreen(on bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if on == w.fullscreen {
		return nil
	}
	if on {
		if w.cfg.Usable.IsZero() {
			return errors.New("display: no display to go fullscreen on")
		}
		w.windowed = w.size
		w.size = w.cfg.Usable
	} else {
		w.size = w.windowed
	}
	w.fullscreen = on
	return nil
}

func (w *Window) Restore() {}

func (w *Window) Show() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.shown = true
}

// Shown reports whether Show was called.
func (w *Window) Shown() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.shown
}

// Fullscreen reports whether the window covers the display.
func (w *Window) Fullscreen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fullscreen
}

func (w *Window) SetRelativeMouseMode(on bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.relative = on
	return nil
}

func (w *Window) RelativeMouseMode() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.relative
}

// Surface is a headless screen.Display. It keeps the last uploaded frame
// and the last draw call.
type Surface struct {
	log *slog.Logger

	mu          sync.Mutex
	pending     int
	textureSize media.Size
	frame       *media.Frame
	uploads     uint64
	renders     uint64
	rect        media.Rect
	orientation media.Orientation
}

// NewSurface returns a Surface that reports itself pending for the first
// pending texture operations, as a renderer still creating resources does.
func NewSurface(pending int, log *slog.Logger) *Surface {
	if log == nil {
		log = slog.Default()
	}
	return &Surface{log: log.With("component", "surface"), pending: pending}
}

func (s *Surface) SetTextureSize(size media.Size) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if size.IsZero() {
		return fmt.Errorf("display: invalid texture size %s", size)
	}
	s.textureSize = size
	s.log.Debug("texture created", "size", size.String())
	return nil
}

// UpdateTexture copies nothing; it keeps f, which the caller no longer
// modifies once handed over.
func (s *Surface) UpdateTexture(f *media.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending > 0 {
		s.pending--
		return screen.ErrPending
	}
	if f.Size() != s.textureSize {
		return fmt.Errorf("display: frame %s does not match texture %s", f.Size(), s.textureSize)
	}
	s.frame = f
	s.uploads++
	return nil
}

func (s *Surface) Render(rect media.Rect, o media.Orientation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rect = rect
	s.orientation = o
	s.renders++
	return nil
}

// SurfaceStats is a copy of the surface state.
type SurfaceStats struct {
	TextureSize media.Size
	Uploads     uint64
	Renders     uint64
	Rect        media.Rect
	Orientation media.Orientation
}

// Stats returns the current surface state.
func (s *Surface) Stats() SurfaceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SurfaceStats{
		TextureSize: s.textureSize,
		Uploads:     s.uploads,
		Renders:     s.renders,
		Rect:        s.rect,
		Orientation: s.orientation,
	}
}

// Frame returns the last uploaded frame.
func (s *Surface) Frame() *media.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}
