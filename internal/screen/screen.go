// Package screen owns the presentation side of the mirror: it is the frame
// sink the decoder pushes into, and it runs the single-goroutine loop that
// consumes frames, tracks window geometry, orientation and pause state, and
// drives the output fan-out and the presentation surface.
//
// Only the sink methods (Open, Push, Close) and Post may be called from
// other goroutines. Every other method runs on the loop goroutine, either
// from Run itself or from tests that drive the state machine directly.
package screen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/zsiec/mirror/internal/devclock"
	"github.com/zsiec/mirror/internal/fps"
	"github.com/zsiec/mirror/internal/framebuf"
	"github.com/zsiec/mirror/internal/geometry"
	"github.com/zsiec/mirror/internal/media"
	"github.com/zsiec/mirror/internal/output"
)

var (
	// ErrPending is returned by a Display that is still preparing
	// resources. The frame is not displayed; the next one retries.
	ErrPending = errors.New("screen: display pending")

	// ErrInvalidSize is returned by Open for zero or out-of-range sizes.
	ErrInvalidSize = errors.New("screen: invalid video size")

	// ErrUnsupportedFormat is returned by Open for pixel formats other than
	// planar YUV 4:2:0.
	ErrUnsupportedFormat = errors.New("screen: unsupported pixel format")

	// ErrQueueFull is returned by Post when the loop is not keeping up.
	ErrQueueFull = errors.New("screen: event queue full")

	// ErrNotOpen is returned by Push before Open succeeds or after Close.
	ErrNotOpen = errors.New("screen: sink not open")
)

// Centered requests a centered window position on one axis.
const Centered = math.MinInt32

// Window is the platform window the mirror is shown in.
type Window interface {
	Size() media.Size
	SetSize(media.Size)
	Position() media.Point
	// SetPosition moves the window; either coordinate may be Centered.
	SetPosition(media.Point)
	// DrawableSize is the window size in physical pixels.
	DrawableSize() media.Size
	UsableDisplayBounds() (media.Size, error)
	SetFullscreen(bool) error
	// Restore leaves the maximized or minimized state.
	Restore()
	Show()
	SetRelativeMouseMode(bool) error
	RelativeMouseMode() bool
}

// Display is the presentation surface. SetTextureSize and UpdateTexture may
// return ErrPending.
type Display interface {
	SetTextureSize(media.Size) error
	UpdateTexture(*media.Frame) error
	Render(rect media.Rect, o media.Orientation) error
}

// Transformer rewrites a frame before output, for example to draw a
// timestamp bar. It may return a different, taller frame and must not keep
// f. text is empty when no timestamp is to be shown.
type Transformer interface {
	Apply(f *media.Frame, text string) (*media.Frame, error)
}

// Params configure a Screen.
type Params struct {
	// Requested window position; Centered lets the window center itself.
	WindowX, WindowY int
	// Requested window size; zero derives it from the content.
	WindowWidth, WindowHeight int

	Fullscreen      bool
	StartFPSCounter bool
	RelativeMouse   bool
	Orientation     media.Orientation

	// ShowTimestamps passes the formatted device time to Transform.
	ShowTimestamps bool
	Clock          devclock.Offset
	Transform      Transformer

	// Output receives every live frame before it is presented. Nil
	// presents only.
	Output *output.Fanout
	FPS    *fps.Counter

	EventQueue int
}

// Screen is the presentation state machine.
type Screen struct {
	log    *slog.Logger
	win    Window
	disp   Display
	params Params
	fps    *fps.Counter
	out    *output.Fanout

	fb     *framebuf.Buffer
	events chan Event
	open   atomic.Bool

	// Loop-owned state.
	frameSize   media.Size
	contentSize media.Size
	orientation media.Orientation
	window      geometry.WindowState
	rect        media.Rect
	hasFrame    bool
	paused      bool
	frame       *media.Frame
	resume      *media.Frame // latest raw frame received while paused
	resumeOut   *media.Frame // resume after Transform
	captureKey  Key
}

// New returns a Screen with the initial orientation applied and the window
// still hidden; it is shown on the first displayed frame.
func New(win Window, disp Display, p Params, log *slog.Logger) (*Screen, error) {
	if win == nil || disp == nil {
		return nil, errors.New("screen: window and display are required")
	}
	if !p.Orientation.Valid() {
		return nil, fmt.Errorf("screen: invalid orientation %d", p.Orientation)
	}
	if log == nil {
		log = slog.Default()
	}
	if p.EventQueue <= 0 {
		p.EventQueue = 64
	}
	s := &Screen{
		log:         log.With("component", "screen"),
		win:         win,
		disp:        disp,
		params:      p,
		fps:         p.FPS,
		out:         p.Output,
		fb:          framebuf.New(),
		events:      make(chan Event, p.EventQueue),
		orientation: p.Orientation,
	}
	if s.fps == nil {
		s.fps = fps.New(0, log)
	}
	if s.orientation != media.Orientation0 {
		s.log.Info("initial display orientation", "orientation", s.orientation.String())
	}
	return s, nil
}

// Open validates the declared video size and schedules the texture setup on
// the loop. Nothing is changed when validation fails.
func (s *Screen) Open(width, height int, format media.PixelFormat) error {
	if format != media.PixelFormatI420 {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if !media.ValidDimensions(width, height) {
		s.log.Error("invalid video size", "width", width, "height", height)
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if err := s.Post(initSize{size: media.Size{Width: width, Height: height}}); err != nil {
		return err
	}
	s.open.Store(true)
	return nil
}

// Push hands a decoded frame to the loop. It never waits for the loop; an
// unconsumed previous frame is dropped and counted.
func (s *Screen) Push(f *media.Frame) error {
	if !s.open.Load() {
		return ErrNotOpen
	}
	skipped, err := s.fb.Push(f)
	if err != nil {
		return err
	}
	if skipped {
		s.fps.AddSkipped()
	}
	return nil
}

// Close marks the sink closed. The screen outlives the decoder.
func (s *Screen) Close() error {
	s.open.Store(false)
	return nil
}

// Post queues an event for the loop without blocking.
func (s *Screen) Post(ev Event) error {
	select {
	case s.events <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run consumes events and frames until ctx is done or a fatal error
// occurs. Frames still in flight at shutdown are dropped.
func (s *Screen) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-s.events:
			if err := s.Handle(ev); err != nil {
				return err
			}
		case f := <-s.fb.Ready():
			// Events posted before the frame was pushed, Open's size event
			// in particular, are handled first.
			if err := s.drainEvents(); err != nil {
				return err
			}
			if err := s.UpdateFrame(f); err != nil {
				s.log.Error("frame update failed", "error", err)
				return err
			}
		}
	}
}

func (s *Screen) drainEvents() error {
	for {
		select {
		case ev := <-s.events:
			if err := s.Handle(ev); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// Received returns the number of frames accepted by Push.
func (s *Screen) Received() uint64 { return s.fb.Pushed() }

// Skipped returns the number of frames dropped by the frame buffer.
func (s *Screen) Skipped() uint64 { return s.fb.Skipped() }

// ContentSize returns the frame size after orientation.
func (s *Screen) ContentSize() media.Size { return s.contentSize }

// FrameSize returns the current decoded frame size.
func (s *Screen) FrameSize() media.Size { return s.frameSize }

// Orientation returns the current display orientation.
func (s *Screen) Orientation() media.Orientation { return s.orientation }

// ContentRect returns where content is drawn in the drawable.
func (s *Screen) ContentRect() media.Rect { return s.rect }

// Paused reports whether the display is paused.
func (s *Screen) Paused() bool { return s.paused }

// HasFrame reports whether a frame has been displayed.
func (s *Screen) HasFrame() bool { return s.hasFrame }

// Frame returns the last frame handed to the display.
func (s *Screen) Frame() *media.Frame { return s.frame }

// WindowState returns the window constraint state.
func (s *Screen) WindowState() geometry.WindowState { return s.window }
