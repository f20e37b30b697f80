package display

import (
	"errors"
	"testing"

	"github.com/zsiec/mirror/internal/media"
	"github.com/zsiec/mirror/internal/screen"
)

func TestWindowCenteredPosition(t *testing.T) {
	t.Parallel()

	w := NewWindow(WindowConfig{Usable: media.Size{Width: 1920, Height: 1080}}, nil)
	w.SetSize(media.Size{Width: 466, Height: 984})
	w.SetPosition(media.Point{X: screen.Centered, Y: 10})
	if got := w.Position(); got != (media.Point{X: 727, Y: 10}) {
		t.Errorf("position = %v, want 727,10", got)
	}
}

func TestWindowFullscreenRestoresSize(t *testing.T) {
	t.Parallel()

	w := NewWindow(WindowConfig{Usable: media.Size{Width: 1920, Height: 1080}}, nil)
	w.SetSize(media.Size{Width: 300, Height: 200})
	if err := w.SetFullscreen(true); err != nil {
		t.Fatal(err)
	}
	if got := w.Size(); got != (media.Size{Width: 1920, Height: 1080}) {
		t.Errorf("fullscreen size = %v", got)
	}
	w.SetSize(media.Size{Width: 400, Height: 200})
	if w.Size() != (media.Size{Width: 1920, Height: 1080}) {
		t.Error("resize applied while fullscreen")
	}
	if err := w.SetFullscreen(false); err != nil {
		t.Fatal(err)
	}
	if got := w.Size(); got != (media.Size{Width: 400, Height: 200}) {
		t.Errorf("windowed size = %v, want the last requested 400x200", got)
	}
}

func TestWindowWithoutDisplay(t *testing.T) {
	t.Parallel()

	w := NewWindow(WindowConfig{}, nil)
	if _, err := w.UsableDisplayBounds(); err == nil {
		t.Error("bounds reported without a display")
	}
	if err := w.SetFullscreen(true); err == nil {
		t.Error("fullscreen without a display")
	}
}

func TestWindowDrawableScale(t *testing.T) {
	t.Parallel()

	w := NewWindow(WindowConfig{Scale: 2}, nil)
	w.SetSize(media.Size{Width: 200, Height: 100})
	if got := w.DrawableSize(); got != (media.Size{Width: 400, Height: 200}) {
		t.Errorf("drawable = %v", got)
	}
}

func TestSurfacePending(t *testing.T) {
	t.Parallel()

	s := NewSurface(1, nil)
	if err := s.SetTextureSize(media.Size{Width: 4, Height: 4}); err != nil {
		t.Fatal(err)
	}
	f := media.NewFrame(4, 4)
	if err := s.UpdateTexture(f); !errors.Is(err, screen.ErrPending) {
		t.Fatalf("first upload = %v, want ErrPending", err)
	}
	if err := s.UpdateTexture(f); err != nil {
		t.Fatal(err)
	}
	if s.Frame() != f || s.Stats().Uploads != 1 {
		t.Errorf("stats = %+v", s.Stats())
	}
	if err := s.UpdateTexture(media.NewFrame(8, 4)); err == nil {
		t.Error("mismatched frame accepted")
	}
	if err := s.SetTextureSize(media.Size{}); err == nil {
		t.Error("empty texture accepted")
	}
}

func TestScreenOnHeadlessDisplay(t *testing.T) {
	t.Parallel()

	win := NewWindow(WindowConfig{Usable: media.Size{Width: 1920, Height: 1080}, Scale: 2}, nil)
	surf := NewSurface(1, nil)
	s, err := screen.New(win, surf, screen.Params{WindowX: screen.Centered, WindowY: screen.Centered}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.InitSize(media.Size{Width: 200, Height: 100}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateFrame(media.NewFrame(200, 100)); err != nil {
		t.Fatal(err)
	}
	if win.Shown() {
		t.Fatal("window shown while the surface was pending")
	}
	if err := s.UpdateFrame(media.NewFrame(200, 100)); err != nil {
		t.Fatal(err)
	}
	if !win.Shown() {
		t.Fatal("window not shown")
	}

	if got := win.Size(); got != (media.Size{Width: 200, Height: 100}) {
		t.Errorf("window = %v", got)
	}
	if got := win.Position(); got != (media.Point{X: 860, Y: 490}) {
		t.Errorf("position = %v, want centered 860,490", got)
	}
	stats := surf.Stats()
	if stats.Rect != (media.Rect{W: 400, H: 200}) {
		t.Errorf("rect = %+v, want the full HiDPI drawable", stats.Rect)
	}

	s.SwitchFullscreen()
	if !win.Fullscreen() {
		t.Fatal("not fullscreen")
	}
	s.SetOrientation(media.Orientation90)
	s.SwitchFullscreen()
	if got := win.Size(); got != (media.Size{Width: 100, Height: 200}) {
		t.Errorf("window after fullscreen = %v, want 100x200", got)
	}
	if surf.Stats().Orientation != media.Orientation90 {
		t.Error("orientation not rendered")
	}
}
