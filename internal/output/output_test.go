package output

import (
	"bytes"
	"errors"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/zsiec/mirror/internal/media"
)

func testFrame(w, h int, pts int64) *media.Frame {
	f := media.NewFrame(w, h)
	for i := range f.Planes[0] {
		f.Planes[0][i] = byte(16 + i%200)
	}
	for i := 1; i < 3; i++ {
		for j := range f.Planes[i] {
			f.Planes[i][j] = 128
		}
	}
	f.PTS = pts
	return f
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestStillNames(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := NewStillWriter(StillConfig{Dir: dir}, 1_000, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := w.WriteFrame(testFrame(8, 6, 2_500_000)); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if err := w.WriteFrame(testFrame(8, 6, media.NoPTS)); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	got := listDir(t, dir)
	want := []string{"frame_000000_3500.png", "frame_000001.png"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("files = %v, want %v", got, want)
	}
	if w.Saved() != 2 || w.Failed() != 0 {
		t.Errorf("saved=%d failed=%d", w.Saved(), w.Failed())
	}
}

func TestStillCounterResumesAcrossRuns(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"frame_000004.png", "frame_000011_123.jpg", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	w, err := NewStillWriter(StillConfig{Dir: dir}, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFrame(testFrame(4, 4, media.NoPTS)); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "frame_000012.png")); err != nil {
		t.Errorf("expected frame_000012.png: %v", err)
	}
}

func TestStillSkipsTakenNames(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := NewStillWriter(StillConfig{Dir: dir}, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	// Another process claims the next name after the scan.
	if err := os.WriteFile(filepath.Join(dir, "frame_000000.png"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFrame(testFrame(4, 4, media.NoPTS)); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "frame_000000.png"))
	if err != nil || string(b) != "x" {
		t.Errorf("existing still overwritten")
	}
	if _, err := os.Stat(filepath.Join(dir, "frame_000001.png")); err != nil {
		t.Errorf("expected frame_000001.png: %v", err)
	}
}

func TestStillFormatsDecode(t *testing.T) {
	t.Parallel()

	for _, format := range []StillFormat{FormatPNG, FormatJPEG, FormatPPM} {
		dir := t.TempDir()
		w, err := NewStillWriter(StillConfig{Dir: dir, Format: format, JPEGQuality: 90}, 0, nil)
		if err != nil {
			t.Fatal(err)
		}
		if err := w.WriteFrame(testFrame(17, 9, media.NoPTS)); err != nil {
			t.Fatalf("%s: %v", format, err)
		}

		path := filepath.Join(dir, "frame_000000."+format.Ext())
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("%s: %v", format, err)
		}

		switch format {
		case FormatPNG:
			img, err := png.Decode(bytes.NewReader(data))
			if err != nil || img.Bounds().Dx() != 17 || img.Bounds().Dy() != 9 {
				t.Errorf("png: decode %v, bounds %v", err, img)
			}
		case FormatJPEG:
			img, err := jpeg.Decode(bytes.NewReader(data))
			if err != nil || img.Bounds().Dx() != 17 || img.Bounds().Dy() != 9 {
				t.Errorf("jpeg: decode %v", err)
			}
		case FormatPPM:
			header := []byte("P6\n17 9\n255\n")
			if !bytes.HasPrefix(data, header) || len(data) != len(header)+17*9*3 {
				t.Errorf("ppm: %d bytes, header %q", len(data), data[:min(len(data), 12)])
			}
		}
	}
}

func TestStillDirectoryCreated(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "a", "b")
	if _, err := NewStillWriter(StillConfig{Dir: dir}, 0, nil); err != nil {
		t.Fatal(err)
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Errorf("directory not created: %v", err)
	}
}

func TestStillDirectoryUncreatable(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStillWriter(StillConfig{Dir: filepath.Join(file, "sub")}, 0, nil); err == nil {
		t.Error("NewStillWriter succeeded under a regular file")
	}
}

func TestParseStillFormat(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]StillFormat{"": FormatPNG, "PNG": FormatPNG, "jpg": FormatJPEG, "ppm": FormatPPM} {
		got, err := ParseStillFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseStillFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseStillFormat("bmp"); err == nil {
		t.Error("ParseStillFormat accepted bmp")
	}
}

type recorder struct {
	name  string
	calls *[]string
	err   error
}

func (r recorder) WriteFrame(*media.Frame) error {
	*r.calls = append(*r.calls, r.name)
	return r.err
}

func TestFanoutOrderAndIsolation(t *testing.T) {
	t.Parallel()

	var calls []string
	o := NewFanout(nil,
		Stage{Name: "stills", Writer: recorder{name: "stills", calls: &calls, err: errors.New("disk full")}},
		Stage{Name: "pipe", Writer: recorder{name: "pipe", calls: &calls}},
	)

	for i := 0; i < 3; i++ {
		err := o.Deliver(testFrame(4, 4, 0), func(*media.Frame) error {
			calls = append(calls, "present")
			return nil
		})
		if err != nil {
			t.Fatalf("Deliver: %v", err)
		}
	}

	want := []string{"stills", "pipe", "present"}
	for i, c := range calls {
		if c != want[i%3] {
			t.Fatalf("calls = %v, want repeating %v", calls, want)
		}
	}
	if len(calls) != 9 {
		t.Errorf("%d calls, want 9", len(calls))
	}

	stats := o.Stats()
	if len(stats) != 2 || stats[0].Failed != 3 || stats[0].Written != 0 || stats[1].Written != 3 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestFanoutReturnsPresenterError(t *testing.T) {
	t.Parallel()

	o := NewFanout(nil, Stage{Name: "disabled"})
	if len(o.Stats()) != 0 {
		t.Error("nil writer registered as a stage")
	}
	boom := errors.New("texture lost")
	if err := o.Deliver(testFrame(2, 2, 0), func(*media.Frame) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("got %v, want presenter error", err)
	}
}
