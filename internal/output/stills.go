package output

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/zsiec/mirror/internal/devclock"
	"github.com/zsiec/mirror/internal/media"
)

// StillFormat selects the still image encoding.
type StillFormat string

// Supported still formats.
const (
	FormatPNG  StillFormat = "png"
	FormatJPEG StillFormat = "jpeg"
	FormatPPM  StillFormat = "ppm"
)

// ParseStillFormat accepts png, jpeg (or jpg) and ppm.
func ParseStillFormat(s string) (StillFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png", "":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "ppm":
		return FormatPPM, nil
	default:
		return "", fmt.Errorf("output: unsupported still format %q (png, jpeg or ppm)", s)
	}
}

// Ext returns the file extension for f, without the dot.
func (f StillFormat) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// StillConfig configures a StillWriter.
type StillConfig struct {
	Dir         string
	Format      StillFormat
	JPEGQuality int // 1-100, jpeg only
}

// maxNameAttempts bounds how many counters are tried when a name is taken.
const maxNameAttempts = 64

var stillName = regexp.MustCompile(`^frame_(\d+)(?:_-?\d+)?\.(?:png|jpg|jpeg|ppm)$`)

// StillWriter saves each frame as an independent image file named
// frame_NNNNNN.ext, or frame_NNNNNN_<absolute ms>.ext when the frame has a
// timestamp. Counters continue after the highest one already in the
// directory, and files are created exclusively, so runs never overwrite each
// other's stills.
type StillWriter struct {
	log     *slog.Logger
	cfg     StillConfig
	clock   devclock.Offset
	counter uint64

	saved  atomic.Uint64
	failed atomic.Uint64
}

// NewStillWriter creates the directory if needed and scans it for the next
// free counter. A directory that cannot be created is a fatal setup error.
func NewStillWriter(cfg StillConfig, clock devclock.Offset, log *slog.Logger) (*StillWriter, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, errors.New("output: still directory is empty")
	}
	if cfg.Format == "" {
		cfg.Format = FormatPNG
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = jpeg.DefaultQuality
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("output: create still directory: %w", err)
	}

	next, err := nextCounter(cfg.Dir)
	if err != nil {
		return nil, err
	}

	w := &StillWriter{
		log:     log.With("component", "stills"),
		cfg:     cfg,
		clock:   clock,
		counter: next,
	}
	w.log.Info("saving stills", "dir", cfg.Dir, "format", string(cfg.Format), "first", next)
	return w, nil
}

func nextCounter(dir string) (uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("output: scan still directory: %w", err)
	}
	var next uint64
	for _, e := range entries {
		m := stillName.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			continue
		}
		if n+1 > next {
			next = n + 1
		}
	}
	return next, nil
}

// Name returns the file name for counter and f.
func (w *StillWriter) Name(counter uint64, f *media.Frame) string {
	if abs, ok := w.clock.Absolute(f.PTS); ok {
		return fmt.Sprintf("frame_%06d_%d.%s", counter, abs, w.cfg.Format.Ext())
	}
	return fmt.Sprintf("frame_%06d.%s", counter, w.cfg.Format.Ext())
}

// WriteFrame encodes f into the next free file.
func (w *StillWriter) WriteFrame(f *media.Frame) error {
	if err := f.Validate(); err != nil {
		w.failed.Add(1)
		return fmt.Errorf("output: still: %w", err)
	}

	file, path, err := w.create(f)
	if err != nil {
		w.failed.Add(1)
		return err
	}

	bw := bufio.NewWriter(file)
	err = encodeStill(bw, f, w.cfg)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		w.failed.Add(1)
		os.Remove(path)
		return fmt.Errorf("output: encode %s: %w", path, err)
	}

	w.saved.Add(1)
	w.log.Debug("still saved", "path", path)
	return nil
}

func (w *StillWriter) create(f *media.Frame) (*os.File, string, error) {
	for i := 0; i < maxNameAttempts; i++ {
		path := filepath.Join(w.cfg.Dir, w.Name(w.counter, f))
		w.counter++
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return file, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("output: create still: %w", err)
		}
	}
	return nil, "", fmt.Errorf("output: no free still name after %d attempts", maxNameAttempts)
}

// Saved returns the number of stills written.
func (w *StillWriter) Saved() uint64 { return w.saved.Load() }

// Failed returns the number of stills abandoned.
func (w *StillWriter) Failed() uint64 { return w.failed.Load() }

func encodeStill(out io.Writer, f *media.Frame, cfg StillConfig) error {
	img := toYCbCr(f)
	switch cfg.Format {
	case FormatJPEG:
		return jpeg.Encode(out, img, &jpeg.Options{Quality: cfg.JPEGQuality})
	case FormatPPM:
		return encodePPM(out, img)
	default:
		return png.Encode(out, img)
	}
}

// toYCbCr wraps f's planes without copying when both chroma planes share a
// stride, as image.YCbCr requires.
func toYCbCr(f *media.Frame) *image.YCbCr {
	if f.Strides[1] != f.Strides[2] {
		f = f.Clone()
	}
	return &image.YCbCr{
		Y:              f.Planes[0],
		Cb:             f.Planes[1],
		Cr:             f.Planes[2],
		YStride:        f.Strides[0],
		CStride:        f.Strides[1],
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, f.Width, f.Height),
	}
}

func encodePPM(out io.Writer, img *image.YCbCr) error {
	b := img.Bounds()
	if _, err := fmt.Fprintf(out, "P6\n%d %d\n255\n", b.Dx(), b.Dy()); err != nil {
		return err
	}
	row := make([]byte, 3*b.Dx())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.YCbCrAt(x, y)
			r, g, bl := color.YCbCrToRGB(c.Y, c.Cb, c.Cr)
			i := 3 * (x - b.Min.X)
			row[i], row[i+1], row[i+2] = r, g, bl
		}
		if _, err := out.Write(row); err != nil {
			return err
		}
	}
	return nil
}
