// Package config loads the mirror configuration from MIRROR_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/zsiec/mirror/internal/media"
	"github.com/zsiec/mirror/internal/output"
	"github.com/zsiec/mirror/internal/screen"
	"github.com/zsiec/mirror/internal/transport"
)

// SourcePattern selects the synthetic test pattern as the frame source.
const SourcePattern = "pattern"

// Config holds everything cmd/mirror needs to wire a session.
type Config struct {
	// Serial selects the device for adb. Empty uses the only device.
	Serial  string
	ADBPath string

	// Source is SourcePattern or a framed stream source for
	// transport.OpenReader.
	Source        string
	PatternWidth  int
	PatternHeight int
	PatternFPS    int
	// Paced replays a framed stream at its recorded rate.
	Paced bool

	// WindowX and WindowY default to screen.Centered.
	WindowX, WindowY          int
	WindowWidth, WindowHeight int
	Fullscreen                bool
	Orientation               media.Orientation

	SaveFrames  bool
	FrameDir    string
	StillFormat output.StillFormat
	JPEGQuality int

	// PipeOutput is a transport.OpenWriter destination; empty disables it.
	PipeOutput string

	ShowTimestamps bool
	FPSCounter     bool
	RelativeMouse  bool

	// Simulated desktop for the headless display.
	DisplayWidth, DisplayHeight int
	DisplayScale                int

	LogLevel string
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		ADBPath:       "adb",
		Source:        SourcePattern,
		PatternWidth:  1080,
		PatternHeight: 2280,
		PatternFPS:    30,
		Paced:         true,
		WindowX:       screen.Centered,
		WindowY:       screen.Centered,
		FrameDir:      "frames",
		StillFormat:   output.FormatPNG,
		JPEGQuality:   90,
		DisplayWidth:  1920,
		DisplayHeight: 1080,
		DisplayScale:  1,
		LogLevel:      "info",
	}
}

// Load reads the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads variables through getenv, falling back to defaults for
// unset ones, and validates the result.
func LoadFrom(getenv func(string) string) (*Config, error) {
	cfg := Default()
	l := loader{getenv: getenv}

	l.str("MIRROR_SERIAL", &cfg.Serial)
	l.str("MIRROR_ADB_PATH", &cfg.ADBPath)
	l.str("MIRROR_SOURCE", &cfg.Source)
	l.integer("MIRROR_PATTERN_WIDTH", &cfg.PatternWidth)
	l.integer("MIRROR_PATTERN_HEIGHT", &cfg.PatternHeight)
	l.integer("MIRROR_PATTERN_FPS", &cfg.PatternFPS)
	l.boolean("MIRROR_PACED", &cfg.Paced)
	l.position("MIRROR_WINDOW_X", &cfg.WindowX)
	l.position("MIRROR_WINDOW_Y", &cfg.WindowY)
	l.integer("MIRROR_WINDOW_WIDTH", &cfg.WindowWidth)
	l.integer("MIRROR_WINDOW_HEIGHT", &cfg.WindowHeight)
	l.boolean("MIRROR_FULLSCREEN", &cfg.Fullscreen)
	if v := getenv("MIRROR_ORIENTATION"); v != "" {
		o, err := media.ParseOrientation(v)
		if err != nil {
			l.fail("MIRROR_ORIENTATION", err)
		}
		cfg.Orientation = o
	}
	l.boolean("MIRROR_SAVE_FRAMES", &cfg.SaveFrames)
	l.str("MIRROR_FRAME_DIR", &cfg.FrameDir)
	if v := getenv("MIRROR_STILL_FORMAT"); v != "" {
		f, err := output.ParseStillFormat(v)
		if err != nil {
			l.fail("MIRROR_STILL_FORMAT", err)
		}
		cfg.StillFormat = f
	}
	l.integer("MIRROR_JPEG_QUALITY", &cfg.JPEGQuality)
	l.str("MIRROR_PIPE_OUTPUT", &cfg.PipeOutput)
	l.boolean("MIRROR_SHOW_TIMESTAMPS", &cfg.ShowTimestamps)
	l.boolean("MIRROR_FPS_COUNTER", &cfg.FPSCounter)
	l.boolean("MIRROR_RELATIVE_MOUSE", &cfg.RelativeMouse)
	l.integer("MIRROR_DISPLAY_WIDTH", &cfg.DisplayWidth)
	l.integer("MIRROR_DISPLAY_HEIGHT", &cfg.DisplayHeight)
	l.integer("MIRROR_DISPLAY_SCALE", &cfg.DisplayScale)
	if v := getenv("MIRROR_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(v))
	} else if getenv("DEBUG") != "" {
		cfg.LogLevel = "debug"
	}

	if l.err != nil {
		return nil, l.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loader keeps the first parse error so Load reads like a list of
// variables.
type loader struct {
	getenv func(string) string
	err    error
}

func (l *loader) fail(key string, err error) {
	if l.err == nil {
		l.err = fmt.Errorf("config: %s: %w", key, err)
	}
}

func (l *loader) str(key string, dst *string) {
	if v := l.getenv(key); v != "" {
		*dst = strings.TrimSpace(v)
	}
}

func (l *loader) integer(key string, dst *int) {
	v := l.getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		l.fail(key, errors.New("must be a valid integer"))
		return
	}
	*dst = n
}

func (l *loader) boolean(key string, dst *bool) {
	v := l.getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		l.fail(key, errors.New("must be true or false"))
		return
	}
	*dst = b
}

// position accepts an integer or "centered".
func (l *loader) position(key string, dst *int) {
	if strings.EqualFold(strings.TrimSpace(l.getenv(key)), "centered") {
		*dst = screen.Centered
		return
	}
	l.integer(key, dst)
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.Source == SourcePattern {
		if !media.ValidDimensions(c.PatternWidth, c.PatternHeight) {
			return fmt.Errorf("config: pattern size %dx%d out of range", c.PatternWidth, c.PatternHeight)
		}
		if c.PatternFPS <= 0 || c.PatternFPS > 240 {
			return errors.New("config: PatternFPS must be between 1 and 240")
		}
	} else {
		t, err := transport.ParseTarget(c.Source)
		if err != nil {
			return fmt.Errorf("config: source: %w", err)
		}
		if (t.Scheme == transport.SchemeSRT || t.Scheme == transport.SchemeQUIC) && !t.Listening() {
			return errors.New("config: a network source must be a local address like srt://:6000")
		}
	}

	if c.WindowWidth < 0 || c.WindowWidth > media.MaxDimension ||
		c.WindowHeight < 0 || c.WindowHeight > media.MaxDimension {
		return fmt.Errorf("config: window size %dx%d out of range", c.WindowWidth, c.WindowHeight)
	}
	if !c.Orientation.Valid() {
		return fmt.Errorf("config: invalid orientation %d", c.Orientation)
	}

	if c.SaveFrames && c.FrameDir == "" {
		return errors.New("config: FrameDir cannot be empty when saving frames")
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return errors.New("config: JPEGQuality must be between 1 and 100")
	}
	if c.PipeOutput != "" {
		t, err := transport.ParseTarget(c.PipeOutput)
		if err != nil {
			return fmt.Errorf("config: pipe output: %w", err)
		}
		if t.Listening() {
			return errors.New("config: pipe output must name a receiver host")
		}
	}

	if c.DisplayWidth < 0 || c.DisplayHeight < 0 {
		return errors.New("config: display size cannot be negative")
	}
	if c.DisplayScale < 1 || c.DisplayScale > 4 {
		return errors.New("config: DisplayScale must be between 1 and 4")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("config: LogLevel must be 'debug', 'info', 'warn', or 'error'")
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NeedsDeviceClock reports whether frame timestamps must be converted to
// absolute device time. Replayed streams already carry absolute times; the
// pattern is stamped with the device uptime so the boot offset applies.
func (c *Config) NeedsDeviceClock() bool {
	return c.Source == SourcePattern && (c.SaveFrames || c.PipeOutput != "" || c.ShowTimestamps)
}

// String returns a string representation of the config for logging.
func (c *Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Config{Source: %s", c.Source)
	if c.Source == SourcePattern {
		fmt.Fprintf(&b, " %dx%d@%d", c.PatternWidth, c.PatternHeight, c.PatternFPS)
	}
	if c.Serial != "" {
		fmt.Fprintf(&b, ", Serial: %s", c.Serial)
	}
	fmt.Fprintf(&b, ", Orientation: %s, Fullscreen: %t", c.Orientation, c.Fullscreen)
	if c.SaveFrames {
		fmt.Fprintf(&b, ", FrameDir: %s, StillFormat: %s", c.FrameDir, c.StillFormat)
	}
	if c.PipeOutput != "" {
		fmt.Fprintf(&b, ", PipeOutput: %s", c.PipeOutput)
	}
	fmt.Fprintf(&b, ", ShowTimestamps: %t, Display: %dx%d@%dx, LogLevel: %s}",
		c.ShowTimestamps, c.DisplayWidth, c.DisplayHeight, c.DisplayScale, c.LogLevel)
	return b.String()
}
