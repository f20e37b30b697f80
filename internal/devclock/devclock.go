// Package devclock estimates the device boot time so that decoder
// presentation timestamps, which count from device boot, can be turned into
// absolute wall-clock milliseconds.
package devclock

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/zsiec/mirror/internal/media"
)

// TimestampLayout is the human-readable absolute timestamp format, rendered
// in local time.
const TimestampLayout = "2006-01-02 15:04:05.000"

// NoTimestampText is shown instead of a time when a frame has no PTS.
const NoTimestampText = "No timestamps"

// Offset is the device boot time in milliseconds since the Unix epoch.
// Zero means the boot time is unknown; PTS values then map to milliseconds
// since boot.
type Offset int64

// Absolute converts a PTS in microseconds to absolute milliseconds. It
// reports false when the PTS is unknown.
func (o Offset) Absolute(pts int64) (int64, bool) {
	if pts == media.NoPTS {
		return 0, false
	}
	return int64(o) + pts/1000, true
}

// Uptime returns the device uptime at now in microseconds, the PTS a frame
// captured at now would carry. It is zero when the boot time is unknown.
func (o Offset) Uptime(now time.Time) int64 {
	if o == 0 {
		return 0
	}
	return max(0, now.UnixMicro()-int64(o)*1000)
}

// Label returns the overlay text for a frame with the given PTS.
func (o Offset) Label(pts int64) string {
	ms, ok := o.Absolute(pts)
	if !ok {
		return NoTimestampText
	}
	return FormatTimestamp(ms)
}

// FormatTimestamp renders absolute milliseconds with TimestampLayout.
func FormatTimestamp(ms int64) string {
	return time.UnixMilli(ms).Format(TimestampLayout)
}

// ADB queries a device through the adb command line tool.
type ADB struct {
	Path   string // adb binary; "adb" when empty
	Serial string // device serial or host:port
}

// BootTime returns the device's current time minus its uptime.
func (a ADB) BootTime(ctx context.Context) (Offset, error) {
	nowOut, err := a.shell(ctx, "date", "+%s%3N")
	if err != nil {
		return 0, fmt.Errorf("devclock: device time: %w", err)
	}
	now, err := parseMillis(nowOut)
	if err != nil {
		return 0, fmt.Errorf("devclock: device time: %w", err)
	}

	upOut, err := a.shell(ctx, "cat", "/proc/uptime")
	if err != nil {
		return 0, fmt.Errorf("devclock: device uptime: %w", err)
	}
	uptime, err := parseUptime(upOut)
	if err != nil {
		return 0, fmt.Errorf("devclock: device uptime: %w", err)
	}
	return Offset(now - uptime), nil
}

func (a ADB) shell(ctx context.Context, args ...string) (string, error) {
	path := a.Path
	if path == "" {
		path = "adb"
	}
	var full []string
	if a.Serial != "" {
		full = append(full, "-s", a.Serial)
	}
	full = append(full, "shell")
	full = append(full, args...)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, full...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %w: %s", path, err, msg)
		}
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return string(out), nil
}

// Clock reports the device boot time.
type Clock interface {
	BootTime(ctx context.Context) (Offset, error)
}

// Acquire asks c for the boot time once. Failures are logged and yield a zero
// offset; mirroring continues with boot-relative timestamps.
func Acquire(ctx context.Context, c Clock, log *slog.Logger) Offset {
	if log == nil {
		log = slog.Default()
	}
	off, err := c.BootTime(ctx)
	if err != nil {
		log.Warn("device boot time unavailable, timestamps are relative to boot", "error", err)
		return 0
	}
	log.Info("device boot time", "boot_ms", int64(off), "boot", FormatTimestamp(int64(off)))
	return off
}

// parseMillis parses the output of `date +%s%3N`.
func parseMillis(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty output")
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return ms, nil
}

// parseUptime parses the first field of /proc/uptime (seconds) into ms.
func parseUptime(s string) (int64, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty output")
	}
	sec, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", fields[0], err)
	}
	return int64(sec * 1000), nil
}
