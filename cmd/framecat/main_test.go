package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zsiec/mirror/internal/framing"
	"github.com/zsiec/mirror/internal/media"
	"github.com/zsiec/mirror/internal/output"
)

func record(t *testing.T, w, h int, pts int64) []byte {
	t.Helper()
	f := media.NewFrame(w, h)
	f.PTS = pts
	var buf bytes.Buffer
	if err := framing.NewWriter(&buf, 0).WriteFrame(f); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestInspect(t *testing.T) {
	t.Parallel()

	var in bytes.Buffer
	in.Write(record(t, 4, 2, media.NoPTS))
	in.WriteString("garbage")
	in.Write(record(t, 2, 4, 0))

	var out bytes.Buffer
	stats, err := inspect(&in, &out, options{})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Frames != 2 || stats.BadHeaders != 1 || stats.SkippedBytes != 7 {
		t.Errorf("stats = %+v", stats)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("output:\n%s", out.String())
	}
	if !strings.HasPrefix(lines[0], "#0 4x2 payload=12") || !strings.Contains(lines[0], "No timestamps") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "resync: 1 bad headers, 7 bytes skipped") {
		t.Errorf("line 1 = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "#1 2x4 payload=12") {
		t.Errorf("line 2 = %q", lines[2])
	}
}

func TestInspectStills(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := output.NewStillWriter(output.StillConfig{Dir: dir}, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	in := bytes.NewReader(record(t, 4, 4, 1_000))

	var out bytes.Buffer
	if _, err := inspect(in, &out, options{quiet: true, stills: w}); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("quiet output: %q", out.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "frame_000000_1.png")); err != nil {
		t.Errorf("still not written: %v", err)
	}
}
