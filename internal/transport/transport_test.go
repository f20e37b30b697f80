package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Target
	}{
		{"-", Target{Scheme: SchemeStdio}},
		{"frames.raw", Target{Scheme: SchemeFile, Path: "frames.raw"}},
		{"/tmp/a b.raw", Target{Scheme: SchemeFile, Path: "/tmp/a b.raw"}},
		{"file:///tmp/out.raw", Target{Scheme: SchemeFile, Path: "/tmp/out.raw"}},
		{"srt://10.0.0.2:6000?streamid=live/phone", Target{Scheme: SchemeSRT, Addr: "10.0.0.2:6000", StreamID: "live/phone"}},
		{"srt://:6000", Target{Scheme: SchemeSRT, Addr: ":6000"}},
		{"quic://host:4443?fingerprint=ABCD", Target{Scheme: SchemeQUIC, Addr: "host:4443", Fingerprint: "abcd"}},
	}
	for _, tt := range tests {
		got, err := ParseTarget(tt.in)
		if err != nil {
			t.Errorf("ParseTarget(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTarget(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseTargetInvalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "srt://host", "quic://", "http://host:80", "file://"} {
		if _, err := ParseTarget(in); !errors.Is(err, ErrInvalidTarget) {
			t.Errorf("ParseTarget(%q) = %v, want ErrInvalidTarget", in, err)
		}
	}
}

func TestListening(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]bool{
		"srt://:6000":          true,
		"quic://:4443":         true,
		"srt://127.0.0.1:6000": false,
		"-":                    false,
		"out.raw":              false,
	} {
		tg, err := ParseTarget(in)
		if err != nil {
			t.Fatal(err)
		}
		if got := tg.Listening(); got != want {
			t.Errorf("%q Listening() = %v, want %v", in, got, want)
		}
	}
}

func TestOpenRejectsWrongDirection(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if _, err := OpenWriter(ctx, "srt://:6000", nil); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("OpenWriter(listener) = %v, want ErrInvalidTarget", err)
	}
	if _, err := OpenReader(ctx, "quic://example.com:4443", nil); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("OpenReader(dialer) = %v, want ErrInvalidTarget", err)
	}
}

func TestFileRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "frames.raw")
	ctx := context.Background()

	w, err := OpenWriter(ctx, path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("frames")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := OpenReader(ctx, "file://"+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil || string(got) != "frames" {
		t.Errorf("read %q, %v", got, err)
	}
}

func TestOpenReaderMissingFile(t *testing.T) {
	t.Parallel()

	_, err := OpenReader(context.Background(), filepath.Join(t.TempDir(), "nope"), nil)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want not exist", err)
	}
}

type recordingWriter struct{ writes [][]byte }

func (r *recordingWriter) Write(p []byte) (int, error) {
	r.writes = append(r.writes, bytes.Clone(p))
	return len(p), nil
}

func TestChunkWriter(t *testing.T) {
	t.Parallel()

	rec := &recordingWriter{}
	cw := chunkWriter{w: rec, size: 4}
	n, err := cw.Write([]byte("0123456789"))
	if err != nil || n != 10 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	want := []string{"0123", "4567", "89"}
	if len(rec.writes) != len(want) {
		t.Fatalf("writes = %q", rec.writes)
	}
	for i, w := range want {
		if string(rec.writes[i]) != w {
			t.Errorf("write %d = %q, want %q", i, rec.writes[i], w)
		}
	}
}

func TestQUICLoopback(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	l, err := ListenQUIC("127.0.0.1:0", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	payload := bytes.Repeat([]byte("frame-data"), 10_000)
	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		r, err := l.Accept(ctx)
		if err != nil {
			done <- result{err: err}
			return
		}
		defer r.Close()
		b, err := io.ReadAll(r)
		done <- result{b, err}
	}()

	w, err := OpenWriter(ctx, "quic://"+l.Addr()+"?fingerprint="+l.Fingerprint(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(payload); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	res := <-done
	if res.err != nil {
		t.Fatalf("receive: %v", res.err)
	}
	if !bytes.Equal(res.data, payload) {
		t.Errorf("received %d bytes, want %d", len(res.data), len(payload))
	}
}

func TestQUICFingerprintMismatch(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	l, err := ListenQUIC("127.0.0.1:0", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	wrong := "00" + l.Fingerprint()[2:]
	if l.Fingerprint()[:2] == "00" {
		wrong = "11" + l.Fingerprint()[2:]
	}
	if _, err := OpenWriter(ctx, "quic://"+l.Addr()+"?fingerprint="+wrong, nil); err == nil {
		t.Error("dial succeeded with the wrong fingerprint")
	}
}
