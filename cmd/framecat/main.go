// Command framecat receives a framed picture stream and reports every
// record: time, size and any damage the reader had to skip over.
//
//	framecat [-in -|path|srt://:6000|quic://:4443] [-stills DIR] [-q]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/zsiec/mirror/internal/devclock"
	"github.com/zsiec/mirror/internal/framing"
	"github.com/zsiec/mirror/internal/output"
	"github.com/zsiec/mirror/internal/transport"
)

func main() {
	inFlag := flag.String("in", "-", "Framed stream source: -, file path, srt://:port or quic://:port")
	stillsFlag := flag.String("stills", "", "Also save every record as a still image in this directory")
	formatFlag := flag.String("format", "png", "Still image format: png, jpeg or ppm")
	maxFlag := flag.Int("max-payload", framing.DefaultMaxPayload, "Largest accepted payload in bytes")
	quietFlag := flag.Bool("q", false, "Print only the summary")
	flag.Parse()

	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := options{maxPayload: *maxFlag, quiet: *quietFlag}
	if *stillsFlag != "" {
		format, err := output.ParseStillFormat(*formatFlag)
		if err != nil {
			log.Error("invalid still format", "error", err)
			os.Exit(2)
		}
		// Records already carry absolute times.
		w, err := output.NewStillWriter(output.StillConfig{Dir: *stillsFlag, Format: format, JPEGQuality: 90}, 0, log)
		if err != nil {
			log.Error("cannot save stills", "error", err)
			os.Exit(1)
		}
		opts.stills = w
	}

	r, err := transport.OpenReader(ctx, *inFlag, log)
	if err != nil {
		log.Error("cannot open source", "source", *inFlag, "error", err)
		os.Exit(1)
	}
	stop := context.AfterFunc(ctx, func() { r.Close() })
	defer stop()

	stats, err := inspect(r, os.Stdout, opts)
	r.Close()
	fmt.Fprintf(os.Stdout, "frames=%d bad_headers=%d skipped_bytes=%d\n", stats.Frames, stats.BadHeaders, stats.SkippedBytes)
	if err != nil && ctx.Err() == nil {
		log.Error("stream error", "error", err)
		os.Exit(1)
	}
}

type options struct {
	maxPayload int
	quiet      bool
	stills     output.FrameWriter
}

// inspect reads records until the stream ends, printing one line each.
func inspect(r io.Reader, w io.Writer, opts options) (framing.ReaderStats, error) {
	fr := framing.NewReader(r, opts.maxPayload)
	var prev framing.ReaderStats
	for n := 0; ; n++ {
		h, f, err := fr.Next()
		stats := fr.Stats()
		if stats.BadHeaders != prev.BadHeaders {
			fmt.Fprintf(w, "resync: %d bad headers, %d bytes skipped\n",
				stats.BadHeaders-prev.BadHeaders, stats.SkippedBytes-prev.SkippedBytes)
		}
		prev = stats
		if err == io.EOF {
			return stats, nil
		}
		if err != nil {
			return stats, err
		}

		if !opts.quiet {
			when := devclock.NoTimestampText
			if h.HasTimestamp() {
				when = devclock.FormatTimestamp(h.Timestamp)
			}
			fmt.Fprintf(w, "#%d %dx%d payload=%d time=%q\n", n, h.Width, h.Height, h.PayloadSize, when)
		}
		if opts.stills != nil {
			if err := opts.stills.WriteFrame(f); err != nil {
				return stats, err
			}
		}
	}
}
