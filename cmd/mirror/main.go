package main

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zsiec/mirror/internal/config"
	"github.com/zsiec/mirror/internal/devclock"
	"github.com/zsiec/mirror/internal/display"
	"github.com/zsiec/mirror/internal/fps"
	"github.com/zsiec/mirror/internal/framing"
	"github.com/zsiec/mirror/internal/media"
	"github.com/zsiec/mirror/internal/output"
	"github.com/zsiec/mirror/internal/overlay"
	"github.com/zsiec/mirror/internal/screen"
	"github.com/zsiec/mirror/internal/source"
	"github.com/zsiec/mirror/internal/transport"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})).
		With("session", uuid.NewString())
	slog.SetDefault(log)
	log.Info("mirror starting", "version", version, "config", cfg.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("mirror error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	var clock devclock.Offset
	if cfg.NeedsDeviceClock() {
		clock = devclock.Acquire(ctx, devclock.ADB{Path: cfg.ADBPath, Serial: cfg.Serial}, log)
	}

	var stages []output.Stage
	var stills *output.StillWriter
	if cfg.SaveFrames {
		var err error
		stills, err = output.NewStillWriter(output.StillConfig{
			Dir:         cfg.FrameDir,
			Format:      cfg.StillFormat,
			JPEGQuality: cfg.JPEGQuality,
		}, clock, log)
		if err != nil {
			return err
		}
		stages = append(stages, output.Stage{Name: "stills", Writer: stills})
	}
	if cfg.PipeOutput != "" {
		w, err := transport.OpenWriter(ctx, cfg.PipeOutput, log)
		if err != nil {
			return err
		}
		defer w.Close()
		stages = append(stages, output.Stage{Name: "pipe", Writer: framing.NewWriter(w, clock)})
	}
	fanout := output.NewFanout(log, stages...)

	var transform screen.Transformer
	if cfg.ShowTimestamps {
		transform = overlay.New(overlay.DefaultConfig())
	}

	counter := fps.New(0, log)
	win := display.NewWindow(display.WindowConfig{
		Usable: media.Size{Width: cfg.DisplayWidth, Height: cfg.DisplayHeight},
		Scale:  cfg.DisplayScale,
	}, log)
	scr, err := screen.New(win, display.NewSurface(0, log), screen.Params{
		WindowX:         cfg.WindowX,
		WindowY:         cfg.WindowY,
		WindowWidth:     cfg.WindowWidth,
		WindowHeight:    cfg.WindowHeight,
		Fullscreen:      cfg.Fullscreen,
		StartFPSCounter: cfg.FPSCounter,
		RelativeMouse:   cfg.RelativeMouse,
		Orientation:     cfg.Orientation,
		ShowTimestamps:  cfg.ShowTimestamps,
		Clock:           clock,
		Transform:       transform,
		Output:          fanout,
		FPS:             counter,
	}, log)
	if err != nil {
		return err
	}

	if cfg.Source != "-" {
		go readControl(ctx, os.Stdin, scr, log)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return scr.Run(ctx)
	})

	g.Go(func() error {
		return counter.Run(ctx)
	})

	g.Go(func() error {
		return runSource(ctx, cfg, clock, scr, log)
	})

	err = g.Wait()

	for _, st := range fanout.Stats() {
		log.Info("output stage", "stage", st.Name, "written", st.Written, "failed", st.Failed)
	}
	snap := counter.Snapshot()
	log.Info("mirror stopped", "received", scr.Received(), "rendered", snap.TotalRendered, "skipped", snap.TotalSkipped)
	return err
}

// runSource feeds the screen until the source ends. The window stays up
// after a source ends, as it does when a device disconnects.
func runSource(ctx context.Context, cfg *config.Config, clock devclock.Offset, sink source.FrameSink, log *slog.Logger) error {
	if cfg.Source == config.SourcePattern {
		p, err := source.NewPattern(source.PatternConfig{
			Width:   cfg.PatternWidth,
			Height:  cfg.PatternHeight,
			FPS:     cfg.PatternFPS,
			PTSBase: clock.Uptime(time.Now()),
		}, log)
		if err != nil {
			return err
		}
		return p.Run(ctx, sink)
	}

	r, err := transport.OpenReader(ctx, cfg.Source, log)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	// Unblock a pending read on shutdown.
	stop := context.AfterFunc(ctx, func() { r.Close() })
	defer stop()
	defer r.Close()

	return source.NewStream(r, cfg.Paced, log).Run(ctx, sink)
}

// readControl posts one command per input line until r ends.
func readControl(ctx context.Context, r io.Reader, scr *screen.Screen, log *slog.Logger) {
	sc := bufio.NewScanner(r)
	for sc.Scan() && ctx.Err() == nil {
		ev, err := parseCommand(sc.Text())
		if err != nil {
			log.Warn("ignoring command", "error", err)
			continue
		}
		if ev == nil {
			continue
		}
		if err := scr.Post(ev); err != nil {
			log.Warn("command dropped", "error", err)
		}
	}
}
