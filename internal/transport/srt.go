package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	srtgo "github.com/zsiec/srtgo"
)

const (
	// srtLatencyNs is the SRT latency setting in nanoseconds (120ms).
	srtLatencyNs = 120_000_000

	// srtPayloadSize is the live-mode message size. Frames are written
	// as a sequence of messages of at most this size.
	srtPayloadSize = 1316

	srtDialTimeout = 10 * time.Second
)

type srtWriter struct {
	chunkWriter
	conn *srtgo.Conn
}

func (w *srtWriter) Close() error { return w.conn.Close() }

func dialSRT(ctx context.Context, t Target, log *slog.Logger) (io.WriteCloser, error) {
	cfg := srtgo.DefaultConfig()
	cfg.Latency = srtLatencyNs
	if t.StreamID != "" {
		cfg.StreamID = t.StreamID
	}

	type dialResult struct {
		conn *srtgo.Conn
		err  error
	}
	ch := make(chan dialResult, 1)
	go func() {
		conn, err := srtgo.Dial(t.Addr, cfg)
		ch <- dialResult{conn, err}
	}()

	timer := time.NewTimer(srtDialTimeout)
	defer timer.Stop()

	abandon := func() {
		// Close a connection that completes after we gave up on it.
		go func() {
			if res := <-ch; res.conn != nil {
				res.conn.Close()
			}
		}()
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("transport: SRT dial %s: %w", t.Addr, res.err)
		}
		log.Info("SRT connected", "addr", t.Addr, "stream_id", t.StreamID)
		return &srtWriter{chunkWriter: chunkWriter{w: res.conn, size: srtPayloadSize}, conn: res.conn}, nil
	case <-timer.C:
		abandon()
		return nil, fmt.Errorf("transport: SRT dial %s timed out after %s", t.Addr, srtDialTimeout)
	case <-ctx.Done():
		abandon()
		return nil, ctx.Err()
	}
}

type srtReader struct {
	conn          *srtgo.Conn
	closeListener func()
}

func (r *srtReader) Read(p []byte) (int, error) { return r.conn.Read(p) }

func (r *srtReader) Close() error {
	err := r.conn.Close()
	r.closeListener()
	return err
}

// acceptSRT listens on t.Addr and returns the first sender. When the target
// names a stream id, callers with a different one are rejected.
func acceptSRT(ctx context.Context, t Target, log *slog.Logger) (io.ReadCloser, error) {
	cfg := srtgo.DefaultConfig()
	cfg.Latency = srtLatencyNs

	l, err := srtgo.Listen(t.Addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("transport: SRT listen on %s: %w", t.Addr, err)
	}
	if t.StreamID != "" {
		l.SetAcceptRejectFunc(func(req srtgo.ConnRequest) srtgo.RejectReason {
			if req.StreamID != t.StreamID {
				return srtgo.RejPeer
			}
			return 0
		})
	}
	log.Info("SRT listening", "addr", t.Addr)

	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	conn, err := l.Accept()
	if err != nil {
		l.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("transport: SRT accept: %w", err)
	}
	log.Info("SRT sender connected", "remote", conn.RemoteAddr(), "stream_id", conn.StreamID())
	return &srtReader{conn: conn, closeListener: func() { l.Close() }}, nil
}
