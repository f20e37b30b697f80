package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// OpenWriter opens a destination for a framed stream. Network targets are
// dialed; a listening target is not a valid destination.
func OpenWriter(ctx context.Context, target string, log *slog.Logger) (io.WriteCloser, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "transport")

	t, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}
	if t.Listening() {
		return nil, fmt.Errorf("%w: %s destination needs a host", ErrInvalidTarget, t.Scheme)
	}

	switch t.Scheme {
	case SchemeStdio:
		return nopWriteCloser{os.Stdout}, nil
	case SchemeFile:
		f, err := os.Create(t.Path)
		if err != nil {
			return nil, fmt.Errorf("transport: create %s: %w", t.Path, err)
		}
		log.Info("writing frames to file", "path", t.Path)
		return f, nil
	case SchemeSRT:
		return dialSRT(ctx, t, log)
	case SchemeQUIC:
		return dialQUIC(ctx, t, log)
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalidTarget, target)
}

// OpenReader opens a source of a framed stream. Network targets listen and
// accept exactly one sender; a dialing target is not a valid source.
func OpenReader(ctx context.Context, target string, log *slog.Logger) (io.ReadCloser, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "transport")

	t, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}

	switch t.Scheme {
	case SchemeStdio:
		return io.NopCloser(bufio.NewReader(os.Stdin)), nil
	case SchemeFile:
		f, err := os.Open(t.Path)
		if err != nil {
			return nil, fmt.Errorf("transport: open %s: %w", t.Path, err)
		}
		return f, nil
	}

	if !t.Listening() {
		return nil, fmt.Errorf("%w: %s source must be a local address like :6000", ErrInvalidTarget, t.Scheme)
	}
	switch t.Scheme {
	case SchemeSRT:
		return acceptSRT(ctx, t, log)
	case SchemeQUIC:
		l, err := ListenQUIC(t.Addr, log)
		if err != nil {
			return nil, err
		}
		rc, err := l.Accept(ctx)
		if err != nil {
			l.Close()
			return nil, err
		}
		return &listenerReadCloser{ReadCloser: rc, listener: l}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalidTarget, target)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// listenerReadCloser closes the listener after the accepted stream.
type listenerReadCloser struct {
	io.ReadCloser
	listener io.Closer
}

func (l *listenerReadCloser) Close() error {
	err := l.ReadCloser.Close()
	if cerr := l.listener.Close(); err == nil {
		err = cerr
	}
	return err
}

// chunkWriter splits writes for message-oriented transports.
type chunkWriter struct {
	w    io.Writer
	size int
}

func (c chunkWriter) Write(p []byte) (int, error) {
	var n int
	for len(p) > 0 {
		chunk := p[:min(len(p), c.size)]
		m, err := c.w.Write(chunk)
		n += m
		if err != nil {
			return n, err
		}
		if m < len(chunk) {
			return n, io.ErrShortWrite
		}
		p = p[len(chunk):]
	}
	return n, nil
}
