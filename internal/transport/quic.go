package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/zsiec/mirror/internal/certs"
)

// ALPN is the application protocol negotiated for framed streams.
const ALPN = "mirror-frames"

const (
	quicIdleTimeout = 30 * time.Second
	// quicCloseGrace bounds how long a writer waits for the receiver to
	// drain the stream before tearing down the connection.
	quicCloseGrace = 5 * time.Second
)

func quicConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:  quicIdleTimeout,
		KeepAlivePeriod: quicIdleTimeout / 3,
	}
}

type quicWriter struct {
	quic.Stream
	conn quic.Connection
}

// Close finishes the stream and waits for the receiver to close the
// connection, so buffered frames are not discarded.
func (w *quicWriter) Close() error {
	err := w.Stream.Close()
	select {
	case <-w.conn.Context().Done():
	case <-time.After(quicCloseGrace):
	}
	w.conn.CloseWithError(0, "")
	return err
}

func dialQUIC(ctx context.Context, t Target, log *slog.Logger) (io.WriteCloser, error) {
	tlsConf := &tls.Config{
		NextProtos: []string{ALPN},
		MinVersion: tls.VersionTLS13,
		// The listener presents a self-signed certificate; it is checked
		// against the pinned fingerprint when one is given.
		InsecureSkipVerify: true,
	}
	if t.Fingerprint != "" {
		tlsConf.VerifyPeerCertificate = certs.VerifyFingerprint(t.Fingerprint)
	} else {
		log.Warn("QUIC destination has no fingerprint, server certificate not verified", "addr", t.Addr)
	}

	conn, err := quic.DialAddr(ctx, t.Addr, tlsConf, quicConfig())
	if err != nil {
		return nil, fmt.Errorf("transport: QUIC dial %s: %w", t.Addr, err)
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(0, "")
		return nil, fmt.Errorf("transport: QUIC open stream: %w", err)
	}
	log.Info("QUIC connected", "addr", t.Addr)
	return &quicWriter{Stream: stream, conn: conn}, nil
}

// QUICListener accepts framed streams over QUIC with a fresh self-signed
// certificate.
type QUICListener struct {
	log *slog.Logger
	id  *certs.Identity
	ln  *quic.Listener
}

// ListenQUIC listens on addr. The certificate fingerprint is logged so
// senders can pin it.
func ListenQUIC(addr string, log *slog.Logger) (*QUICListener, error) {
	if log == nil {
		log = slog.Default()
	}
	id, err := certs.Generate(certs.DefaultValidity)
	if err != nil {
		return nil, err
	}
	ln, err := quic.ListenAddr(addr, id.ServerConfig(ALPN), quicConfig())
	if err != nil {
		return nil, fmt.Errorf("transport: QUIC listen on %s: %w", addr, err)
	}
	log.Info("QUIC listening", "addr", ln.Addr().String(), "fingerprint", id.FingerprintHex())
	return &QUICListener{log: log, id: id, ln: ln}, nil
}

// Addr returns the bound address.
func (l *QUICListener) Addr() string { return l.ln.Addr().String() }

// Fingerprint returns the hex certificate fingerprint.
func (l *QUICListener) Fingerprint() string { return l.id.FingerprintHex() }

// Accept waits for a sender and its first stream.
func (l *QUICListener) Accept(ctx context.Context) (io.ReadCloser, error) {
	conn, err := l.ln.Accept(ctx)
	if err != nil {
		return nil, fmt.Errorf("transport: QUIC accept: %w", err)
	}
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		conn.CloseWithError(0, "")
		return nil, fmt.Errorf("transport: QUIC accept stream: %w", err)
	}
	l.log.Info("QUIC sender connected", "remote", conn.RemoteAddr().String())
	return &quicReader{Stream: stream, conn: conn}, nil
}

func (l *QUICListener) Close() error { return l.ln.Close() }

type quicReader struct {
	quic.Stream
	conn quic.Connection
}

func (r *quicReader) Close() error {
	r.CancelRead(0)
	return r.conn.CloseWithError(0, "")
}
