// Package transport opens the byte streams the framed frame protocol runs
// over: standard input and output, files, SRT and QUIC.
package transport

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Scheme selects the transport of a Target.
type Scheme int

// Transports.
const (
	SchemeStdio Scheme = iota
	SchemeFile
	SchemeSRT
	SchemeQUIC
)

func (s Scheme) String() string {
	switch s {
	case SchemeStdio:
		return "stdio"
	case SchemeFile:
		return "file"
	case SchemeSRT:
		return "srt"
	case SchemeQUIC:
		return "quic"
	default:
		return fmt.Sprintf("Scheme(%d)", int(s))
	}
}

// ErrInvalidTarget is returned for targets that cannot be parsed.
var ErrInvalidTarget = errors.New("transport: invalid target")

// Target is a parsed destination or source.
//
//	-                                  standard output or input
//	path, file:///path                 file
//	srt://host:port?streamid=ID        SRT caller; listener when host is empty
//	quic://host:port?fingerprint=HEX   QUIC client; listener when host is empty
type Target struct {
	Scheme Scheme
	// Path is the file path for SchemeFile.
	Path string
	// Addr is host:port for network schemes.
	Addr string
	// StreamID is the SRT stream id.
	StreamID string
	// Fingerprint pins the QUIC server certificate (hex SHA-256).
	Fingerprint string
}

// ParseTarget parses a destination or source string.
func ParseTarget(s string) (Target, error) {
	switch {
	case s == "":
		return Target{}, fmt.Errorf("%w: empty", ErrInvalidTarget)
	case s == "-":
		return Target{Scheme: SchemeStdio}, nil
	case !strings.Contains(s, "://"):
		return Target{Scheme: SchemeFile, Path: s}, nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	switch u.Scheme {
	case "file":
		if u.Path == "" {
			return Target{}, fmt.Errorf("%w: %q has no path", ErrInvalidTarget, s)
		}
		return Target{Scheme: SchemeFile, Path: u.Path}, nil
	case "srt", "quic":
		if u.Port() == "" {
			return Target{}, fmt.Errorf("%w: %q has no port", ErrInvalidTarget, s)
		}
		t := Target{Addr: u.Host}
		if u.Scheme == "srt" {
			t.Scheme = SchemeSRT
			t.StreamID = u.Query().Get("streamid")
		} else {
			t.Scheme = SchemeQUIC
			t.Fingerprint = strings.ToLower(u.Query().Get("fingerprint"))
		}
		return t, nil
	default:
		return Target{}, fmt.Errorf("%w: unknown scheme %q", ErrInvalidTarget, u.Scheme)
	}
}

// Listening reports whether the target names a local listener: a network
// address without a host.
func (t Target) Listening() bool {
	return (t.Scheme == SchemeSRT || t.Scheme == SchemeQUIC) && strings.HasPrefix(t.Addr, ":")
}

func (t Target) String() string {
	switch t.Scheme {
	case SchemeStdio:
		return "-"
	case SchemeFile:
		return t.Path
	default:
		return t.Scheme.String() + "://" + t.Addr
	}
}
