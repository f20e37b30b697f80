package framing

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/zsiec/mirror/internal/media"
)

// DefaultMaxPayload bounds the payload a Reader allocates for one record.
// It fits a 7680x4320 picture.
const DefaultMaxPayload = 64 << 20

// ReaderStats counts stream damage seen by a Reader.
type ReaderStats struct {
	Frames       uint64
	BadHeaders   uint64
	SkippedBytes uint64
}

// Reader decodes framed pictures, resynchronizing on the delimiter when a
// header fails validation.
type Reader struct {
	br         *bufio.Reader
	maxPayload int
	stats      ReaderStats
}

// NewReader returns a Reader over r. maxPayload <= 0 selects
// DefaultMaxPayload.
func NewReader(r io.Reader, maxPayload int) *Reader {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}
	return &Reader{br: bufio.NewReaderSize(r, 64*1024), maxPayload: maxPayload}
}

// Stats returns the counters accumulated so far.
func (r *Reader) Stats() ReaderStats {
	return r.stats
}

// Next returns the next valid record. The frame has tightly packed planes
// and a PTS in microseconds derived from the header time, or media.NoPTS.
// It returns io.EOF at a clean end of stream and io.ErrUnexpectedEOF when
// the stream ends inside a record.
func (r *Reader) Next() (Header, *media.Frame, error) {
	for {
		buf, err := r.br.Peek(HeaderSize)
		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(buf) == 0 {
					return Header{}, nil, io.EOF
				}
				return Header{}, nil, io.ErrUnexpectedEOF
			}
			return Header{}, nil, fmt.Errorf("framing: read header: %w", err)
		}

		h, err := ParseHeader(buf)
		if err == nil && int(h.PayloadSize) > r.maxPayload {
			err = &HeaderError{
				Field: "payload",
				Err:   fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, h.PayloadSize, r.maxPayload),
			}
		}
		if err != nil {
			r.stats.BadHeaders++
			if err := r.resync(); err != nil {
				return Header{}, nil, err
			}
			continue
		}

		if _, err := r.br.Discard(HeaderSize); err != nil {
			return Header{}, nil, fmt.Errorf("framing: read header: %w", err)
		}
		f, err := r.readPayload(h)
		if err != nil {
			return Header{}, nil, err
		}
		r.stats.Frames++
		return h, f, nil
	}
}

func (r *Reader) readPayload(h Header) (*media.Frame, error) {
	f := media.NewFrame(int(h.Width), int(h.Height))
	if h.HasTimestamp() {
		f.PTS = h.Timestamp * 1000
	}
	for i := range f.Planes {
		if _, err := io.ReadFull(r.br, f.Planes[i]); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("framing: read plane %d: %w", i, err)
		}
	}
	return f, nil
}

// resync drops at least one byte, then everything up to the next
// delimiter. A clean io.EOF is returned if the stream ends first.
func (r *Reader) resync() error {
	if _, err := r.br.Discard(1); err != nil {
		return io.EOF
	}
	r.stats.SkippedBytes++

	for {
		if _, err := r.br.Peek(len(Delimiter)); err != nil {
			n, _ := r.br.Discard(r.br.Buffered())
			r.stats.SkippedBytes += uint64(n)
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			return fmt.Errorf("framing: resync: %w", err)
		}
		buf, _ := r.br.Peek(r.br.Buffered())
		if i := bytes.Index(buf, Delimiter[:]); i >= 0 {
			n, _ := r.br.Discard(i)
			r.stats.SkippedBytes += uint64(n)
			return nil
		}
		// Keep a tail that may be the start of a delimiter.
		n, _ := r.br.Discard(len(buf) - len(Delimiter) + 1)
		r.stats.SkippedBytes += uint64(n)
	}
}
