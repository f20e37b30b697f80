package framing

import (
	"bufio"
	"fmt"
	"io"

	"github.com/zsiec/mirror/internal/devclock"
	"github.com/zsiec/mirror/internal/media"
)

// Writer emits framed pictures to an underlying stream. It is not safe for
// concurrent use; the presentation loop is its only caller.
type Writer struct {
	out    io.Writer
	bw     *bufio.Writer
	clock  devclock.Offset
	hdr    [HeaderSize]byte
	frames uint64
}

// NewWriter returns a Writer that stamps headers with clock-adjusted
// absolute times.
func NewWriter(w io.Writer, clock devclock.Offset) *Writer {
	return &Writer{out: w, bw: bufio.NewWriterSize(w, 256*1024), clock: clock}
}

// WriteFrame writes the header and the three planes of f, then flushes so a
// downstream reader sees the whole record. A slow reader blocks the flush.
//
// A failed write abandons the current record only: whatever of it is still
// buffered is dropped and the next call starts a fresh record. Bytes that
// already reached the stream leave a torn record that Reader skips.
func (w *Writer) WriteFrame(f *media.Frame) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("framing: %w", err)
	}
	if err := w.writeRecord(f); err != nil {
		w.bw.Reset(w.out)
		return err
	}
	w.frames++
	return nil
}

func (w *Writer) writeRecord(f *media.Frame) error {
	ts := NoTimestamp
	if abs, ok := w.clock.Absolute(f.PTS); ok {
		ts = abs
	}
	h := NewHeader(ts, f.Width, f.Height)
	h.Encode(w.hdr[:])

	if _, err := w.bw.Write(w.hdr[:]); err != nil {
		return fmt.Errorf("framing: write header: %w", err)
	}
	for i := range f.Planes {
		_, rows := f.PlaneDims(i)
		for y := 0; y < rows; y++ {
			if _, err := w.bw.Write(f.Row(i, y)); err != nil {
				return fmt.Errorf("framing: write plane %d: %w", i, err)
			}
		}
	}
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("framing: flush: %w", err)
	}
	return nil
}

// Frames returns the number of records written completely.
func (w *Writer) Frames() uint64 {
	return w.frames
}
