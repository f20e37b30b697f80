package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/zsiec/mirror/internal/framing"
	"github.com/zsiec/mirror/internal/media"
)

// Stream replays a framed stream as decoder output.
type Stream struct {
	log   *slog.Logger
	r     *framing.Reader
	paced bool
}

// NewStream reads framed pictures from r. When paced, frames are pushed at
// the rate their timestamps describe; otherwise as fast as they are read.
func NewStream(r io.Reader, paced bool, log *slog.Logger) *Stream {
	if log == nil {
		log = slog.Default()
	}
	return &Stream{
		log:   log.With("component", "stream-source"),
		r:     framing.NewReader(r, framing.DefaultMaxPayload),
		paced: paced,
	}
}

// Run pushes every valid record into sink until the stream ends or ctx is
// done. The sink is opened with the size of the first record. Cancelling
// ctx does not interrupt a blocked read; close the underlying reader for
// that.
func (s *Stream) Run(ctx context.Context, sink FrameSink) error {
	opened := false
	defer func() {
		if opened {
			sink.Close()
		}
		st := s.r.Stats()
		s.log.Info("stream ended", "frames", st.Frames, "bad_headers", st.BadHeaders, "skipped_bytes", st.SkippedBytes)
	}()

	var prevTS int64 = framing.NoTimestamp
	var prevAt time.Time
	for ctx.Err() == nil {
		h, f, err := s.r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("source: read frame: %w", err)
		}

		if !opened {
			if err := sink.Open(f.Width, f.Height, media.PixelFormatI420); err != nil {
				return fmt.Errorf("source: open sink: %w", err)
			}
			opened = true
		}

		if s.paced && h.HasTimestamp() && prevTS != framing.NoTimestamp && h.Timestamp > prevTS {
			wait := time.Until(prevAt.Add(time.Duration(h.Timestamp-prevTS) * time.Millisecond))
			if wait > 0 {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(wait):
				}
			}
		}
		if h.HasTimestamp() {
			prevTS, prevAt = h.Timestamp, time.Now()
		}

		if err := sink.Push(f); err != nil {
			return fmt.Errorf("source: push: %w", err)
		}
	}
	return nil
}

// Stats returns the reader counters.
func (s *Stream) Stats() framing.ReaderStats { return s.r.Stats() }
