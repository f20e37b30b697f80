// Package framing implements the framed raw-video stream written to the pipe
// output and read back by inspection and replay tools.
//
// The stream is a sequence of records:
//
//	[header 32 bytes][Y rows][U rows][V rows]
//
// All header integers are little-endian:
//
//	[0:8]   delimiter, eight 0xFF bytes
//	[8:16]  int64 absolute device time in ms, -1 when unknown
//	[16:20] int32 width
//	[20:24] int32 height
//	[24:28] uint32 payload byte count
//	[28:32] uint32 checksum of bytes [0:28]
//
// Planes are written row by row at their logical width, never their stride,
// so the payload is exactly width*height + 2*ceil(width/2)*ceil(height/2)
// bytes.
package framing

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/zsiec/mirror/internal/media"
)

// HeaderSize is the encoded header length.
const HeaderSize = 32

// NoTimestamp is the wire value for an unknown absolute time.
const NoTimestamp int64 = -1

const checksumOffset = 28

// Delimiter starts every header. 0xFF never occurs as eight consecutive
// bytes in limited-range YUV pixel data. It does occur inside headers:
// NoTimestamp encodes as the same eight bytes, so resync over a broken
// untimed header matches and rejects up to eight shifted copies first.
var Delimiter = [8]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// Header describes one framed picture.
type Header struct {
	Timestamp   int64 // absolute ms, or NoTimestamp
	Width       int32
	Height      int32
	PayloadSize uint32
	Checksum    uint32
}

// NewHeader returns the header for a width x height picture. The checksum
// is filled in by Encode.
func NewHeader(timestamp int64, width, height int) Header {
	return Header{
		Timestamp:   timestamp,
		Width:       int32(width),
		Height:      int32(height),
		PayloadSize: uint32(media.PayloadSize(width, height)),
	}
}

// Checksum combines bytes as c = (c << 8) ^ b. The shift drops all but the
// last four bytes, so over a header it only covers the payload size; the
// delimiter and the payload consistency check in ParseHeader cover the rest.
func Checksum(b []byte) uint32 {
	var c uint32
	for _, v := range b {
		c = c<<8 ^ uint32(v)
	}
	return c
}

// Encode writes h to dst, which must hold HeaderSize bytes, computes the
// checksum over the preceding fields and stores it in both dst and h.
func (h *Header) Encode(dst []byte) {
	_ = dst[HeaderSize-1]
	copy(dst[0:8], Delimiter[:])
	binary.LittleEndian.PutUint64(dst[8:16], uint64(h.Timestamp))
	binary.LittleEndian.PutUint32(dst[16:20], uint32(h.Width))
	binary.LittleEndian.PutUint32(dst[20:24], uint32(h.Height))
	binary.LittleEndian.PutUint32(dst[24:28], h.PayloadSize)
	h.Checksum = Checksum(dst[:checksumOffset])
	binary.LittleEndian.PutUint32(dst[checksumOffset:HeaderSize], h.Checksum)
}

// Verify checks the delimiter and that the stored checksum matches the
// checksum of the bytes before it.
func Verify(b []byte) error {
	if len(b) < HeaderSize {
		return ErrShortHeader
	}
	if !bytes.Equal(b[0:8], Delimiter[:]) {
		return &HeaderError{Field: "delimiter", Err: ErrBadDelimiter}
	}
	computed := Checksum(b[:checksumOffset])
	stored := binary.LittleEndian.Uint32(b[checksumOffset:HeaderSize])
	if computed != stored {
		return &HeaderError{
			Field: "checksum",
			Err:   fmt.Errorf("%w: computed 0x%08X, stored 0x%08X", ErrChecksum, computed, stored),
		}
	}
	return nil
}

// ParseHeader verifies b and decodes it. Dimensions must be valid frame
// dimensions and the payload size must match them.
func ParseHeader(b []byte) (Header, error) {
	if err := Verify(b); err != nil {
		return Header{}, err
	}
	h := Header{
		Timestamp:   int64(binary.LittleEndian.Uint64(b[8:16])),
		Width:       int32(binary.LittleEndian.Uint32(b[16:20])),
		Height:      int32(binary.LittleEndian.Uint32(b[20:24])),
		PayloadSize: binary.LittleEndian.Uint32(b[24:28]),
		Checksum:    binary.LittleEndian.Uint32(b[checksumOffset:HeaderSize]),
	}
	if !media.ValidDimensions(int(h.Width), int(h.Height)) {
		return Header{}, &HeaderError{
			Field: "dimensions",
			Err:   fmt.Errorf("%w: %dx%d", media.ErrInvalidDimensions, h.Width, h.Height),
		}
	}
	if want := media.PayloadSize(int(h.Width), int(h.Height)); int(h.PayloadSize) != want {
		return Header{}, &HeaderError{
			Field: "payload",
			Err:   fmt.Errorf("%w: %d, want %d", ErrPayloadSize, h.PayloadSize, want),
		}
	}
	return h, nil
}

// HasTimestamp reports whether the header carries an absolute time.
func (h Header) HasTimestamp() bool {
	return h.Timestamp != NoTimestamp
}
