package framing

import (
	"errors"
	"fmt"
)

// Sentinel errors for framed stream decoding. Callers distinguish them
// with errors.Is.
var (
	ErrShortHeader     = errors.New("framing: short header")
	ErrBadDelimiter    = errors.New("framing: bad delimiter")
	ErrChecksum        = errors.New("framing: header checksum mismatch")
	ErrPayloadSize     = errors.New("framing: payload size does not match dimensions")
	ErrPayloadTooLarge = errors.New("framing: payload exceeds limit")
)

// HeaderError reports which header field failed validation.
type HeaderError struct {
	Field string
	Err   error
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("framing: header %s: %v", e.Field, e.Err)
}

func (e *HeaderError) Unwrap() error {
	return e.Err
}
