package implode

import (
	"errors"
	"fmt"
)

// Package errors. Match them with errors.Is; use errors.As with *Error to get the position.
var (
	ErrTruncatedInput     = errors.New("truncated input")
	ErrInvalidCode        = errors.New("invalid code")
	ErrDistanceOutOfRange = errors.New("distance out of range")
	ErrOutputLimit        = errors.New("output limit exceeded")
	ErrTrailingData       = errors.New("trailing bytes after end of stream")

	// ErrBadPreamble is an invalid literal mode or dictionary selector. It
	// matches ErrInvalidCode since no code table exists for such a stream.
	ErrBadPreamble = fmt.Errorf("%w: bad preamble", ErrInvalidCode)
)

// Error records a decoding failure and the input byte offset at which it was detected.
type Error struct {
	Offset int64
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("implode: %v at byte offset %d", e.Err, e.Offset)
}

func (e *Error) Unwrap() error {
	return e.Err
}
