package dbf

import (
	"errors"
	"fmt"
)

// Package errors. Match them with errors.Is; use errors.As with *Error to get the position.
var (
	ErrMalformedHeader      = errors.New("malformed header")
	ErrRecordLengthMismatch = errors.New("record length mismatch")
	ErrUnsupportedFieldType = errors.New("unsupported field type")
)

// Error records a decoding failure and the stream byte offset at which it was detected.
type Error struct {
	Offset int64
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("dbf: %v at byte offset %d", e.Err, e.Offset)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func malformed(offset int, format string, args ...interface{}) error {
	return &Error{Offset: int64(offset), Err: fmt.Errorf("%w: "+format, append([]interface{}{ErrMalformedHeader}, args...)...)}
}
