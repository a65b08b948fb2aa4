package implode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Preamble is the 2-byte header of an implode stream.
type Preamble struct {
	Literals LiteralMode
	Dict     DictSize
}

func (p Preamble) validate() error {
	if _, err := indInv(byte(p.Literals)); err != nil {
		return fmt.Errorf("%w: literal mode %d", ErrBadPreamble, p.Literals)
	}
	if !p.Dict.Valid() {
		return fmt.Errorf("%w: dictionary selector %d", ErrBadPreamble, p.Dict)
	}
	return nil
}

func (p *Preamble) WriteTo(w io.Writer) (int64, error) {
	if err := p.validate(); err != nil {
		return 0, err
	}
	n, err := w.Write([]byte{ind(p.Literals == LiteralsCoded), byte(p.Dict)})
	return int64(n), err
}

func (p *Preamble) ReadFrom(r io.Reader) (int64, error) {
	var b [PreambleSize]byte
	n, err := io.ReadFull(r, b[:])
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return int64(n), &Error{Offset: int64(n), Err: ErrTruncatedInput}
		}
		return int64(n), err
	}

	p.Literals, p.Dict = LiteralMode(b[0]), DictSize(b[1])
	if err := p.validate(); err != nil {
		offset := int64(0)
		if p.Literals <= LiteralsCoded {
			offset = 1
		}
		return int64(n), &Error{Offset: offset, Err: err}
	}
	return int64(n), nil
}

// ParsePreamble reads the preamble at the start of src.
func ParsePreamble(src []byte) (Preamble, error) {
	var p Preamble
	_, err := p.ReadFrom(bytes.NewReader(src))
	return p, err
}

// ind indicator function
func ind(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// indInv is inverse to ind
func indInv(b byte) (bool, error) {
	if b == 0 {
		return false, nil
	}
	if b == 1 {
		return true, nil
	}
	return false, errors.New("expected 0 or 1")
}
