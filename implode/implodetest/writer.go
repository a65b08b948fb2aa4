// Package implodetest produces implode streams for tests: a token-level
// Writer for hand-crafted streams and a greedy Compress for round trips.
// It is not a production compressor.
package implodetest

import (
	"bytes"
	"errors"
	"fmt"
	"math/bits"

	"github.com/consensys/dbc/huffman"
	"github.com/consensys/dbc/implode"
	"github.com/icza/bitio"
)

// reversingSink stores every byte with its bit order reversed, which turns
// the most significant bit first packing of bitio.Writer into the least
// significant bit first packing of implode streams.
type reversingSink struct {
	bb bytes.Buffer
}

func (s *reversingSink) WriteByte(b byte) error {
	return s.bb.WriteByte(bits.Reverse8(b))
}

func (s *reversingSink) Write(p []byte) (int, error) {
	for i, b := range p {
		if err := s.WriteByte(b); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// Writer emits implode tokens.
type Writer struct {
	sink      reversingSink
	bw        *bitio.Writer
	preamble  implode.Preamble
	literals  *huffman.Encoder
	lengths   *huffman.Encoder
	distances *huffman.Encoder
	closed    bool
}

// NewWriter writes the preamble of a new stream.
func NewWriter(p implode.Preamble) (*Writer, error) {
	w := &Writer{preamble: p}
	w.bw = bitio.NewWriter(&w.sink)

	var pre bytes.Buffer
	if _, err := p.WriteTo(&pre); err != nil {
		return nil, err
	}
	for _, b := range pre.Bytes() {
		if err := w.WriteBits(uint64(b), 8); err != nil {
			return nil, err
		}
	}

	w.literals = huffman.NewEncoder(implode.LiteralCode, w)
	w.lengths = huffman.NewEncoder(implode.LengthCode, w)
	w.distances = huffman.NewEncoder(implode.DistanceCode, w)
	for _, e := range []*huffman.Encoder{w.literals, w.lengths, w.distances} {
		e.Invert = true
	}
	return w, nil
}

// WriteBits writes the low n bits of v, least significant first.
func (w *Writer) WriteBits(v uint64, n uint8) error {
	if n == 0 {
		return nil
	}
	v &= 1<<n - 1
	return w.bw.WriteBits(bits.Reverse64(v)>>(64-n), n)
}

// Literal writes a literal token.
func (w *Writer) Literal(b byte) error {
	if err := w.WriteBits(0, 1); err != nil {
		return err
	}
	if w.preamble.Literals == implode.LiteralsCoded {
		return w.literals.WriteSymbol(int(b))
	}
	return w.WriteBits(uint64(b), 8)
}

// Copy writes a back-reference token. The distance is not checked against
// the data written so far, so a Writer can produce corrupt streams.
func (w *Writer) Copy(length, distance int) error {
	if length < implode.MinLength || length > implode.MaxLength {
		return fmt.Errorf("implodetest: length %d out of range", length)
	}
	shift := implode.DistanceBits(length, w.preamble.Dict)
	d := distance - 1
	if d < 0 || d>>shift >= 64 {
		return fmt.Errorf("implodetest: distance %d not encodable with length %d", distance, length)
	}
	if err := w.writeLength(length); err != nil {
		return err
	}
	if err := w.distances.WriteSymbol(d >> shift); err != nil {
		return err
	}
	return w.WriteBits(uint64(d), shift)
}

func (w *Writer) writeLength(length int) error {
	if err := w.WriteBits(1, 1); err != nil {
		return err
	}
	symb, extra, nbExtra := implode.LengthSymbol(length)
	if err := w.lengths.WriteSymbol(symb); err != nil {
		return err
	}
	return w.WriteBits(extra, nbExtra)
}

// Bytes flushes pending bits, without an end marker, and returns the stream.
// Use it to build truncated streams.
func (w *Writer) Bytes() ([]byte, error) {
	if err := w.bw.Close(); err != nil {
		return nil, err
	}
	w.closed = true
	return w.sink.bb.Bytes(), nil
}

// Close writes the end marker and returns the complete stream.
func (w *Writer) Close() ([]byte, error) {
	if w.closed {
		return nil, errors.New("implodetest: writer already closed")
	}
	if err := w.writeLength(implode.EndOfStream); err != nil {
		return nil, err
	}
	return w.Bytes()
}
