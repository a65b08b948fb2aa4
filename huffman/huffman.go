// Package huffman implements static canonical prefix codes: construction
// from code lengths, a bit-serial encoder and decoder that work with any
// bit reader or writer (including [bitio.Reader] and [bitio.Writer]), and a
// look-ahead table for readers that deliver bits least significant first.
//
// Codes may be transmitted inverted (every code bit complemented), as the
// PKWARE DCL implode format does.
package huffman

import (
	"errors"
	"sort"
)

// MaxCodeLength is the longest code length supported.
const MaxCodeLength = 16

// ErrInvalidCode is returned when the input matches no code of the table.
var ErrInvalidCode = errors.New("huffman: invalid code")

type symbolCode struct {
	encoding uint16
	length   uint8
}

// Code represents a prefix code. Symbols with a zero length are not part of the code.
type Code []symbolCode

// BitWriter is the subset of [bitio.Writer] used by the [Encoder].
type BitWriter interface {
	WriteBits(r uint64, n uint8) error
}

// BitReader is the subset of [bitio.Reader] used by the [Decoder].
type BitReader interface {
	ReadBits(n uint8) (uint64, error)
}

// NewCodeFromCodeLengths builds the canonical code for the given lengths:
// shorter codes first, ties broken by symbol value.
// It panics if a length exceeds MaxCodeLength or the lengths oversubscribe the code space.
func NewCodeFromCodeLengths(codeLengths []int) *Code {
	sorted := make([]int, 0, len(codeLengths))
	for symb, length := range codeLengths {
		if length < 0 || length > MaxCodeLength {
			panic("code length out of range")
		}
		if length != 0 {
			sorted = append(sorted, symb)
		}
	}

	// sort the symbols first by code length, then by the symbol itself
	sort.SliceStable(sorted, func(i, j int) bool {
		return codeLengths[sorted[i]] < codeLengths[sorted[j]]
	})

	code := make(Code, len(codeLengths))
	next, lastLength := 0, 0
	for i, symb := range sorted {
		length := codeLengths[symb]
		if i > 0 {
			next++
		}
		next <<= length - lastLength
		lastLength = length
		if next >= 1<<length {
			panic("bad code - lengths oversubscribed")
		}
		code[symb] = symbolCode{encoding: uint16(next), length: uint8(length)}
	}

	return &code
}

// NbSymbols returns the size of the alphabet, including symbols with no code.
func (c *Code) NbSymbols() int {
	return len(*c)
}

// Length returns the code length of symb, 0 if symb has no code.
func (c *Code) Length(symb int) int {
	return int((*c)[symb].length)
}

// Encoding returns the canonical code of symb, most significant bit transmitted first.
func (c *Code) Encoding(symb int) (encoding uint16, length uint8) {
	sc := (*c)[symb]
	return sc.encoding, sc.length
}

// MaxLength returns the longest code length in use.
func (c *Code) MaxLength() int {
	longest := 0
	for _, sc := range *c {
		if int(sc.length) > longest {
			longest = int(sc.length)
		}
	}
	return longest
}

// Encoder writes symbols one code bit at a time, so the code reads the same
// whatever order the underlying writer packs bits in.
type Encoder struct {
	w BitWriter
	c *Code
	// Invert complements every transmitted code bit.
	Invert bool
}

// NewEncoder creates an [Encoder] from a prefix [Code] and a [BitWriter].
// The [Encoder] will not own the writer. Interleaved writes are permitted.
// The [Code] is not duplicated, so any modifications will be reflected in future writes.
func NewEncoder(c *Code, w BitWriter) *Encoder {
	return &Encoder{c: c, w: w}
}

// WriteSymbol writes the code of a single symbol.
func (e *Encoder) WriteSymbol(symb int) error {
	code := (*e.c)[symb]
	if code.length == 0 {
		return errors.New("huffman: symbol has no code")
	}
	for i := int(code.length) - 1; i >= 0; i-- {
		bit := uint64(code.encoding>>uint(i)) & 1
		if e.Invert {
			bit ^= 1
		}
		if err := e.w.WriteBits(bit, 1); err != nil {
			return err
		}
	}
	return nil
}

// Write implements the spirit of [io.Writer], while allowing for
// a symbol set larger than 256.
func (e *Encoder) Write(p []int) (n int, err error) {
	for n = range p {
		if err = e.WriteSymbol(p[n]); err != nil {
			return
		}
	}
	return len(p), nil
}

// canonical holds the count/symbol form of a code, enough to decode it
// one bit at a time without building a tree.
type canonical struct {
	count     []int // count[l] is the number of codes of length l
	symbol    []int // symbols in canonical order
	maxLength int
}

func newCanonical(c *Code) canonical {
	maxLength := c.MaxLength()
	cn := canonical{count: make([]int, maxLength+1), maxLength: maxLength}
	for l := 1; l <= maxLength; l++ {
		for symb, sc := range *c {
			if int(sc.length) == l {
				cn.count[l]++
				cn.symbol = append(cn.symbol, symb)
			}
		}
	}
	return cn
}

func (cn *canonical) decode(r BitReader, invert bool) (int, error) {
	code, first, index := 0, 0, 0
	for l := 1; l <= cn.maxLength; l++ {
		b, err := r.ReadBits(1)
		if err != nil {
			return -1, err
		}
		if invert {
			b ^= 1
		}
		code |= int(b)
		count := cn.count[l]
		if code-first < count {
			return cn.symbol[index+code-first], nil
		}
		index += count
		first += count
		first <<= 1
		code <<= 1
	}
	return -1, ErrInvalidCode
}

// Decoder reads symbols one bit at a time.
type Decoder struct {
	cn canonical
	r  BitReader
	// Invert complements every received code bit.
	Invert bool
}

// NewDecoder creates a [Decoder] from a prefix [Code] and a [BitReader].
// The [Decoder] will not own the reader. Interleaved reads are permitted.
// The [Code] is processed into canonical form, so modifications will NOT be reflected in future reads.
func NewDecoder(c *Code, r BitReader) *Decoder {
	return &Decoder{cn: newCanonical(c), r: r}
}

// ReadSymbol decodes one symbol.
func (d *Decoder) ReadSymbol() (int, error) {
	return d.cn.decode(d.r, d.Invert)
}

// Read implements the spirit of [io.Reader], while allowing for
// a symbol set larger than 256.
func (d *Decoder) Read(p []int) (n int, err error) {
	for n = range p {
		if p[n], err = d.ReadSymbol(); err != nil {
			return
		}
	}
	return len(p), nil
}
