package implode

import (
	"errors"

	"github.com/consensys/dbc/huffman"
)

// Code lengths of the static tables in run-length form: each byte holds
// (repeat count - 1) in the high nibble and a code length in the low nibble.
var (
	literalLengths = []byte{
		11, 124, 8, 7, 28, 7, 188, 13, 76, 4, 10, 8, 12, 10, 12, 10, 8, 23, 8,
		9, 7, 6, 7, 8, 7, 6, 55, 8, 23, 24, 12, 11, 7, 9, 11, 12, 6, 7, 22, 5,
		7, 24, 6, 11, 9, 6, 7, 22, 7, 11, 38, 7, 9, 8, 25, 11, 8, 11, 9, 12,
		8, 12, 5, 38, 5, 38, 5, 11, 7, 5, 6, 21, 6, 10, 53, 8, 7, 24, 10, 27,
		44, 253, 253, 253, 252, 252, 252, 13, 12, 45, 12, 45, 12, 61, 12, 45,
		44, 173,
	}
	lengthLengths   = []byte{2, 35, 36, 53, 38, 23}
	distanceLengths = []byte{2, 20, 53, 230, 247, 151, 248}
)

// Base value and number of extra bits of each length symbol.
var (
	lengthBase  = [16]uint16{3, 2, 4, 5, 6, 7, 8, 9, 10, 12, 16, 24, 40, 72, 136, 264}
	lengthExtra = [16]uint8{0, 0, 0, 0, 0, 0, 0, 0, 1, 2, 3, 4, 5, 6, 7, 8}
)

// The static codes, built once.
var (
	LiteralCode  = huffman.NewCodeFromCodeLengths(expandLengths(literalLengths))
	LengthCode   = huffman.NewCodeFromCodeLengths(expandLengths(lengthLengths))
	DistanceCode = huffman.NewCodeFromCodeLengths(expandLengths(distanceLengths))

	literalTable  = huffman.NewTable(LiteralCode, true)
	lengthTable   = huffman.NewTable(LengthCode, true)
	distanceTable = huffman.NewTable(DistanceCode, true)
)

func expandLengths(rep []byte) []int {
	var lengths []int
	for _, b := range rep {
		for n := int(b>>4) + 1; n > 0; n-- {
			lengths = append(lengths, int(b&0x0F))
		}
	}
	return lengths
}

// LengthSymbol returns the length symbol of a back-reference length in
// [MinLength, EndOfStream], with the value and width of its extra bits.
func LengthSymbol(length int) (symb int, extra uint64, nbExtra uint8) {
	for s := range lengthBase {
		base := int(lengthBase[s])
		if length >= base && length < base+1<<lengthExtra[s] {
			return s, uint64(length - base), lengthExtra[s]
		}
	}
	panic("implode: length out of range")
}

// codeTables is the set of tables a stream decodes with, fixed by its preamble.
type codeTables struct {
	literals *huffman.Table // nil when literals are uncoded
	dict     DictSize
}

func tablesFor(p Preamble) codeTables {
	t := codeTables{dict: p.Dict}
	if p.Literals == LiteralsCoded {
		t.literals = literalTable
	}
	return t
}

func decodeSymbol(t *huffman.Table, c *BitCursor) (int, error) {
	at := c.Offset()
	symb, err := t.Decode(c)
	if errors.Is(err, huffman.ErrInvalidCode) {
		return -1, &Error{Offset: at, Err: ErrInvalidCode}
	}
	return symb, err
}

func (t *codeTables) literal(c *BitCursor) (byte, error) {
	if t.literals == nil {
		b, err := c.ReadBits(8)
		return byte(b), err
	}
	symb, err := decodeSymbol(t.literals, c)
	return byte(symb), err
}

// length decodes a back-reference length, EndOfStream included.
func (t *codeTables) length(c *BitCursor) (int, error) {
	symb, err := decodeSymbol(lengthTable, c)
	if err != nil {
		return 0, err
	}
	extra, err := c.ReadBits(lengthExtra[symb])
	if err != nil {
		return 0, err
	}
	return int(lengthBase[symb]) + int(extra), nil
}

func (t *codeTables) distance(c *BitCursor, length int) (int, error) {
	hi, err := decodeSymbol(distanceTable, c)
	if err != nil {
		return 0, err
	}
	shift := DistanceBits(length, t.dict)
	lo, err := c.ReadBits(shift)
	if err != nil {
		return 0, err
	}
	return hi<<shift + int(lo) + 1, nil
}
