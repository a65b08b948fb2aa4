package implode

import "fmt"

// Implode format constants.
const (
	PreambleSize = 2   // Literal mode byte + dictionary selector byte.
	MinLength    = 2   // Shortest back-reference.
	MaxLength    = 518 // Longest back-reference.
	EndOfStream  = 519 // Length value reserved for the end marker.
	MaxCodeBits  = 13  // Longest Huffman code of the static tables.
)

// LiteralMode selects how literal bytes are transmitted.
type LiteralMode uint8

// Literal modes, as stored in the first preamble byte.
const (
	LiteralsUncoded LiteralMode = 0 // Literals are raw 8-bit values.
	LiteralsCoded   LiteralMode = 1 // Literals use the static literal code.
)

func (m LiteralMode) String() string {
	switch m {
	case LiteralsUncoded:
		return "uncoded"
	case LiteralsCoded:
		return "coded"
	default:
		return fmt.Sprintf("LiteralMode(%d)", uint8(m))
	}
}

// DictSize is the dictionary selector: the number of raw low distance bits
// of back-references longer than MinLength.
type DictSize uint8

// Dictionary selectors, as stored in the second preamble byte.
const (
	Dict1K DictSize = 4
	Dict2K DictSize = 5
	Dict4K DictSize = 6
)

// Valid reports whether d is one of Dict1K, Dict2K, Dict4K.
func (d DictSize) Valid() bool {
	return d >= Dict1K && d <= Dict4K
}

// WindowSize is the farthest back-reference distance d allows.
func (d DictSize) WindowSize() int {
	return 64 << d
}

func (d DictSize) String() string {
	if !d.Valid() {
		return fmt.Sprintf("DictSize(%d)", uint8(d))
	}
	return fmt.Sprintf("%dK", d.WindowSize()/1024)
}

// DistanceBits returns the number of raw low distance bits that follow the
// distance code of a back-reference of the given length.
func DistanceBits(length int, dict DictSize) uint8 {
	if length == MinLength {
		return 2
	}
	return uint8(dict)
}
