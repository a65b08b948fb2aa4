package huffman

// LSBReader is a [BitReader] that returns the first transmitted bit in the
// least significant position of a multi-bit read, and can look ahead
// without consuming input.
type LSBReader interface {
	BitReader
	PeekBits(n uint8) (uint64, error)
	SkipBits(n uint8) error
	// Remaining is the number of unread bits.
	Remaining() int
}

type tableEntry struct {
	symbol uint16
	length uint8 // 0 marks a pattern that starts no code
}

// Table decodes a code from an [LSBReader] with a single look-ahead of
// MaxLength bits. Near the end of the input, where fewer bits remain than
// the longest code, it falls back to bit-serial decoding.
type Table struct {
	entries   []tableEntry
	maxLength uint8
	invert    bool
	cn        canonical
}

// NewTable builds the look-ahead table of c. If invert is set, codes are
// expected with every bit complemented.
func NewTable(c *Code, invert bool) *Table {
	maxLength := c.MaxLength()
	t := &Table{
		entries:   make([]tableEntry, 1<<maxLength),
		maxLength: uint8(maxLength),
		invert:    invert,
		cn:        newCanonical(c),
	}
	for symb, sc := range *c {
		if sc.length == 0 {
			continue
		}
		// the first transmitted bit is the code's most significant bit
		var pattern int
		for i := 0; i < int(sc.length); i++ {
			bit := int(sc.encoding>>(int(sc.length)-1-i)) & 1
			if invert {
				bit ^= 1
			}
			pattern |= bit << i
		}
		for hi := 0; hi < 1<<(maxLength-int(sc.length)); hi++ {
			t.entries[pattern|hi<<sc.length] = tableEntry{symbol: uint16(symb), length: sc.length}
		}
	}
	return t
}

// MaxLength returns the longest code length of the table.
func (t *Table) MaxLength() int {
	return int(t.maxLength)
}

// Decode reads one symbol from r.
func (t *Table) Decode(r LSBReader) (int, error) {
	if r.Remaining() < int(t.maxLength) {
		return t.cn.decode(r, t.invert)
	}
	v, err := r.PeekBits(t.maxLength)
	if err != nil {
		return -1, err
	}
	e := t.entries[v]
	if e.length == 0 {
		return -1, ErrInvalidCode
	}
	if err := r.SkipBits(e.length); err != nil {
		return -1, err
	}
	return int(e.symbol), nil
}
