package implode

// maxReadBits is the widest single read a BitCursor supports.
const maxReadBits = 16

// BitCursor reads bits from a byte slice, least significant bit of each byte first.
// It never moves backwards, and reading past the end fails with ErrTruncatedInput.
type BitCursor struct {
	data []byte // The bytes to read from.
	pos  int    // Index of the byte holding the next unread bit.
	bit  uint8  // Number of bits of data[pos] already consumed, in [0,8).
}

// NewBitCursor returns a cursor positioned on the first bit of data.
func NewBitCursor(data []byte) *BitCursor {
	return &BitCursor{data: data}
}

// Remaining returns the number of unread bits.
func (c *BitCursor) Remaining() int {
	return (len(c.data)-c.pos)*8 - int(c.bit)
}

// Offset returns the index of the byte holding the next unread bit.
func (c *BitCursor) Offset() int64 {
	return int64(c.pos)
}

// BitOffset returns the number of bits consumed so far.
func (c *BitCursor) BitOffset() int64 {
	return int64(c.pos)*8 + int64(c.bit)
}

// Consumed returns the number of bytes touched so far, counting a partly read byte as consumed.
func (c *BitCursor) Consumed() int {
	if c.bit != 0 {
		return c.pos + 1
	}
	return c.pos
}

// PeekBits returns the next n bits (0 <= n <= 16) without consuming them.
// The first bit in stream order is the least significant bit of the result.
func (c *BitCursor) PeekBits(n uint8) (uint64, error) {
	if n > maxReadBits {
		panic("implode: bit count out of range")
	}
	if int(n) > c.Remaining() {
		return 0, &Error{Offset: c.Offset(), Err: ErrTruncatedInput}
	}

	var v uint64
	pos, bit := c.pos, c.bit
	for got := uint8(0); got < n; {
		take := 8 - bit
		if take > n-got {
			take = n - got
		}
		chunk := uint64(c.data[pos]>>bit) & (1<<take - 1)
		v |= chunk << got
		got += take
		bit += take
		if bit == 8 {
			bit = 0
			pos++
		}
	}
	return v, nil
}

// SkipBits consumes n bits (0 <= n <= 16).
func (c *BitCursor) SkipBits(n uint8) error {
	if n > maxReadBits {
		panic("implode: bit count out of range")
	}
	if int(n) > c.Remaining() {
		return &Error{Offset: c.Offset(), Err: ErrTruncatedInput}
	}
	total := int(c.bit) + int(n)
	c.pos += total / 8
	c.bit = uint8(total % 8)
	return nil
}

// ReadBits returns and consumes the next n bits (0 <= n <= 16).
func (c *BitCursor) ReadBits(n uint8) (uint64, error) {
	v, err := c.PeekBits(n)
	if err != nil {
		return 0, err
	}
	return v, c.SkipBits(n)
}
