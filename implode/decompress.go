package implode

import "fmt"

// Decompressor decodes one implode stream token by token.
// It owns its output buffer, which is also the back-reference window.
type Decompressor struct {
	cur      *BitCursor
	preamble Preamble
	tables   codeTables
	out      []byte
	opts     Options
	done     bool
}

// NewDecompressor reads the preamble of src and prepares decoding.
// Options nil means DefaultOptions.
func NewDecompressor(src []byte, opts *Options) (*Decompressor, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	p, err := ParsePreamble(src)
	if err != nil {
		return nil, err
	}

	cur := NewBitCursor(src)
	if err := cur.SkipBits(8 * PreambleSize); err != nil {
		return nil, err
	}

	d := &Decompressor{
		cur:      cur,
		preamble: p,
		tables:   tablesFor(p),
		opts:     *opts,
	}
	if opts.SizeHint > 0 {
		d.out = make([]byte, 0, opts.SizeHint)
	}
	return d, nil
}

// Preamble returns the stream's preamble.
func (d *Decompressor) Preamble() Preamble {
	return d.preamble
}

// Done reports whether the end marker has been decoded.
func (d *Decompressor) Done() bool {
	return d.done
}

// Bytes returns the output decoded so far. The slice is valid until the next Step.
func (d *Decompressor) Bytes() []byte {
	return d.out
}

// Consumed returns the number of input bytes read so far, preamble included.
func (d *Decompressor) Consumed() int {
	return d.cur.Consumed()
}

// Step decodes one token. After the end marker, Step keeps returning a TokenEnd token.
func (d *Decompressor) Step() (Token, error) {
	tok := Token{Bit: d.cur.BitOffset(), Output: len(d.out)}
	if d.done {
		tok.Kind = TokenEnd
		return tok, nil
	}

	ctl, err := d.cur.ReadBits(1)
	if err != nil {
		return tok, err
	}

	if ctl == 0 {
		b, err := d.tables.literal(d.cur)
		if err != nil {
			return tok, err
		}
		if err := d.reserve(1); err != nil {
			return tok, err
		}
		d.out = append(d.out, b)
		tok.Kind, tok.Literal = TokenLiteral, b
	} else {
		var br backref
		end, err := br.readFrom(d.cur, &d.tables)
		if err != nil {
			return tok, err
		}
		if end {
			d.done = true
			tok.Kind = TokenEnd
		} else {
			if br.distance > len(d.out) {
				return tok, &Error{
					Offset: d.cur.Offset(),
					Err:    fmt.Errorf("%w: distance %d with %d bytes of output", ErrDistanceOutOfRange, br.distance, len(d.out)),
				}
			}
			if err := d.reserve(br.length); err != nil {
				return tok, err
			}
			d.out = br.appendTo(d.out)
			tok.Kind, tok.Length, tok.Distance = TokenCopy, br.length, br.distance
		}
	}

	if d.opts.OnToken != nil {
		d.opts.OnToken(tok)
	}
	return tok, nil
}

func (d *Decompressor) reserve(n int) error {
	if d.opts.MaxOutput > 0 && len(d.out)+n > d.opts.MaxOutput {
		return &Error{Offset: d.cur.Offset(), Err: fmt.Errorf("%w: limit %d", ErrOutputLimit, d.opts.MaxOutput)}
	}
	return nil
}

// Run decodes until the end marker and returns the whole output.
func (d *Decompressor) Run() ([]byte, error) {
	for !d.done {
		if _, err := d.Step(); err != nil {
			return nil, err
		}
	}
	return d.out, nil
}

// Decompress decompresses a complete implode stream.
// Bytes after the end marker, other than the padding bits of its last byte, are an error.
// Options nil means DefaultOptions.
func Decompress(src []byte, opts *Options) ([]byte, error) {
	out, consumed, err := DecompressBlock(src, opts)
	if err != nil {
		return nil, err
	}

	if consumed != len(src) {
		return nil, &Error{
			Offset: int64(consumed),
			Err:    fmt.Errorf("%w: consumed=%d input=%d", ErrTrailingData, consumed, len(src)),
		}
	}

	return out, nil
}

// DecompressBlock decompresses one implode stream from the beginning of src.
// It returns the decompressed bytes and the number of consumed bytes.
// Unlike Decompress, this function ignores trailing bytes after the end marker.
func DecompressBlock(src []byte, opts *Options) ([]byte, int, error) {
	d, err := NewDecompressor(src, opts)
	if err != nil {
		return nil, 0, err
	}

	out, err := d.Run()
	if err != nil {
		return nil, d.Consumed(), err
	}

	return out, d.Consumed(), nil
}
