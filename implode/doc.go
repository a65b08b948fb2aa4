/*
Package implode implements decompression of the PKWARE Data Compression
Library "implode" format, the compression used for the record area of
DATASUS .DBC files.

Format: a 2-byte preamble (literal mode, dictionary selector) followed by a
bit stream packed least significant bit first. Each token starts with a
control bit: 0 = literal, 1 = back-reference.

  - Literal: 8 raw bits (LiteralsUncoded) or a static Huffman code (LiteralsCoded).
  - Back-reference: a length code plus 0..8 extra bits gives a length in
    2..518; 519 is the end-of-stream marker. A distance code gives the high
    6 bits of distance-1; the low bits follow raw, 2 of them for length 2,
    otherwise as many as the dictionary selector (4, 5 or 6).

All Huffman codes are static and stored bit-inverted. The back-reference
range is 1K, 2K or 4K bytes for selectors 4, 5 and 6; the output itself is
unbounded and kept whole.

Use Decompress(src, opts) with nil for default options.
Use DecompressBlock(src, opts) to also get the number of consumed bytes and ignore trailing data.
Use NewDecompressor and Step to drive the decoder token by token.

# Examples

Decompress a whole stream:

	out, err := implode.Decompress(src, nil)
	if err != nil {
		return err
	}

Decompress a stream followed by unrelated bytes:

	out, consumed, err := implode.DecompressBlock(src, nil)
	if err != nil {
		return err
	}
	rest := src[consumed:]

Inspect the error kind and position:

	var e *implode.Error
	if errors.As(err, &e) && errors.Is(err, implode.ErrTruncatedInput) {
		log.Printf("stream ends early at byte %d", e.Offset)
	}

Trace every token while decoding:

	opts := &implode.Options{OnToken: func(t implode.Token) { fmt.Println(t) }}
	out, err := implode.Decompress(src, opts)
*/
package implode
