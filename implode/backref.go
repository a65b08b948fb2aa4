package implode

type backref struct {
	length   int
	distance int
}

// readFrom decodes the length and distance of a back-reference. It reports
// end = true, with no distance read, when the length is the end marker.
func (b *backref) readFrom(c *BitCursor, t *codeTables) (end bool, err error) {
	if b.length, err = t.length(c); err != nil {
		return false, err
	}
	if b.length == EndOfStream {
		return true, nil
	}
	b.distance, err = t.distance(c, b.length)
	return false, err
}

// appendTo copies length bytes from distance bytes back.
// Source and destination overlap when distance < length, so the copy must go
// byte by byte: each written byte is visible to the next read.
func (b *backref) appendTo(out []byte) []byte {
	from := len(out) - b.distance
	for i := 0; i < b.length; i++ {
		out = append(out, out[from+i])
	}
	return out
}
