package dbf

import (
	"fmt"

	"golang.org/x/text/encoding"
)

// Row is one decoded record.
type Row struct {
	// Record is the zero-based position of the record in the table.
	Record  int
	Deleted bool
	// Values holds the text of each field, in field order.
	Values []string

	fields []Field
	raw    []byte
}

// Fields returns the schema the row was decoded with.
func (r Row) Fields() []Field {
	return r.fields
}

// Get returns the value of the named field.
func (r Row) Get(name string) (string, bool) {
	for i := range r.fields {
		if r.fields[i].Name == name {
			return r.Values[i], true
		}
	}
	return "", false
}

// Raw returns the stored record, deletion marker included.
func (r Row) Raw() []byte {
	return r.raw
}

// RawField returns the stored bytes of field i.
func (r Row) RawField(i int) []byte {
	f := r.fields[i]
	return r.raw[f.Offset : f.Offset+f.Width]
}

// Rows is a single pass iterator over the records of a table.
//
//	for rows.Next() {
//		row := rows.Row()
//		...
//	}
//	if err := rows.Err(); err != nil {
//		...
//	}
type Rows struct {
	h    *Header
	data []byte
	opts Options
	dec  *encoding.Decoder

	next    int
	deleted int
	row     Row
	err     error
}

// DecodeTable parses the header of a decompressed table and returns an
// iterator over its records. Options nil means DefaultOptions.
func DecodeTable(stream []byte, opts *Options) (*Header, *Rows, error) {
	h, err := ParseHeader(stream)
	if err != nil {
		return nil, nil, err
	}
	return h, NewRows(h, stream, opts), nil
}

// NewRows iterates over the records stream holds after h.HeaderLength bytes.
func NewRows(h *Header, stream []byte, opts *Options) *Rows {
	if opts == nil {
		opts = DefaultOptions()
	}
	r := &Rows{h: h, data: stream, opts: *opts}
	if r.opts.Charset == nil {
		r.opts.Charset, _ = LookupCharset(DefaultCharset)
	}
	r.dec = r.opts.Charset.NewDecoder()
	return r
}

func (r *Rows) Header() *Header {
	return r.h
}

// Next advances to the next record to yield. It returns false at the end of
// the table or on error.
func (r *Rows) Next() bool {
	if r.err != nil {
		return false
	}

	for r.next < r.h.RecordCount {
		index := r.next
		start := r.h.HeaderLength + index*r.h.RecordLength
		end := start + r.h.RecordLength
		if end > len(r.data) {
			r.err = &Error{
				Offset: int64(start),
				Err: fmt.Errorf("%w: record %d needs %d bytes, %d left",
					ErrRecordLengthMismatch, index, r.h.RecordLength, max(len(r.data)-start, 0)),
			}
			return false
		}
		r.next++

		raw := r.data[start:end]
		deleted := raw[0] == DeletedMarker
		if deleted {
			r.deleted++
			if !r.opts.IncludeDeleted {
				continue
			}
		}

		values := make([]string, len(r.h.Fields))
		for i := range r.h.Fields {
			f := &r.h.Fields[i]
			values[i] = r.decodeValue(f, raw[f.Offset:f.Offset+f.Width])
		}
		r.row = Row{Record: index, Deleted: deleted, Values: values, fields: r.h.Fields, raw: raw}
		return true
	}
	return false
}

// Row returns the current row. Its Values are not reused by later calls;
// Raw aliases the decoded stream.
func (r *Rows) Row() Row {
	return r.row
}

func (r *Rows) Err() error {
	return r.err
}

// Deleted returns the number of deleted records seen so far.
func (r *Rows) Deleted() int {
	return r.deleted
}

// Read returns the number of records consumed so far.
func (r *Rows) Read() int {
	return r.next
}

// All drains the iterator.
func (r *Rows) All() ([]Row, error) {
	var rows []Row
	for r.Next() {
		rows = append(rows, r.Row())
	}
	return rows, r.Err()
}
