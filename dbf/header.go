package dbf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"golang.org/x/exp/slices"
)

const (
	mainHeaderSize   = 32
	descriptorSize   = 32
	headerTerminator = 0x0D

	// DeletedMarker flags a deleted record in its first byte.
	DeletedMarker = '*'
)

// FieldType is the one-letter type tag of a field descriptor.
type FieldType byte

const (
	Character FieldType = 'C'
	Numeric   FieldType = 'N'
	Float     FieldType = 'F' // decoded as Numeric
	Date      FieldType = 'D'
	Logical   FieldType = 'L'
	Memo      FieldType = 'M'
)

func (t FieldType) Valid() bool {
	switch t {
	case Character, Numeric, Float, Date, Logical, Memo:
		return true
	}
	return false
}

func (t FieldType) String() string {
	return string(rune(t))
}

// Field describes one column. Offset is the field's position in a record,
// the deletion marker being byte 0.
type Field struct {
	Name     string
	Type     FieldType
	Width    int
	Decimals int
	Offset   int
}

// Header is the schema and layout of a table.
type Header struct {
	Version      byte
	LastUpdate   time.Time // zero when the stored date is not a valid date
	RecordCount  int
	HeaderLength int
	RecordLength int
	Fields       []Field
}

// on-disk layouts, little endian
type mainHeader struct {
	Version      byte
	Year         byte
	Month        byte
	Day          byte
	NumRecords   uint32
	HeaderLength uint16
	RecordLength uint16
	Reserved     [20]byte
}

type fieldDescriptor struct {
	Name     [11]byte
	Type     byte
	Address  [4]byte
	Width    byte
	Decimals byte
	Reserved [14]byte
}

// HeaderLength reads the declared header length of a table without parsing the rest.
func HeaderLength(stream []byte) (int, error) {
	if len(stream) < mainHeaderSize {
		return 0, malformed(len(stream), "stream of %d bytes is shorter than the main header", len(stream))
	}
	return int(binary.LittleEndian.Uint16(stream[8:10])), nil
}

// ParseHeader parses the main header and the field descriptors at the start of stream.
func ParseHeader(stream []byte) (*Header, error) {
	if len(stream) < mainHeaderSize {
		return nil, malformed(len(stream), "stream of %d bytes is shorter than the main header", len(stream))
	}

	var mh mainHeader
	if err := binary.Read(bytes.NewReader(stream[:mainHeaderSize]), binary.LittleEndian, &mh); err != nil {
		return nil, malformed(0, "%v", err)
	}

	h := &Header{
		Version:      mh.Version,
		LastUpdate:   lastUpdate(mh.Year, mh.Month, mh.Day),
		RecordCount:  int(mh.NumRecords),
		HeaderLength: int(mh.HeaderLength),
		RecordLength: int(mh.RecordLength),
	}

	if h.HeaderLength > len(stream) {
		return nil, malformed(8, "header length %d past the end of a %d byte stream", h.HeaderLength, len(stream))
	}

	offset, recordLength := mainHeaderSize, 1
	for {
		if offset >= h.HeaderLength {
			return nil, malformed(offset, "missing field descriptor terminator")
		}
		if stream[offset] == headerTerminator {
			break
		}
		if offset+descriptorSize > h.HeaderLength {
			return nil, malformed(offset, "field descriptor crosses the header end")
		}

		var fd fieldDescriptor
		if err := binary.Read(bytes.NewReader(stream[offset:offset+descriptorSize]), binary.LittleEndian, &fd); err != nil {
			return nil, malformed(offset, "%v", err)
		}

		f := Field{
			Name:     fieldName(fd.Name[:]),
			Type:     FieldType(fd.Type),
			Width:    int(fd.Width),
			Decimals: int(fd.Decimals),
			Offset:   recordLength,
		}
		if !f.Type.Valid() {
			return nil, &Error{
				Offset: int64(offset + 11),
				Err:    fmt.Errorf("%w: %q in field %q", ErrUnsupportedFieldType, fd.Type, f.Name),
			}
		}
		if f.Width == 0 {
			return nil, malformed(offset+16, "field %q has zero width", f.Name)
		}

		h.Fields = append(h.Fields, f)
		recordLength += f.Width
		offset += descriptorSize
	}

	if len(h.Fields) == 0 {
		return nil, malformed(mainHeaderSize, "no field descriptors")
	}
	if recordLength != h.RecordLength {
		return nil, malformed(10, "record length %d, fields need %d", h.RecordLength, recordLength)
	}

	return h, nil
}

func fieldName(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(bytes.TrimSpace(b))
}

func lastUpdate(year, month, day byte) time.Time {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}
	}
	t := time.Date(1900+int(year), time.Month(month), int(day), 0, 0, 0, 0, time.UTC)
	if t.Day() != int(day) {
		return time.Time{}
	}
	return t
}

// FieldIndex returns the position of the named field, or -1.
func (h *Header) FieldIndex(name string) int {
	return slices.IndexFunc(h.Fields, func(f Field) bool { return f.Name == name })
}

// Names returns the field names in declaration order.
func (h *Header) Names() []string {
	names := make([]string, len(h.Fields))
	for i, f := range h.Fields {
		names[i] = f.Name
	}
	return names
}

// DataLength is the number of bytes the declared records occupy after the header.
func (h *Header) DataLength() int {
	return h.RecordCount * h.RecordLength
}
