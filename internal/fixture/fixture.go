// Package fixture builds dBase tables and DATASUS .DBC containers in memory for tests.
package fixture

import (
	"encoding/binary"
	"hash/crc32"
	"strings"
	"time"

	"github.com/consensys/dbc/implode"
	"github.com/consensys/dbc/implode/implodetest"
)

// Field is a column of a fixture table.
type Field struct {
	Name     string
	Type     byte
	Width    int
	Decimals int
}

// Table describes a dBase table. Record values are stored as given, padded
// to the field width: right aligned for N and F, left aligned otherwise.
type Table struct {
	Fields  []Field
	Records [][]string
	// Deleted marks records by index.
	Deleted map[int]bool
	Updated time.Time

	// Overrides of the computed header values, ignored when zero.
	RecordLength int
	RecordCount  int
	// Tail is appended after the records; Bytes adds the 0x1A end-of-file marker when nil.
	Tail []byte
}

// HeaderLength is the length of the header Bytes writes.
func (t *Table) HeaderLength() int {
	return 32 + 32*len(t.Fields) + 1
}

func (t *Table) recordLength() int {
	n := 1
	for _, f := range t.Fields {
		n += f.Width
	}
	return n
}

// Header returns the main header and field descriptors.
func (t *Table) Header() []byte {
	h := make([]byte, 32, t.HeaderLength())
	h[0] = 0x03
	updated := t.Updated
	if updated.IsZero() {
		updated = time.Date(2023, 5, 17, 0, 0, 0, 0, time.UTC)
	}
	h[1], h[2], h[3] = byte(updated.Year()-1900), byte(updated.Month()), byte(updated.Day())

	count, length := len(t.Records), t.recordLength()
	if t.RecordCount != 0 {
		count = t.RecordCount
	}
	if t.RecordLength != 0 {
		length = t.RecordLength
	}
	binary.LittleEndian.PutUint32(h[4:], uint32(count))
	binary.LittleEndian.PutUint16(h[8:], uint16(t.HeaderLength()))
	binary.LittleEndian.PutUint16(h[10:], uint16(length))

	for _, f := range t.Fields {
		var d [32]byte
		copy(d[:11], f.Name)
		d[11] = f.Type
		d[16], d[17] = byte(f.Width), byte(f.Decimals)
		h = append(h, d[:]...)
	}
	return append(h, 0x0D)
}

// RecordData returns the record area, tail included.
func (t *Table) RecordData() []byte {
	var b []byte
	for i, rec := range t.Records {
		if t.Deleted[i] {
			b = append(b, '*')
		} else {
			b = append(b, ' ')
		}
		for j, f := range t.Fields {
			v := ""
			if j < len(rec) {
				v = rec[j]
			}
			b = append(b, pad(v, f)...)
		}
	}
	if t.Tail == nil {
		return append(b, 0x1A)
	}
	return append(b, t.Tail...)
}

func pad(v string, f Field) string {
	if len(v) > f.Width {
		return v[:f.Width]
	}
	fill := strings.Repeat(" ", f.Width-len(v))
	if f.Type == 'N' || f.Type == 'F' {
		return fill + v
	}
	return v + fill
}

// Bytes returns the uncompressed table.
func (t *Table) Bytes() []byte {
	return append(t.Header(), t.RecordData()...)
}

// DBC returns the table as a DATASUS container: the header, a 4-byte
// checksum and the implode stream of the record area.
func (t *Table) DBC(p implode.Preamble) ([]byte, error) {
	records := t.RecordData()
	payload, err := implodetest.Compress(records, &p)
	if err != nil {
		return nil, err
	}

	b := t.Header()
	b = binary.LittleEndian.AppendUint32(b, crc32.ChecksumIEEE(records))
	return append(b, payload...), nil
}

// Sample is a small table with every field type and one deleted record.
func Sample() *Table {
	return &Table{
		Fields: []Field{
			{Name: "CODMUN", Type: 'C', Width: 6},
			{Name: "NOME", Type: 'C', Width: 20},
			{Name: "POP", Type: 'N', Width: 8},
			{Name: "AREA", Type: 'N', Width: 9, Decimals: 2},
			{Name: "DTREF", Type: 'D', Width: 8},
			{Name: "CAPITAL", Type: 'L', Width: 1},
		},
		Records: [][]string{
			{"355030", "S\xc3O PAULO", "11451245", "1521.11", "20220801", "T"},
			{"330455", "RIO DE JANEIRO", "6211423", "1200.33", "20220801", "T"},
			{"350950", "CAMPINAS", "1139047", "794.57", "20220801", "F"},
			{"999999", "REMOVIDO", "0", "0", "", "?"},
			{"310620", "BELO HORIZONTE", "2315560", "331.35", "20220801", "T"},
		},
		Deleted: map[int]bool{3: true},
	}
}
