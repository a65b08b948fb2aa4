package dbc_test

import (
	"errors"
	"hash/crc32"
	"testing"

	"github.com/consensys/dbc"
	"github.com/consensys/dbc/dbf"
	"github.com/consensys/dbc/implode"
	"github.com/consensys/dbc/implode/implodetest"
	"github.com/consensys/dbc/internal/fixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var preambles = []implode.Preamble{
	{Literals: implode.LiteralsUncoded, Dict: implode.Dict1K},
	{Literals: implode.LiteralsCoded, Dict: implode.Dict2K},
	{Literals: implode.LiteralsCoded, Dict: implode.Dict4K},
}

func TestOpenDATASUS(t *testing.T) {
	table := fixture.Sample()
	for _, p := range preambles {
		file, err := table.DBC(p)
		require.NoError(t, err)

		f, err := dbc.Open(file, nil)
		require.NoError(t, err)
		assert.Equal(t, dbc.FormatDATASUS, f.Format)
		assert.Equal(t, p, f.Preamble)
		assert.Equal(t, table.Bytes(), f.Data)
		assert.Zero(t, f.Trailing)
		assert.False(t, f.HintMismatch)

		require.NotNil(t, f.Container)
		assert.Equal(t, table.Header(), f.Container.Header)
		assert.Equal(t, crc32.ChecksumIEEE(table.RecordData()), f.Container.Checksum)
		assert.Equal(t, table.HeaderLength()+dbc.ChecksumSize, f.Container.PayloadOffset)
	}
}

func TestDecodeTable(t *testing.T) {
	file, err := fixture.Sample().DBC(preambles[1])
	require.NoError(t, err)

	h, rows, err := dbc.DecodeTable(file, nil)
	require.NoError(t, err)
	assert.Len(t, h.Fields, 6)

	all, err := rows.All()
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "SÃO PAULO", all[0].Values[1])

	_, rows, err = dbc.DecodeTable(file, &dbc.Options{IncludeDeleted: true})
	require.NoError(t, err)
	all, err = rows.All()
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestRawStreamTable(t *testing.T) {
	table := &fixture.Table{
		Fields:  []fixture.Field{{Name: "FLD", Type: 'C', Width: 3}},
		Records: [][]string{{"AB"}},
	}
	raw, err := implodetest.Compress(table.Bytes(), &implode.Preamble{Literals: implode.LiteralsUncoded, Dict: implode.Dict1K})
	require.NoError(t, err)
	require.Equal(t, dbc.FormatRaw, dbc.DetectFormat(raw))

	h, rows, err := dbc.DecodeTable(raw, nil)
	require.NoError(t, err)
	require.Len(t, h.Fields, 1)
	assert.Equal(t, "FLD", h.Fields[0].Name)
	assert.Equal(t, dbf.Character, h.Fields[0].Type)
	assert.Equal(t, 4, h.RecordLength)

	all, err := rows.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, []string{"AB"}, all[0].Values)
}

func TestForcedFormat(t *testing.T) {
	file, err := fixture.Sample().DBC(preambles[0])
	require.NoError(t, err)

	_, err = dbc.Open(file, &dbc.Options{Format: dbc.FormatRaw})
	assert.ErrorIs(t, err, implode.ErrBadPreamble)

	f, err := dbc.Open(file, &dbc.Options{Format: dbc.FormatDATASUS})
	require.NoError(t, err)
	assert.Equal(t, dbc.FormatDATASUS, f.Format)
}

func TestDictHint(t *testing.T) {
	file, err := fixture.Sample().DBC(preambles[0])
	require.NoError(t, err)

	for hint, mismatch := range map[implode.DictSize]bool{
		0:              false,
		implode.Dict1K: false,
		implode.Dict4K: true,
	} {
		f, err := dbc.Open(file, &dbc.Options{DictHint: hint})
		require.NoError(t, err)
		assert.Equal(t, mismatch, f.HintMismatch, "hint %v", hint)
		assert.Equal(t, implode.Dict1K, f.Preamble.Dict)
	}
}

func TestErrorOffsetIsFileRelative(t *testing.T) {
	file, err := fixture.Sample().DBC(preambles[2])
	require.NoError(t, err)
	truncated := file[:len(file)-3]

	_, err = dbc.Decompress(truncated, nil)
	assert.ErrorIs(t, err, implode.ErrTruncatedInput)

	var e *implode.Error
	require.True(t, errors.As(err, &e))
	assert.GreaterOrEqual(t, e.Offset, int64(fixture.Sample().HeaderLength()+dbc.ChecksumSize))
	assert.LessOrEqual(t, e.Offset, int64(len(truncated)))
}

func TestTrailingPayloadBytes(t *testing.T) {
	file, err := fixture.Sample().DBC(preambles[1])
	require.NoError(t, err)
	file = append(file, 0, 0, 0)

	f, err := dbc.Open(file, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, f.Trailing)
	assert.Equal(t, fixture.Sample().Bytes(), f.Data)
}

func TestOutputLimit(t *testing.T) {
	file, err := fixture.Sample().DBC(preambles[1])
	require.NoError(t, err)

	_, err = dbc.Decompress(file, &dbc.Options{MaxOutput: 10})
	assert.ErrorIs(t, err, implode.ErrOutputLimit)
}

func TestParseContainer(t *testing.T) {
	header := fixture.Sample().Header()

	_, err := dbc.ParseContainer(header[:20])
	assert.ErrorIs(t, err, dbf.ErrMalformedHeader)

	_, err = dbc.ParseContainer(header)
	assert.ErrorIs(t, err, dbf.ErrMalformedHeader, "no room for the checksum")

	bad := append([]byte{}, header...)
	bad[8], bad[9] = 5, 0
	_, err = dbc.ParseContainer(append(bad, 0, 0, 0, 0))
	assert.ErrorIs(t, err, dbf.ErrMalformedHeader)

	c, err := dbc.ParseContainer(append(append([]byte{}, header...), 1, 0, 0, 0, 0, 4))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), c.Checksum)
	assert.Equal(t, []byte{0, 4}, c.Payload)
}

func TestFormat(t *testing.T) {
	for s, want := range map[string]dbc.Format{"": dbc.FormatAuto, "RAW": dbc.FormatRaw, "datasus": dbc.FormatDATASUS} {
		f, err := dbc.ParseFormat(s)
		require.NoError(t, err)
		assert.Equal(t, want, f)
	}
	_, err := dbc.ParseFormat("zip")
	assert.Error(t, err)
	assert.Equal(t, "datasus", dbc.FormatDATASUS.String())

	assert.False(t, dbc.IsRawStream([]byte{0x03, 0x7B}))
	assert.True(t, dbc.IsRawStream([]byte{1, 6}))
}

func TestTokenTracePassthrough(t *testing.T) {
	file, err := fixture.Sample().DBC(preambles[0])
	require.NoError(t, err)

	var literals, copies, ends int
	opts := &dbc.Options{OnToken: func(tok implode.Token) {
		switch tok.Kind {
		case implode.TokenLiteral:
			literals++
		case implode.TokenCopy:
			copies++
		case implode.TokenEnd:
			ends++
		}
	}}
	f, err := dbc.Open(file, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, ends)
	assert.Positive(t, copies)
	assert.Equal(t, len(fixture.Sample().RecordData()), len(f.Data)-f.Container.PayloadOffset+dbc.ChecksumSize)
	assert.Less(t, literals, len(fixture.Sample().RecordData()))
}
