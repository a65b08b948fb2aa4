// Package dbc reads DATASUS .DBC files: dBase tables whose records are
// compressed with the PKWARE DCL implode format.
//
// A file is either a raw implode stream holding the whole table, or the
// DATASUS layout: the uncompressed table header, a 4-byte checksum, then the
// implode stream of the records. Decompress detects which one it is given.
//
//	h, rows, err := dbc.DecodeTable(file, nil)
//	if err != nil {
//		return err
//	}
//	for rows.Next() {
//		fmt.Println(strings.Join(rows.Row().Values, ";"))
//	}
//	return rows.Err()
package dbc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/consensys/dbc/dbf"
	"github.com/consensys/dbc/implode"
	"golang.org/x/text/encoding"
)

// Format is the layout of a compressed file.
type Format uint8

const (
	FormatAuto Format = iota
	FormatRaw
	FormatDATASUS
)

func (f Format) String() string {
	switch f {
	case FormatAuto:
		return "auto"
	case FormatRaw:
		return "raw"
	case FormatDATASUS:
		return "datasus"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "raw", "implode":
		return FormatRaw, nil
	case "datasus", "dbc":
		return FormatDATASUS, nil
	}
	return FormatAuto, fmt.Errorf("dbc: unknown format %q", s)
}

// Options configure decompression and table decoding. The zero value is usable.
type Options struct {
	Format Format

	// DictHint is the dictionary size the caller expects. The preamble is
	// authoritative; a different hint only sets File.HintMismatch.
	DictHint implode.DictSize

	// MaxOutput bounds the size of the decompressed implode stream; 0 means unbounded.
	MaxOutput int

	// OnToken traces the decompressor.
	OnToken func(implode.Token)

	// Charset decodes text fields. Nil means Latin-1.
	Charset encoding.Encoding

	// IncludeDeleted yields deleted records too.
	IncludeDeleted bool
}

func DefaultOptions() *Options {
	return &Options{}
}

// File is a decompressed .DBC file.
type File struct {
	Format    Format
	Preamble  implode.Preamble
	Container *Container // FormatDATASUS only

	// Data is the uncompressed table.
	Data []byte

	// Consumed is the number of implode stream bytes read; Trailing counts
	// the bytes left after its end marker.
	Consumed int
	Trailing int

	HintMismatch bool
}

// IsRawStream reports whether file starts with a valid implode preamble.
func IsRawStream(file []byte) bool {
	return len(file) >= implode.PreambleSize &&
		file[0] <= byte(implode.LiteralsCoded) &&
		implode.DictSize(file[1]).Valid()
}

// DetectFormat guesses the layout of file. A dBase header never starts with
// a byte below 2, so the two layouts do not overlap.
func DetectFormat(file []byte) Format {
	if IsRawStream(file) {
		return FormatRaw
	}
	return FormatDATASUS
}

// Open decompresses file. Options nil means DefaultOptions.
func Open(file []byte, opts *Options) (*File, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	f := &File{Format: opts.Format}
	if f.Format == FormatAuto {
		f.Format = DetectFormat(file)
	}

	iopts := &implode.Options{MaxOutput: opts.MaxOutput, OnToken: opts.OnToken}
	stream, base := file, 0

	switch f.Format {
	case FormatRaw:
	case FormatDATASUS:
		c, err := ParseContainer(file)
		if err != nil {
			return nil, err
		}
		f.Container = c
		stream, base = c.Payload, c.PayloadOffset
		if h, err := dbf.ParseHeader(c.Header); err == nil {
			iopts.SizeHint = h.DataLength() + 1
		}
	default:
		return nil, fmt.Errorf("dbc: unknown format %d", f.Format)
	}

	out, consumed, err := implode.DecompressBlock(stream, iopts)
	if err != nil {
		return nil, rebase(err, base)
	}

	f.Preamble, _ = implode.ParsePreamble(stream)
	f.Consumed, f.Trailing = consumed, len(stream)-consumed
	f.HintMismatch = opts.DictHint != 0 && opts.DictHint != f.Preamble.Dict

	if f.Container != nil {
		f.Data = make([]byte, 0, len(f.Container.Header)+len(out))
		f.Data = append(append(f.Data, f.Container.Header...), out...)
	} else {
		f.Data = out
	}
	return f, nil
}

// rebase turns a stream relative error offset into a file offset.
func rebase(err error, base int) error {
	var e *implode.Error
	if base == 0 || !errors.As(err, &e) {
		return err
	}
	return &implode.Error{Offset: e.Offset + int64(base), Err: e.Err}
}

// Decompress returns the uncompressed table held by file.
func Decompress(file []byte, opts *Options) ([]byte, error) {
	f, err := Open(file, opts)
	if err != nil {
		return nil, err
	}
	return f.Data, nil
}

// DecodeTable decompresses file and returns its schema and a single pass iterator over its rows.
func DecodeTable(file []byte, opts *Options) (*dbf.Header, *dbf.Rows, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	f, err := Open(file, opts)
	if err != nil {
		return nil, nil, err
	}
	return f.Table(opts)
}

// Table decodes the uncompressed table of f.
func (f *File) Table(opts *Options) (*dbf.Header, *dbf.Rows, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	return dbf.DecodeTable(f.Data, &dbf.Options{Charset: opts.Charset, IncludeDeleted: opts.IncludeDeleted})
}
