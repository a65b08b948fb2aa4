// Package emit writes decoded rows as delimited text.
package emit

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/consensys/dbc/dbf"
)

// DefaultSeparator separates fields when Options.Separator is zero.
const DefaultSeparator = ';'

// checkEvery is how many rows EmitTable writes between context checks.
const checkEvery = 1024

// Options configure an Emitter.
type Options struct {
	// Separator between fields; defaults to ';'.
	Separator rune
	// Header writes the field names as the first line.
	Header bool
	// CRLF ends lines with \r\n instead of \n.
	CRLF bool
}

func DefaultOptions() *Options {
	return &Options{Separator: DefaultSeparator}
}

// Emitter writes one line per row. Only fields holding the separator, a quote
// or a line break are quoted; leading and trailing spaces are kept as is.
type Emitter struct {
	w    *bufio.Writer
	sep  string
	eol  string
	opts Options
	rows int
}

// NewEmitter returns an Emitter writing to w. Options nil means DefaultOptions.
func NewEmitter(w io.Writer, opts *Options) (*Emitter, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	o := *opts
	if o.Separator == 0 {
		o.Separator = DefaultSeparator
	}
	if err := ValidSeparator(o.Separator); err != nil {
		return nil, err
	}

	e := &Emitter{w: bufio.NewWriter(w), sep: string(o.Separator), eol: "\n", opts: o}
	if o.CRLF {
		e.eol = "\r\n"
	}
	return e, nil
}

// ValidSeparator reports whether r can separate fields.
func ValidSeparator(r rune) error {
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError || !utf8.ValidRune(r) {
		return fmt.Errorf("emit: invalid separator %q", r)
	}
	return nil
}

func (e *Emitter) WriteHeader(names []string) error {
	return e.writeLine(names)
}

func (e *Emitter) WriteRow(values []string) error {
	if err := e.writeLine(values); err != nil {
		return err
	}
	e.rows++
	return nil
}

// writeLine relies on bufio.Writer keeping the first write error, so only the
// last write is checked.
func (e *Emitter) writeLine(fields []string) error {
	for i, f := range fields {
		if i > 0 {
			e.w.WriteString(e.sep)
		}
		if !e.needsQuotes(f) {
			e.w.WriteString(f)
			continue
		}
		e.w.WriteByte('"')
		e.w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		e.w.WriteByte('"')
	}
	_, err := e.w.WriteString(e.eol)
	return err
}

func (e *Emitter) needsQuotes(f string) bool {
	return strings.Contains(f, e.sep) || strings.ContainsAny(f, "\"\r\n")
}

// Flush writes buffered lines to the underlying writer.
func (e *Emitter) Flush() error {
	return e.w.Flush()
}

// Rows returns the number of rows written, header excluded.
func (e *Emitter) Rows() int {
	return e.rows
}

// EmitTable writes the header line, if configured, and every row of rows,
// then flushes. It stops early when ctx is done.
func (e *Emitter) EmitTable(ctx context.Context, h *dbf.Header, rows *dbf.Rows) error {
	if e.opts.Header {
		if err := e.WriteHeader(h.Names()); err != nil {
			return err
		}
	}

	for n := 1; rows.Next(); n++ {
		if err := e.WriteRow(rows.Row().Values); err != nil {
			return err
		}
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return e.Flush()
}
