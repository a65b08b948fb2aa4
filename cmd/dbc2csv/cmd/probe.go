package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"unicode"

	"github.com/consensys/dbc"
	"github.com/consensys/dbc/dbf"
	"github.com/consensys/dbc/emit"
	"github.com/consensys/dbc/implode"
	"github.com/spf13/cobra"
	"golang.org/x/text/encoding/charmap"
)

const probeBytes = 256

func newProbeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe FILE",
		Short: "Describe a .DBC file",
		Long: `Print the size, the first 256 bytes, the detected layout, the
compression preamble and the table schema of a .DBC file. With --tokens,
print the decompressor's token trace as delimited text instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *a.cfg
			if err := applyConversionFlags(cmd.Flags(), &cfg); err != nil {
				return err
			}
			opts, err := cfg.Input.Options()
			if err != nil {
				return err
			}

			file, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			tokens, _ := cmd.Flags().GetBool("tokens")
			limit, _ := cmd.Flags().GetInt("limit")
			if tokens {
				sep, err := cfg.Output.SeparatorRune()
				if err != nil {
					return err
				}
				return traceTokens(cmd.OutOrStdout(), file, opts, sep, limit)
			}
			return probe(cmd.OutOrStdout(), args[0], file, opts)
		},
	}
	addConversionFlags(cmd)
	cmd.Flags().Bool("tokens", false, "print the token trace")
	cmd.Flags().Int("limit", 0, "stop the token trace after this many tokens (0 for all)")
	return cmd
}

func probe(w io.Writer, name string, file []byte, opts *dbc.Options) error {
	fmt.Fprintf(w, "file: %s\nsize: %d bytes\n\n", name, len(file))
	dump(w, file[:min(len(file), probeBytes)])

	f, err := dbc.Open(file, opts)
	if err != nil {
		fmt.Fprintf(w, "\nlayout: %s\n", dbc.DetectFormat(file))
		return err
	}

	fmt.Fprintf(w, "\nlayout: %s\n", f.Format)
	fmt.Fprintf(w, "preamble: literals %s, dictionary %s\n", f.Preamble.Literals, f.Preamble.Dict)
	if f.HintMismatch {
		fmt.Fprintf(w, "dictionary hint: %s (ignored)\n", opts.DictHint)
	}
	if f.Container != nil {
		fmt.Fprintf(w, "checksum: %08x (not validated)\npayload: %d bytes at offset %d\n",
			f.Container.Checksum, len(f.Container.Payload), f.Container.PayloadOffset)
	}
	fmt.Fprintf(w, "decompressed: %d bytes, %d trailing input bytes\n", len(f.Data), f.Trailing)

	h, err := dbf.ParseHeader(f.Data)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nversion: 0x%02x\n", h.Version)
	if !h.LastUpdate.IsZero() {
		fmt.Fprintf(w, "last update: %s\n", h.LastUpdate.Format("2006-01-02"))
	}
	fmt.Fprintf(w, "records: %d\nheader length: %d\nrecord length: %d\n\n", h.RecordCount, h.HeaderLength, h.RecordLength)

	fmt.Fprintf(w, "%-11s %-4s %5s %8s\n", "FIELD", "TYPE", "WIDTH", "DECIMALS")
	for _, fd := range h.Fields {
		fmt.Fprintf(w, "%-11s %-4s %5d %8d\n", fd.Name, fd.Type, fd.Width, fd.Decimals)
	}
	return nil
}

// dump writes b as hex, 16 bytes per line, with a Latin-1 rendering.
func dump(w io.Writer, b []byte) {
	dec := charmap.ISO8859_1.NewDecoder()
	for off := 0; off < len(b); off += 16 {
		line := b[off:min(off+16, len(b))]
		fmt.Fprintf(w, "%08x ", off)
		for i := 0; i < 16; i++ {
			if i < len(line) {
				fmt.Fprintf(w, " %02x", line[i])
			} else {
				fmt.Fprint(w, "   ")
			}
		}

		text, _ := dec.String(string(line))
		printable := []rune(text)
		for i, r := range printable {
			if !unicode.IsPrint(r) {
				printable[i] = '.'
			}
		}
		fmt.Fprintf(w, "  |%s|\n", string(printable))
	}
}

// traceTokens writes one line per decoded token, bit offsets relative to the file.
func traceTokens(w io.Writer, file []byte, opts *dbc.Options, sep rune, limit int) error {
	stream, base := file, 0
	format := opts.Format
	if format == dbc.FormatAuto {
		format = dbc.DetectFormat(file)
	}
	if format == dbc.FormatDATASUS {
		c, err := dbc.ParseContainer(file)
		if err != nil {
			return err
		}
		stream, base = c.Payload, c.PayloadOffset
	}

	d, err := implode.NewDecompressor(stream, &implode.Options{MaxOutput: opts.MaxOutput})
	if err != nil {
		return err
	}

	e, err := emit.NewEmitter(w, &emit.Options{Separator: sep})
	if err != nil {
		return err
	}
	if err := e.WriteHeader([]string{"bit", "output", "kind", "literal", "length", "distance"}); err != nil {
		return err
	}

	for n := 0; limit <= 0 || n < limit; n++ {
		tok, err := d.Step()
		if err != nil {
			return errors.Join(err, e.Flush())
		}

		row := []string{strconv.FormatInt(tok.Bit+8*int64(base), 10), strconv.Itoa(tok.Output), tok.Kind.String(), "", "", ""}
		switch tok.Kind {
		case implode.TokenLiteral:
			row[3] = fmt.Sprintf("%02x", tok.Literal)
		case implode.TokenCopy:
			row[4], row[5] = strconv.Itoa(tok.Length), strconv.Itoa(tok.Distance)
		}
		if err := e.WriteRow(row); err != nil {
			return err
		}
		if tok.Kind == implode.TokenEnd {
			break
		}
	}
	return e.Flush()
}
