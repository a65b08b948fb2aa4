package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/consensys/dbc"
	"github.com/consensys/dbc/emit"
	"github.com/consensys/dbc/implode"
	"github.com/segmentio/ksuid"
)

// Stats describe one conversion.
type Stats struct {
	Format       dbc.Format
	Preamble     implode.Preamble
	Records      int // records read, deleted ones included
	Rows         int // rows written
	Deleted      int
	InputBytes   int64
	OutputBytes  int64
	HintMismatch bool
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Convert decodes file and writes its rows to w as delimited text.
// Options nil means DefaultOptions.
func Convert(ctx context.Context, file []byte, w io.Writer, opts *Options) (Stats, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	stats := Stats{InputBytes: int64(len(file))}

	f, err := dbc.Open(file, opts.Decode)
	if err != nil {
		return stats, err
	}
	stats.Format, stats.Preamble, stats.HintMismatch = f.Format, f.Preamble, f.HintMismatch

	h, rows, err := f.Table(opts.Decode)
	if err != nil {
		return stats, err
	}

	cw := &countingWriter{w: w}
	zw, err := emit.NewCompressor(cw, opts.Compression)
	if err != nil {
		return stats, err
	}
	e, err := emit.NewEmitter(zw, opts.Emit)
	if err != nil {
		zw.Close()
		return stats, err
	}

	err = e.EmitTable(ctx, h, rows)
	if cerr := zw.Close(); err == nil {
		err = cerr
	}

	stats.Records, stats.Rows, stats.Deleted = rows.Read(), e.Rows(), rows.Deleted()
	stats.OutputBytes = cw.n
	return stats, err
}

// ConvertFile converts job.Input into job.Output. The output appears only
// once it is complete.
func ConvertFile(ctx context.Context, job Job, opts *Options) (Stats, error) {
	file, err := os.ReadFile(job.Input)
	if err != nil {
		return Stats{}, err
	}

	if err := os.MkdirAll(filepath.Dir(job.Output), 0750); err != nil {
		return Stats{}, fmt.Errorf("failed to create output directory: %w", err)
	}
	// Created with the final mode so the umask applies as for any new file.
	name := filepath.Join(filepath.Dir(job.Output), "."+filepath.Base(job.Output)+"."+ksuid.New().String())
	tmp, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return Stats{}, err
	}
	defer os.Remove(tmp.Name()) // no-op after the rename

	stats, err := Convert(ctx, file, tmp, opts)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return stats, err
	}
	return stats, os.Rename(tmp.Name(), job.Output)
}

// OutputPath names the output of input: its base name with the extension
// replaced by .csv and the compression suffix, in outDir or next to input.
func OutputPath(input, outDir, compression string) (string, error) {
	ext, err := emit.Extension(compression)
	if err != nil {
		return "", err
	}
	dir, base := filepath.Split(input)
	if outDir != "" {
		dir = outDir
	}
	name := strings.TrimSuffix(base, filepath.Ext(base)) + ".csv" + ext
	return filepath.Join(dir, name), nil
}
