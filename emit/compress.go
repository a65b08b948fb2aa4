package emit

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Compression names.
const (
	None = "none"
	Gzip = "gzip"
	Zstd = "zstd"
	S2   = "s2"
)

type codec struct {
	ext       string
	newWriter func(io.Writer) (io.WriteCloser, error)
}

var codecs = map[string]codec{
	None: {"", func(w io.Writer) (io.WriteCloser, error) { return nopCloser{w}, nil }},
	Gzip: {".gz", func(w io.Writer) (io.WriteCloser, error) { return gzip.NewWriter(w), nil }},
	Zstd: {".zst", func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
	}},
	S2: {".s2", func(w io.Writer) (io.WriteCloser, error) { return s2.NewWriter(w), nil }},
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// Compressions lists the supported compression names, sorted.
func Compressions() []string {
	names := maps.Keys(codecs)
	slices.Sort(names)
	return names
}

func lookup(name string) (codec, error) {
	if name == "" {
		name = None
	}
	c, ok := codecs[name]
	if !ok {
		return codec{}, fmt.Errorf("emit: unknown compression %q (want one of %v)", name, Compressions())
	}
	return c, nil
}

// Extension returns the file name suffix of a compression, empty for none.
func Extension(name string) (string, error) {
	c, err := lookup(name)
	return c.ext, err
}

// NewCompressor wraps w with the named compression. Closing the returned
// writer flushes the compressed stream but does not close w.
func NewCompressor(w io.Writer, name string) (io.WriteCloser, error) {
	c, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return c.newWriter(w)
}
