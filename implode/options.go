package implode

// Options configures Decompress and the Decompressor.
type Options struct {
	// MaxOutput bounds the decompressed size; 0 means unbounded.
	// Exceeding it fails with ErrOutputLimit.
	MaxOutput int
	// SizeHint preallocates the output buffer.
	SizeHint int
	// OnToken, if set, is called after each decoded token, the end marker included.
	OnToken func(Token)
}

// DefaultOptions returns options for default behavior: unbounded output, no tracing.
func DefaultOptions() *Options {
	return &Options{}
}
