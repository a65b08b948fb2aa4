package dbf

import "golang.org/x/text/encoding"

// Options control record decoding.
type Options struct {
	// Charset decodes text fields. Nil means Latin-1.
	Charset encoding.Encoding

	// IncludeDeleted yields deleted records too, with Row.Deleted set.
	IncludeDeleted bool
}

func DefaultOptions() *Options {
	return &Options{}
}
