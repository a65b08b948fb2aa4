package dbf

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
)

// DefaultCharset is the text encoding of DATASUS tables.
const DefaultCharset = "latin1"

// LookupCharset returns the encoding for a charset name: a short alias
// (latin1, cp850, cp1252, utf8) or any IANA name.
func LookupCharset(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "latin1", "latin-1", "iso-8859-1":
		return charmap.ISO8859_1, nil
	case "cp850", "ibm850":
		return charmap.CodePage850, nil
	case "cp1252", "windows-1252":
		return charmap.Windows1252, nil
	case "utf8", "utf-8", "raw":
		return encoding.Nop, nil
	}

	e, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("dbf: unknown charset %q: %w", name, err)
	}
	if e == nil {
		return nil, fmt.Errorf("dbf: charset %q is not supported", name)
	}
	return e, nil
}
