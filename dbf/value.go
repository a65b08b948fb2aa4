package dbf

import (
	"bytes"
	"strings"
	"time"
)

// decodeValue turns the raw bytes of one field into its text form.
func (r *Rows) decodeValue(f *Field, raw []byte) string {
	switch f.Type {
	case Character:
		return r.text(bytes.TrimRight(raw, " \x00"))
	case Numeric, Float:
		return numeric(string(raw), f.Decimals)
	case Date:
		return date(string(raw))
	case Logical:
		return logical(raw)
	default: // Memo: block reference kept as stored
		return r.text(raw)
	}
}

func (r *Rows) text(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	out, err := r.dec.Bytes(b)
	if err != nil {
		// single byte charsets never fail; multi-byte ones fall back to the raw bytes
		return string(b)
	}
	return string(out)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// numeric normalizes a stored number. A value without a decimal point has
// `decimals` implied fraction digits; an explicit fraction is padded or
// rounded half up to `decimals` places. Anything that is not a number is
// empty, and a value that is zero carries no sign.
func numeric(s string, decimals int) string {
	s = strings.TrimSpace(s)

	sign := ""
	if s != "" && (s[0] == '-' || s[0] == '+') {
		if s[0] == '-' {
			sign = "-"
		}
		s = s[1:]
	}

	intPart, frac, hasPoint := strings.Cut(s, ".")
	if intPart+frac == "" || !isDigits(intPart) || !isDigits(frac) {
		return ""
	}

	if !hasPoint {
		if decimals == 0 {
			return signed(sign, intPart)
		}
		if len(intPart) <= decimals {
			intPart = strings.Repeat("0", decimals-len(intPart)+1) + intPart
		}
		cut := len(intPart) - decimals
		return signed(sign, intPart[:cut]+"."+intPart[cut:])
	}

	if intPart == "" {
		intPart = "0"
	}
	switch {
	case decimals == 0 && frac == "":
		return signed(sign, intPart)
	case decimals == 0:
		return signed(sign, intPart+"."+frac)
	case len(frac) <= decimals:
		return signed(sign, intPart+"."+frac+strings.Repeat("0", decimals-len(frac)))
	}

	digits := intPart + frac[:decimals]
	if frac[decimals] >= '5' {
		digits = increment(digits)
	}
	cut := len(digits) - decimals
	return signed(sign, digits[:cut]+"."+digits[cut:])
}

// increment adds one to a decimal digit string, growing it on a carry out.
func increment(digits string) string {
	b := []byte(digits)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] != '9' {
			b[i]++
			return string(b)
		}
		b[i] = '0'
	}
	return "1" + string(b)
}

func signed(sign, number string) string {
	if strings.Trim(number, "0.") == "" {
		return number
	}
	return sign + number
}

// date formats YYYYMMDD as YYYY-MM-DD. Blank or all-zero dates are empty;
// anything else that is not a valid date is kept as trimmed text.
func date(s string) string {
	s = strings.TrimSpace(s)
	if strings.Trim(s, "0") == "" {
		return ""
	}
	if len(s) != 8 || !isDigits(s) {
		return s
	}
	t, err := time.Parse("20060102", s)
	if err != nil {
		return s
	}
	return t.Format("2006-01-02")
}

func logical(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case 'T', 't', 'Y', 'y':
		return "true"
	case 'F', 'f', 'N', 'n':
		return "false"
	}
	return ""
}
