package generator

import "strings"

// Alphabets leave out I, l, 1, O and 0 so a password can be read back and
// typed without confusing look-alike glyphs. This is a usability choice, not
// a security property.
const (
	LowerAlphabet  = "abcdefghijkmnopqrstuvwxyz"
	UpperAlphabet  = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	DigitAlphabet  = "23456789"
	SymbolAlphabet = "!@#$%^&*()-_=+[]{};:,.?/"
)

// Flags selects character classes.
type Flags struct {
	Lower   bool
	Upper   bool
	Digits  bool
	Symbols bool
}

// Any reports whether at least one class is enabled.
func (f Flags) Any() bool {
	return f.Lower || f.Upper || f.Digits || f.Symbols
}

// Charset concatenates the enabled alphabets in the fixed order
// lower, upper, digits, symbols.
func Charset(f Flags) (string, error) {
	if !f.Any() {
		return "", ErrEmptyCharset
	}

	var b strings.Builder
	if f.Lower {
		b.WriteString(LowerAlphabet)
	}
	if f.Upper {
		b.WriteString(UpperAlphabet)
	}
	if f.Digits {
		b.WriteString(DigitAlphabet)
	}
	if f.Symbols {
		b.WriteString(SymbolAlphabet)
	}
	return b.String(), nil
}
