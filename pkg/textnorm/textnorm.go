// Package textnorm provides the text normalization hook applied to every
// BOM cell before it is written.
package textnorm

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrUnknownNormalizer is returned by ByName for unrecognised names
var ErrUnknownNormalizer = errors.New("unknown normalizer")

// Func maps one cell value to its normalized form
type Func func(string) string

// Identity returns s unchanged
func Identity(s string) string {
	return s
}

// NFC composes s into Unicode normalization form C
func NFC(s string) string {
	return norm.NFC.String(s)
}

// NFKC applies compatibility composition, folding e.g. "µ" to "μ" and
// full-width digits to ASCII.
func NFKC(s string) string {
	return norm.NFKC.String(s)
}

// ASCIIFold strips combining marks after decomposition, so "Ω" stays but
// "é" becomes "e". Characters without an ASCII base are kept as-is.
func ASCIIFold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Names lists the normalizers accepted by ByName
var Names = []string{"none", "nfc", "nfkc", "ascii"}

// ByName resolves a normalizer by its configuration name. The empty
// string selects Identity.
func ByName(name string) (Func, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return Identity, nil
	case "nfc":
		return NFC, nil
	case "nfkc":
		return NFKC, nil
	case "ascii":
		return ASCIIFold, nil
	}
	return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownNormalizer, name, strings.Join(Names, ", "))
}
