package csv

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeHeader converts a raw header cell into a canonical column key:
// lowercased, accents folded to ASCII, and separator runs collapsed to a
// single underscore. The source dataset is Brazilian, so headers can carry
// Portuguese diacritics that must not leak into SQL identifiers.
//
// Examples:
//
//	"Order ID"        -> "order_id"
//	"Preço do Frete"  -> "preco_do_frete"
func NormalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	// Decompose, remove nonspacing marks (accents), recompose.
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, _ := transform.String(t, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				prevUnderscore = true
			}
		default:
			// Drop anything else (punctuation, symbols).
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
