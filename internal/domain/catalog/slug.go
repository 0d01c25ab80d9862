package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var asciiFold = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
)

// Slugify folds s to lowercase ASCII words joined by single hyphens.
// Characters without an ASCII decomposition are dropped, so purely
// Cyrillic input yields an empty slug.
func Slugify(s string) string {
	folded, _, err := transform.String(asciiFold, s)
	if err != nil {
		return ""
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r == '-' || unicode.IsSpace(r):
			pendingDash = true
		case r == '_' || ('a' <= r && r <= 'z') || ('0' <= r && r <= '9'):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		}
	}

	return strings.Trim(b.String(), "-_")
}

// AlphaNumeric keeps only ASCII letters and digits.
func AlphaNumeric(s string) string {
	var b strings.Builder
	for _, r := range s {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
