package search

import (
	"strings"
	"unicode"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes accented characters and removes the combining marks,
// so "é" becomes "e" before the ASCII filter runs.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize canonicalizes text for matching: lowercase, accents folded to
// their base letter, everything that is not an ASCII letter or digit
// removed. The same function is applied to queries and candidate fields so
// comparisons stay symmetric. Empty input yields the empty string.
func Normalize(input string) string {
	if input == "" {
		return ""
	}
	lower := strings.ToLower(input)
	folded, _, err := transform.String(stripMarks, lower)
	if err != nil {
		folded = lower
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PartialRatio scores the best-aligned substring match of the shorter string
// within the longer one, scaled 0-100. Equal strings score 100; strings with
// nothing in common score 0.
func PartialRatio(a, b string) int {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	return fuzzy.PartialRatio(a, b)
}
