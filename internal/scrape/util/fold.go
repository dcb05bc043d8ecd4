package util

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s, strips diacritics and collapses whitespace so phrase
// matching works across "no longer accepting", "No longer Accepting" and
// accented variants.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.ReplaceAll(out, "’", "'")
	return strings.ToLower(CleanText(out))
}

// ContainsAnyFolded returns the first phrase found in text.
func ContainsAnyFolded(text string, phrases []string) (string, bool) {
	ft := Fold(text)
	if ft == "" {
		return "", false
	}
	for _, p := range phrases {
		fp := Fold(p)
		if fp != "" && strings.Contains(ft, fp) {
			return p, true
		}
	}
	return "", false
}
