package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases text and strips combining marks so "Café Crème" and
// "cafe creme" compare equal.
func Fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	return cases.Lower(language.Und).String(folded)
}

const maxSlugLength = 60

// Slug converts a topic into a lowercase ASCII file name stem. Runs of
// anything other than letters and digits collapse to a single dash. Empty
// results fall back to "video".
func Slug(text string) string {
	folded := Fold(text)
	var b strings.Builder
	dash := false
	for _, r := range folded {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.Trim(b.String(), "-")
	if len(out) > maxSlugLength {
		out = strings.TrimRight(out[:maxSlugLength], "-")
	}
	if out == "" {
		return "video"
	}
	return out
}

// Title renders a stage or status key as a display label ("footage" → "Footage").
func Title(text string) string {
	text = strings.ReplaceAll(strings.TrimSpace(text), "_", " ")
	return cases.Title(language.English).String(text)
}
