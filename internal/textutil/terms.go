package textutil

import (
	"strings"
	"unicode"
)

// minTermLength drops articles and short function words.
const minTermLength = 3

// Tokenize folds text and splits it on anything that is not an ASCII
// letter or digit, keeping tokens of at least three characters.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(Fold(text), func(r rune) bool {
		return r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r))
	})
	terms := fields[:0]
	for _, f := range fields {
		if len(f) >= minTermLength {
			terms = append(terms, f)
		}
	}
	return terms
}

// stem is a plural-insensitive key: "tombs" and "tomb" share one.
func stem(term string) string {
	if len(term) > minTermLength {
		return strings.TrimSuffix(term, "s")
	}
	return term
}

// SharesTerms reports whether any term of topic, singular or plural,
// appears in text. Topics without usable terms always match.
func SharesTerms(topic, text string) bool {
	needles := Tokenize(topic)
	if len(needles) == 0 {
		return true
	}
	seen := make(map[string]struct{})
	for _, term := range Tokenize(text) {
		seen[stem(term)] = struct{}{}
	}
	for _, term := range needles {
		if _, ok := seen[stem(term)]; ok {
			return true
		}
	}
	return false
}
