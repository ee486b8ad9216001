package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes text before it is handed to a similarity provider.
// It applies NFKC composition so composed and decomposed forms of the same
// character compare equal, trims surrounding whitespace, and lowercases.
// Empty input yields an empty string.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	// Lowercasing can emit decomposed sequences (e.g. U+0130), so compose
	// again afterwards to keep Normalize idempotent.
	s := norm.NFKC.String(text)
	s = strings.TrimSpace(s)
	s = cases.Lower(language.Und).String(s)
	return norm.NFKC.String(s)
}
