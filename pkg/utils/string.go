package utils

import (
	"strings"
	"unicode/utf8"
)

// NormalizeWhitespace replaces runs of whitespace with a single space.
func NormalizeWhitespace(str string) string {
	return strings.Join(strings.Fields(str), " ")
}

// TruncateString cuts str to at most maxRunes runes, marking the cut with "...".
func TruncateString(str string, maxRunes int) string {
	if utf8.RuneCountInString(str) <= maxRunes {
		return str
	}

	if maxRunes <= 3 {
		return string([]rune(str)[:maxRunes])
	}

	return string([]rune(str)[:maxRunes-3]) + "..."
}
