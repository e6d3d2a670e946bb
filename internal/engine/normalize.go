// File: internal/engine/normalize.go
package engine

import (
	"strings"
	"unicode/utf8"
)

// Normalize collapses whitespace runs to a single space, trims the ends and
// lowercases the result. Needles and element text go through the same function.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// truncate shortens s to at most max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
