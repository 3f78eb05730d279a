package database

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// removeDiacritics strips diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeLabel normalizes a label for storage and lookup (trimmed,
// lowercase, no diacritics) so "Tomáš" and "tomas" name the same identity.
func NormalizeLabel(label string) string {
	label = strings.TrimSpace(label)
	label = removeDiacritics(label)
	return strings.ToLower(label)
}

// NormalizeUsername lowercases a chat username and ensures the @ prefix.
func NormalizeUsername(username string) string {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return ""
	}
	if !strings.HasPrefix(username, "@") {
		username = "@" + username
	}
	return username
}
