package textutil

import "strings"

// CollapseWhitespace trims the string and replaces every run of Unicode
// whitespace (spaces, tabs, newlines) with a single space. Paragraph digests
// hash the collapsed form, so reflowing a block in the script never changes
// its cache identity.
func CollapseWhitespace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// Truncate shortens a string to at most limit runes, appending an ellipsis
// when anything was cut. A non-positive limit yields the empty string.
func Truncate(value string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + "…"
}
