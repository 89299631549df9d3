package textutil

import "strings"

// mapFileNameRune maps filesystem-unsafe characters: path separators and
// their lookalikes become dashes, shell-hostile characters disappear.
func mapFileNameRune(r rune) rune {
	switch r {
	case '/', '\\', ':', '*':
		return '-'
	case '?', '"', '<', '>', '|':
		return -1
	}
	return r
}

// SanitizeFileName makes a display name safe to use as a filename. The
// user-supplied movie output name goes through here before it is joined
// onto the project directory.
func SanitizeFileName(name string) string {
	return strings.TrimSpace(strings.Map(mapFileNameRune, strings.TrimSpace(name)))
}

// SanitizeToken converts a string to a lowercase filesystem-safe token:
// letters are lowercased, digits, hyphens, and underscores are kept, and
// everything else becomes an underscore. Empty results come back as
// "unknown".
//
// Cache entry names embed the actor this way; identity still comes from the
// paragraph digest, which hashes the raw actor name, so two actors that
// sanitize to the same token never collide on disk.
func SanitizeToken(value string) string {
	token := strings.Map(mapTokenRune, strings.TrimSpace(value))
	token = strings.Trim(token, "_-")
	if token == "" {
		return "unknown"
	}
	return token
}

func mapTokenRune(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
		return r
	case r >= 'A' && r <= 'Z':
		return r + ('a' - 'A')
	}
	return '_'
}
