package mail

import (
	"strings"
	"unicode"
)

// Sanitize strips control characters from a header value.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// encodeLocal makes a string safe for use as the local part of a synthesized
// email address.
func encodeLocal(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_' || r == '+':
			return r
		default:
			return -1
		}
	}, Sanitize(s))
}
