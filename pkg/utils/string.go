package utils

import "strings"

// SanitizeKey maps an arbitrary identifier into the key namespace accepted by
// the highlighting service: letters, digits, underscore and hyphen. Every other
// rune is replaced with an underscore, so the transform is collision-resistant
// for typical account IDs and never empty for non-empty input.
func SanitizeKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
