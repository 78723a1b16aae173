package catalog

import (
	"strings"
	"unicode"
)

// slugify lowercases the title and replaces runs of non-alphanumerics with a
// single dash, matching the upload filename scheme expected by clients.
func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
