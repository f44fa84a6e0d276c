package core

import (
	"strings"
	"unicode"
)

// Slugify lowercases title and collapses every run of whitespace into a
// single hyphen. Nothing else is escaped.
func Slugify(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	inSpace := false
	for _, r := range title {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('-')
				inSpace = true
			}
			continue
		}
		inSpace = false
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
