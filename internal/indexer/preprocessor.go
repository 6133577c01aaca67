package indexer

import (
	"strings"
	"unicode"
)

// Preprocess normalizes resume text before storage and embedding: runs of spaces and tabs
// collapse to one space, lines are trimmed and blank lines dropped.
func Preprocess(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		var b strings.Builder
		wasSpace := false
		for _, r := range strings.TrimSpace(line) {
			if unicode.IsSpace(r) {
				if !wasSpace {
					b.WriteRune(' ')
					wasSpace = true
				}
				continue
			}
			b.WriteRune(r)
			wasSpace = false
		}
		if b.Len() > 0 {
			out = append(out, b.String())
		}
	}
	return strings.Join(out, "\n")
}
