// Package fileid derives stable resume ids from file paths.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"unicode"
)

const (
	hashBytes = 6
	maxSlug   = 40
)

// FromPath returns a resume id for the file at path: a slug of the base name and a short hash
// of the cleaned path. The same path always yields the same id.
func FromPath(path string) string {
	normalized := filepath.Clean(path)
	hash := sha256.Sum256([]byte(normalized))
	suffix := hex.EncodeToString(hash[:hashBytes])

	base := strings.TrimSuffix(filepath.Base(normalized), filepath.Ext(normalized))
	if slug := slugify(base); slug != "" {
		return slug + "-" + suffix
	}
	return "resume-" + suffix
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
		if b.Len() >= maxSlug {
			break
		}
	}
	return strings.TrimRight(b.String(), "-")
}
