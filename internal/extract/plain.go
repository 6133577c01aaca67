package extract

import (
	"strings"
	"unicode/utf8"
)

const utf8BOM = "\ufeff"

// extractPlain returns content as a string with a leading BOM removed and CRLF line endings
// normalized. Invalid UTF-8 sequences are replaced with the replacement character.
func extractPlain(content []byte) (string, error) {
	s := string(content)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\ufffd")
	}
	s = strings.TrimPrefix(s, utf8BOM)
	return strings.ReplaceAll(s, "\r\n", "\n"), nil
}
