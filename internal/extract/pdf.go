package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF returns the plain text of every page, pages separated by a blank line.
// Pages whose text cannot be decoded are skipped unless none can be read.
func extractPDF(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	var (
		pages   []string
		lastErr error
	)
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			lastErr = fmt.Errorf("extract page %d: %w", i, err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 && lastErr != nil {
		return "", lastErr
	}
	return strings.Join(pages, "\n\n"), nil
}
