package extract

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// maxImageBytes caps images sent to the vision model.
const maxImageBytes = 20 << 20

const ocrPrompt = `Transcribe this resume image into Markdown.
Include every piece of text on the page: headings, contact details, dates, bullet points and tables.
Reply with the Markdown only, without commentary or code fences.`

func (e *Extractor) extractImage(ctx context.Context, content []byte, ext string) (string, error) {
	if len(content) > maxImageBytes {
		return "", fmt.Errorf("extract image: %d bytes exceeds the %d byte limit", len(content), maxImageBytes)
	}
	mime := http.DetectContentType(content)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/" + strings.TrimPrefix(strings.Replace(ext, "jpg", "jpeg", 1), ".")
	}
	url := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(content)

	text, err := e.ocr.DescribeImage(ctx, e.ocrModel, ocrPrompt, url)
	if err != nil {
		return "", fmt.Errorf("extract image: %w", err)
	}
	return stripFences(text), nil
}

// stripFences removes a surrounding ``` or ```markdown fence some models add anyway.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		return ""
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
