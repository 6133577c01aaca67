// Package extract provides text extraction from resume documents.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for extensions no extractor handles.
	ErrUnsupportedFormat = errors.New("unsupported resume format")
	// ErrNoText is returned when a document yields no text (e.g. a scanned PDF).
	ErrNoText = errors.New("no text extracted")
)

// ImageDescriber turns an image into text. *llm.Client implements it.
type ImageDescriber interface {
	DescribeImage(ctx context.Context, model, prompt, imageURL string) (string, error)
}

// Extractor extracts plain text from resume files.
type Extractor struct {
	ocr      ImageDescriber
	ocrModel string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithOCR enables image resumes (.png, .jpg, .jpeg) through a vision model.
func WithOCR(d ImageDescriber, model string) Option {
	return func(e *Extractor) {
		e.ocr = d
		e.ocrModel = model
	}
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Supports reports whether ext (with leading dot) can be extracted.
func (e *Extractor) Supports(ext string) bool {
	switch strings.ToLower(ext) {
	case ".pdf", ".docx", ".txt", ".md", ".rst", "":
		return true
	case ".png", ".jpg", ".jpeg":
		return e.ocr != nil
	}
	return false
}

// Extract reads the file at path and returns its text content, trimmed.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !e.Supports(ext) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(ctx, content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(ctx context.Context, content []byte, ext string) (string, error) {
	var (
		text string
		err  error
	)
	switch ext = strings.ToLower(ext); ext {
	case ".pdf":
		text, err = extractPDF(content)
	case ".docx":
		text, err = extractDOCX(content)
	case ".txt", ".md", ".rst", "":
		text, err = extractPlain(content)
	case ".png", ".jpg", ".jpeg":
		if e.ocr == nil {
			return "", fmt.Errorf("%w: %q (OCR disabled)", ErrUnsupportedFormat, ext)
		}
		text, err = e.extractImage(ctx, content, ext)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}
