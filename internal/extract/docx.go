package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	docxDocumentXMLPath = "word/document.xml"
	contentTypesPath    = "[Content_Types].xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

type contentTypes struct {
	Overrides []struct {
		PartName    string `xml:"PartName,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Override"`
}

// extractDOCX extracts text from .docx bytes. Paragraphs become lines; tabs and breaks are kept.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	docPath := mainDocumentPath(zr)
	f := findZipFile(zr, docPath)
	if f == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", docPath)
	}
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("extract DOCX: open %s: %w", f.Name, err)
	}
	defer rc.Close()

	text, err := documentText(rc)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: parse %s: %w", f.Name, err)
	}
	return text, nil
}

// mainDocumentPath reads the main part name from [Content_Types].xml, defaulting to word/document.xml.
func mainDocumentPath(zr *zip.Reader) string {
	f := findZipFile(zr, contentTypesPath)
	if f == nil {
		return docxDocumentXMLPath
	}
	rc, err := f.Open()
	if err != nil {
		return docxDocumentXMLPath
	}
	defer rc.Close()

	var ct contentTypes
	if err := xml.NewDecoder(rc).Decode(&ct); err != nil {
		return docxDocumentXMLPath
	}
	for _, o := range ct.Overrides {
		if o.ContentType == docxMainContentType && o.PartName != "" {
			return strings.TrimPrefix(o.PartName, "/")
		}
	}
	return docxDocumentXMLPath
}

func findZipFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// documentText walks WordprocessingML tokens: w:t runs are text, w:p ends a line,
// w:tab and w:br map to tab and newline.
func documentText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		b      strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.TrimRight(line, " \t"); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n"), nil
}
