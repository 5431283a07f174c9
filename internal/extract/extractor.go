// Package extract pulls plain text out of uploaded CV files.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for binary formats no extractor handles.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content.
// Returns an error if the file cannot be read or the format is unsupported.
func (e *Extractor) Extract(path string) (string, error) {
	return e.extractFile(path, 0)
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"). Unknown extensions are
// read as plain text.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	return e.extract(content, strings.ToLower(ext), 0)
}

func (e *Extractor) extractFile(path string, maxChars int) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.extract(content, strings.ToLower(filepath.Ext(path)), maxChars)
}

// extract dispatches on ext. maxChars bounds formats that can stop early;
// zero reads everything.
func (e *Extractor) extract(content []byte, ext string, maxChars int) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content, maxChars)
	case ".docx", ".docm", ".dotx":
		return extractDOCX(content)
	case ".odt", ".rtf":
		return extractWithCat(content)
	case ".doc":
		// Legacy Word binary; the upload form accepts it but nothing can read it.
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	default:
		return extractPlain(content)
	}
}
