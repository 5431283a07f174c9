package extract

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hyperjump/wantokmatch/pkg/utils"
)

// ErrOutsideUploads means a cv_url resolved outside the uploads directory.
var ErrOutsideUploads = errors.New("cv path outside uploads directory")

// ResolveCV maps a stored cv_url such as "/uploads/cvs/12-1700000000.pdf"
// to a file under uploadsDir.
func ResolveCV(uploadsDir, cvURL string) (string, error) {
	rel := strings.TrimPrefix(path.Clean("/"+cvURL), "/")
	rel = strings.TrimPrefix(rel, "uploads/")
	if rel == "" || rel == "." {
		return "", fmt.Errorf("empty cv url")
	}
	full := filepath.Join(uploadsDir, filepath.FromSlash(rel))
	within, err := filepath.Rel(uploadsDir, full)
	if err != nil || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideUploads, cvURL)
	}
	return full, nil
}

// CVText extracts the text of an uploaded CV, collapses whitespace and keeps
// at most maxChars runes. PDF pages past that budget are never decoded. A
// missing file yields "" and no error so profiles whose upload was removed
// still index.
func (e *Extractor) CVText(uploadsDir, cvURL string, maxChars int) (string, error) {
	if strings.TrimSpace(cvURL) == "" {
		return "", nil
	}
	p, err := ResolveCV(uploadsDir, cvURL)
	if err != nil {
		return "", err
	}
	text, err := e.extractFile(p, maxChars)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	text = utils.CollapseSpace(text)
	if maxChars > 0 {
		if r := []rune(text); len(r) > maxChars {
			text = strings.TrimSpace(string(r[:maxChars]))
		}
	}
	return text, nil
}
