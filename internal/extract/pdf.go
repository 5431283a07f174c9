package extract

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/hyperjump/wantokmatch/pkg/utils"
)

// extractPDF returns the text layer of each page, one page per line. With
// maxChars > 0 no further page is decoded once that many characters are
// collected. Pages without a text layer, such as scans, are skipped.
func extractPDF(content []byte, maxChars int) (text string, err error) {
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("open PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}

	var b strings.Builder
	collected := 0
	for i := 1; i <= r.NumPage(); i++ {
		if maxChars > 0 && collected >= maxChars {
			break
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		// Font names are page resources, so nothing is shared across pages.
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		pageText = utils.CollapseSpace(pageText)
		if pageText == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
			collected++
		}
		b.WriteString(pageText)
		collected += utf8.RuneCountInString(pageText)
	}
	return b.String(), nil
}
