package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
)

const (
	defaultDocumentPart = "word/document.xml"
	contentTypesPart    = "[Content_Types].xml"

	headerContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.header+xml"
	footerContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.footer+xml"
)

// Main document content types for .docx, .docm and .dotx.
var mainContentTypes = map[string]bool{
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml": true,
	"application/vnd.ms-word.document.macroEnabled.main+xml":                           true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.template.main+xml": true,
}

// wordParts names the parts of a Word package that carry CV text.
type wordParts struct {
	main    string
	headers []string
	footers []string
}

type contentTypes struct {
	Overrides []struct {
		PartName    string `xml:"PartName,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Override"`
}

// findWordParts reads [Content_Types].xml. Packages without one fall back
// to the conventional part names.
func findWordParts(files map[string]*zip.File) wordParts {
	var parts wordParts
	if f, ok := files[contentTypesPart]; ok {
		if data, err := readZipFile(f); err == nil {
			var ct contentTypes
			if xml.Unmarshal(data, &ct) == nil {
				for _, o := range ct.Overrides {
					name := strings.TrimPrefix(o.PartName, "/")
					switch {
					case mainContentTypes[o.ContentType]:
						parts.main = name
					case o.ContentType == headerContentType:
						parts.headers = append(parts.headers, name)
					case o.ContentType == footerContentType:
						parts.footers = append(parts.footers, name)
					}
				}
			}
		}
	}
	if parts.main == "" {
		parts.main = defaultDocumentPart
	}
	if len(parts.headers) == 0 && len(parts.footers) == 0 {
		for name := range files {
			base := path.Base(name)
			if path.Dir(name) != "word" || path.Ext(base) != ".xml" {
				continue
			}
			switch {
			case strings.HasPrefix(base, "header"):
				parts.headers = append(parts.headers, name)
			case strings.HasPrefix(base, "footer"):
				parts.footers = append(parts.footers, name)
			}
		}
	}
	sort.Strings(parts.headers)
	sort.Strings(parts.footers)
	return parts
}

// extractDOCX returns header, body and footer text in that order. CV
// templates often keep contact details in the header and skills in tables,
// so table rows come out as "cell | cell" lines. A header or footer whose
// text repeats an earlier one (first-page and default variants) is kept once.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}
	parts := findWordParts(files)

	mainFile, ok := files[parts.main]
	if !ok {
		return "", fmt.Errorf("extract DOCX: %s not found", parts.main)
	}

	var sections []string
	seen := make(map[string]bool)
	add := func(name string, f *zip.File) error {
		text, err := wordPartText(f)
		if err != nil {
			return fmt.Errorf("extract DOCX: %s: %w", name, err)
		}
		if text != "" && !seen[text] {
			seen[text] = true
			sections = append(sections, text)
		}
		return nil
	}
	for _, name := range parts.headers {
		if f, ok := files[name]; ok {
			if err := add(name, f); err != nil {
				return "", err
			}
		}
	}
	if err := add(parts.main, mainFile); err != nil {
		return "", err
	}
	for _, name := range parts.footers {
		if f, ok := files[name]; ok {
			if err := add(name, f); err != nil {
				return "", err
			}
		}
	}
	return strings.Join(sections, "\n"), nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// wordPartText walks one WordprocessingML part. Element names are matched
// without namespace so DrawingML text boxes and strict OOXML read the same.
func wordPartText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var w wordText
	d := xml.NewDecoder(rc)
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "Fallback" {
				// Markup-compatibility fallbacks repeat the Choice content.
				if err := d.Skip(); err != nil {
					return "", err
				}
				continue
			}
			w.start(t.Name.Local)
		case xml.EndElement:
			w.end(t.Name.Local)
		case xml.CharData:
			if w.inText {
				w.para.Write(t)
			}
		}
	}
	return strings.TrimSpace(w.out.String()), nil
}

// wordText accumulates paragraphs, and table rows as "cell | cell" lines.
type wordText struct {
	out    strings.Builder
	para   strings.Builder
	inText bool
	runs   int
	rows   [][]string
	cells  []*strings.Builder
}

func (w *wordText) start(local string) {
	switch local {
	case "t":
		w.inText = true
	case "r":
		w.runs++
	case "tab":
		// Outside a run this is a tab stop definition.
		if w.runs > 0 {
			w.para.WriteByte(' ')
		}
	case "br", "cr":
		if w.runs > 0 {
			w.para.WriteByte(' ')
		}
	case "tr":
		w.rows = append(w.rows, nil)
	case "tc":
		w.cells = append(w.cells, &strings.Builder{})
	}
}

func (w *wordText) end(local string) {
	switch local {
	case "t":
		w.inText = false
	case "r":
		if w.runs > 0 {
			w.runs--
		}
	case "p":
		text := strings.TrimSpace(w.para.String())
		w.para.Reset()
		w.emit(text)
	case "tc":
		if n := len(w.cells); n > 0 {
			cell := strings.TrimSpace(w.cells[n-1].String())
			w.cells = w.cells[:n-1]
			if r := len(w.rows); r > 0 && cell != "" {
				w.rows[r-1] = append(w.rows[r-1], cell)
			}
		}
	case "tr":
		if n := len(w.rows); n > 0 {
			row := w.rows[n-1]
			w.rows = w.rows[:n-1]
			w.emit(strings.Join(row, " | "))
		}
	}
}

// emit writes a finished paragraph or row to the innermost open table cell,
// or to the output.
func (w *wordText) emit(text string) {
	if text == "" {
		return
	}
	if n := len(w.cells); n > 0 {
		cell := w.cells[n-1]
		if cell.Len() > 0 {
			cell.WriteByte(' ')
		}
		cell.WriteString(text)
		return
	}
	w.out.WriteString(text)
	w.out.WriteByte('\n')
}
