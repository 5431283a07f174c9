package extract

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	byteOrderMarks = [][]byte{{0xEF, 0xBB, 0xBF}, {0xFF, 0xFE}, {0xFE, 0xFF}}
	lineEnds       = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// extractPlain decodes a text CV. A byte order mark selects UTF-8 or UTF-16,
// as Notepad writes them. Without one, text that is not valid UTF-8 is read
// as Windows-1252, the default for plain text saved from Word on Windows.
// Line ends become "\n".
func extractPlain(content []byte) (string, error) {
	fallback := unicode.UTF8.NewDecoder().Transformer
	if !hasByteOrderMark(content) && !utf8.Valid(content) {
		fallback = charmap.Windows1252.NewDecoder().Transformer
	}
	decoded, _, err := transform.Bytes(unicode.BOMOverride(fallback), content)
	if err != nil {
		return "", fmt.Errorf("decode text: %w", err)
	}
	return lineEnds.Replace(string(decoded)), nil
}

func hasByteOrderMark(content []byte) bool {
	for _, bom := range byteOrderMarks {
		if bytes.HasPrefix(content, bom) {
			return true
		}
	}
	return false
}
