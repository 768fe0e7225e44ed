package core

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText returns file bytes as UTF-8. The BOM is stripped; bytes that
// are not valid UTF-8 are decoded as Windows-1252, which is what legacy
// Windows exports use.
func decodeText(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, nil
	}
	out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// foldAccents removes diacritics: "Número" -> "Numero".
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeLabel turns a raw header cell into a column label: BOM and
// accents stripped, non-alphanumeric runs collapsed to one space,
// lowercased and trimmed. "  Número de\tChasis: " -> "numero de chasis".
func NormalizeLabel(raw string) string {
	s := strings.ReplaceAll(raw, "\uFEFF", "")
	s = foldAccents(s)

	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		pendingSpace = true
	}
	return b.String()
}
