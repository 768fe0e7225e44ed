package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

var (
	// ErrIdentifierTaken is returned by Store.Upsert when the identifier of a
	// new record is already used by another record.
	ErrIdentifierTaken = errors.New("asset identifier already taken")

	// ErrIdentifierConflict means an incoming code would replace the
	// identifier already assigned to a record.
	ErrIdentifierConflict = errors.New("asset identifier is immutable")
)

// IdentifierField is the canonical field that holds an asset identifier.
const IdentifierField = "code"

const (
	identifierSeqWidth = 3
	genericCode        = "GEN"
)

// categoryCodes maps category words to their 3-letter code.
var categoryCodes = map[string]string{
	"computador":     "PC",
	"computadora":    "PC",
	"desktop":        "PC",
	"pc":             "PC",
	"escritorio":     "PC",
	"todo en uno":    "PC",
	"portatil":       "LAP",
	"laptop":         "LAP",
	"notebook":       "LAP",
	"monitor":        "MON",
	"pantalla":       "MON",
	"impresora":      "IMP",
	"printer":        "IMP",
	"multifuncional": "IMP",
	"telefono":       "TEL",
	"celular":        "TEL",
	"smartphone":     "TEL",
	"servidor":       "SRV",
	"server":         "SRV",
	"tablet":         "TAB",
	"tableta":        "TAB",
	"router":         "RED",
	"switch":         "RED",
	"access point":   "RED",
	"escaner":        "ESC",
	"scanner":        "ESC",
	"ups":            "UPS",
	"silla":          "MUE",
	"mueble":         "MUE",
	"biomedico":      "BIO",
	"biomedica":      "BIO",
}

// siteNoise are words that carry no site identity.
var siteNoise = map[string]bool{
	"sede": true, "sucursal": true, "oficina": true, "site": true,
	"branch": true, "planta": true, "de": true, "del": true,
	"la": true, "el": true, "los": true, "las": true,
}

// FormatIdentifier renders {SITE}-{CATEGORY}-{SEQ}, SEQ padded to three digits.
func FormatIdentifier(site, category string, seq int) string {
	return fmt.Sprintf("%s-%0*d", IdentifierPrefix(site, category), identifierSeqWidth, seq)
}

// IdentifierPrefix returns "{SITE}-{CATEGORY}".
func IdentifierPrefix(site, category string) string {
	return site + "-" + category
}

// ParseSequence extracts SEQ from an identifier with the given prefix.
func ParseSequence(id, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(id, prefix+"-")
	if !ok || rest == "" || !isAllDigits(rest) {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

// MaxSequence returns the highest SEQ among ids carrying prefix, or 0.
func MaxSequence(ids []string, prefix string) int {
	highest := 0
	for _, id := range ids {
		if n, ok := ParseSequence(id, prefix); ok && n > highest {
			highest = n
		}
	}
	return highest
}

// SiteCode derives a 3-character site code from a site name by dropping
// generic words: "Sede Norte" -> "NOR", "Bogotá" -> "BOG".
func SiteCode(site string) string {
	words := strings.Fields(NormalizeLabel(site))
	var b strings.Builder
	for _, w := range words {
		if siteNoise[w] {
			continue
		}
		b.WriteString(w)
	}
	code := b.String()
	if code == "" {
		// Only noise words: fall back to the full name.
		code = strings.Join(words, "")
	}
	return shortCode(code)
}

// CategoryCode looks the category up in the fixed table, matching the whole
// name first and then each word. Unknown categories use their first three
// letters.
func CategoryCode(category string) string {
	label := NormalizeLabel(category)
	if label == "" {
		return genericCode
	}
	if code, ok := categoryCodes[label]; ok {
		return code
	}
	for _, w := range strings.Fields(label) {
		if code, ok := categoryCodes[w]; ok {
			return code
		}
	}
	return shortCode(strings.ReplaceAll(label, " ", ""))
}

func shortCode(s string) string {
	var out []rune
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out = append(out, unicode.ToUpper(r))
			if len(out) == 3 {
				break
			}
		}
	}
	if len(out) == 0 {
		return genericCode
	}
	return string(out)
}
