package entities

import (
	"strings"
	"unicode"

	"github.com/JonMunkholm/tabingest/internal/core"
)

// Normalizers keep the raw value when it cannot be cleaned so nothing is
// lost on the way to the store.

// NormalizeSerial uppercases and removes whitespace: "ab 12-c" -> "AB12-C".
func NormalizeSerial(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, s)
}

// NormalizeEmail lowercases and trims.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeCedula keeps digits only: "C.C. 1.020.304" -> "1020304".
// A trailing ".0" left by numeric spreadsheet cells is dropped first.
func NormalizeCedula(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".0")
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if digits == "" {
		return s
	}
	return digits
}

// NormalizeDate returns an ISO date, or the trimmed input if unparseable.
func NormalizeDate(s string) string {
	if d := core.NormalizeDate(s); d != "" {
		return d
	}
	return strings.TrimSpace(s)
}

// NormalizeNumber strips currency and separators, or returns the trimmed
// input if it is not numeric.
func NormalizeNumber(s string) string {
	if n := core.NormalizeNumber(s); n != "" {
		return n
	}
	return strings.TrimSpace(s)
}

// NormalizeText collapses internal whitespace.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func text(name string) core.FieldSpec {
	return core.FieldSpec{Name: name, Normalizer: NormalizeText}
}
