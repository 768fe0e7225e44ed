package core

// convert.go turns messy spreadsheet cells into clean canonical strings.
//
// These functions handle the reality of exported inventories:
//   - Cells typed by the spreadsheet (numbers, booleans, dates) or plain text
//   - Multiple date formats (day-first, month-first, ISO)
//   - Currency symbols and thousand separators in numbers
//   - Excel formula prefixes (="value")
//
// Every Normalize* function returns "" for empty or invalid input and is
// idempotent on its own output.

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// DayFirst selects DD/MM/YYYY over MM/DD/YYYY for ambiguous slash dates.
var DayFirst = true

var (
	dayFirstLayouts = []string{
		"2/1/2006", "02/01/2006", "2-1-2006", "02-01-2006", "2.1.2006", "02.01.2006",
	}
	monthFirstLayouts = []string{
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
	}
	isoLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"2006-01-02 15:04:05", "2006-01-02T15:04:05Z07:00",
		"Jan 2, 2006", "2 Jan 2006", "02-Jan-2006",
		"20060102",
	}
	twoDigitDayFirst   = []string{"2/1/06", "02/01/06", "2-1-06", "2.1.06", "02.01.06"}
	twoDigitMonthFirst = []string{"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06"}
)

// CellString converts a cell value to its text form. Floats print without
// trailing zeros, times print as ISO dates, other values use their default
// format so nothing is dropped.
func CellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return CleanCell(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int8:
		return strconv.FormatInt(int64(t), 10)
	case int16:
		return strconv.FormatInt(int64(t), 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint8:
		return strconv.FormatUint(uint64(t), 10)
	case uint16:
		return strconv.FormatUint(uint64(t), 10)
	case uint32:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		if t.IsZero() {
			return ""
		}
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format(time.RFC3339)
	case []byte:
		return CleanCell(string(t))
	case fmt.Stringer:
		return CleanCell(t.String())
	default:
		return CleanCell(fmt.Sprint(t))
	}
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace (including non-breaking spaces)
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, " ", " "))

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)

	return strings.TrimSpace(s)
}

// IsNumeric reports whether s is a plain number once separators and
// currency symbols are removed.
func IsNumeric(s string) bool {
	return NormalizeNumber(s) != ""
}

// NormalizeNumber strips currency symbols, thousands separators and
// accounting parentheses. Returns "" if the result is not numeric.
func NormalizeNumber(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, "£", "")
	s = strings.ReplaceAll(s, " ", "")
	s = normalizeSeparators(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return ""
	}
	return s
}

// normalizeSeparators resolves "1.234,56" and "1,234.56" to "1234.56".
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0 && lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastComma >= 0 && lastDot < 0 && strings.Count(s, ",") == 1 && len(s)-lastComma-1 != 3:
		// "12,5" is a decimal comma; "1,234" is a thousands separator.
		s = strings.Replace(s, ",", ".", 1)
	default:
		s = strings.ReplaceAll(s, ",", "")
	}
	return s
}

// NormalizeDate parses the many date layouts found in exports and returns
// an ISO date (YYYY-MM-DD), or "" if no layout matches.
func NormalizeDate(s string) string {
	t, ok := parseDate(s)
	if !ok {
		return ""
	}
	return t.Format("2006-01-02")
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	fourDigit := append(append([]string{}, isoLayouts...), monthFirstLayouts...)
	twoDigit := twoDigitMonthFirst
	if DayFirst {
		fourDigit = append(append([]string{}, isoLayouts...), dayFirstLayouts...)
		twoDigit = twoDigitDayFirst
	}

	for _, layout := range fourDigit {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigit {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// NormalizeBool accepts true/false, yes/no, si/no, t/f, y/n, 1/0 and
// returns "true", "false" or "".
func NormalizeBool(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1", "si", "sí", "s", "x":
		return "true"
	case "false", "f", "no", "n", "0":
		return "false"
	default:
		return ""
	}
}

// isEmptyRow reports whether every cell in the row is blank.
func isEmptyRow(row []any) bool {
	for _, v := range row {
		if CellString(v) != "" {
			return false
		}
	}
	return true
}
