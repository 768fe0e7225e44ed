package core

import (
	"testing"
	"time"
)

// ----------------------------------------------------------------------------
// NormalizeNumber Tests
// ----------------------------------------------------------------------------

func TestNormalizeNumber(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		// Plain numbers
		{name: "positive integer", input: "123", want: "123"},
		{name: "negative integer", input: "-456", want: "-456"},
		{name: "decimal number", input: "123.45", want: "123.45"},
		{name: "leading decimal point", input: ".99", want: ".99"},
		{name: "scientific notation", input: "1.5e3", want: "1.5e3"},

		// Currency and separators
		{name: "dollar with thousands", input: "$1,234.56", want: "1234.56"},
		{name: "euro sign", input: "€1234.56", want: "1234.56"},
		{name: "european separators", input: "1.234,56", want: "1234.56"},
		{name: "decimal comma", input: "12,5", want: "12.5"},
		{name: "thousands comma only", input: "1,234", want: "1234"},
		{name: "space thousands", input: "1 234", want: "1234"},

		// Accounting negatives
		{name: "parentheses negative", input: "(100)", want: "-100"},
		{name: "parentheses with currency", input: "($1,000.50)", want: "-1000.50"},

		// Invalid
		{name: "empty", input: "", want: ""},
		{name: "whitespace", input: "   ", want: ""},
		{name: "text", input: "abc", want: ""},
		{name: "mixed", input: "12abc", want: ""},
		{name: "serial-like", input: "5CD1234XYZ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeNumber(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeNumber(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeNumber_Idempotent(t *testing.T) {
	for _, in := range []string{"$1,234.56", "1.234,56", "(100)", "12,5", "7"} {
		once := NormalizeNumber(in)
		if twice := NormalizeNumber(once); twice != once {
			t.Errorf("NormalizeNumber not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

// ----------------------------------------------------------------------------
// NormalizeDate Tests
// ----------------------------------------------------------------------------

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		// ISO formats
		{name: "ISO date", input: "2024-03-15", want: "2024-03-15"},
		{name: "ISO with slashes", input: "2024/03/15", want: "2024-03-15"},
		{name: "ISO datetime", input: "2024-03-15 10:30:00", want: "2024-03-15"},
		{name: "compact", input: "20240315", want: "2024-03-15"},

		// Day-first slash dates
		{name: "day first", input: "15/03/2024", want: "2024-03-15"},
		{name: "ambiguous day first", input: "01/02/2024", want: "2024-02-01"},
		{name: "single digits", input: "5/3/2024", want: "2024-03-05"},
		{name: "dashes", input: "15-03-2024", want: "2024-03-15"},
		{name: "dots", input: "15.03.2024", want: "2024-03-15"},

		// Month names
		{name: "month name", input: "Mar 15, 2024", want: "2024-03-15"},
		{name: "day month name", input: "15 Mar 2024", want: "2024-03-15"},

		// Invalid
		{name: "empty", input: "", want: ""},
		{name: "text", input: "pending", want: ""},
		{name: "impossible date", input: "32/01/2024", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeDate(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeDate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeDate_MonthFirst(t *testing.T) {
	// Save original and restore after test
	original := DayFirst
	defer func() { DayFirst = original }()

	DayFirst = false
	if got := NormalizeDate("01/02/2024"); got != "2024-01-02" {
		t.Errorf("NormalizeDate(01/02/2024) month-first = %q, want %q", got, "2024-01-02")
	}
}

func TestNormalizeDate_TwoDigitYear(t *testing.T) {
	// Save original and restore after test
	originalPivot := TwoDigitYearPivot
	defer func() { TwoDigitYearPivot = originalPivot }()

	TwoDigitYearPivot = 20
	pivotYear := time.Now().Year() + 20

	tests := []struct {
		name     string
		input    string
		wantYear int
	}{
		{name: "2-digit year 25 as 2025", input: "15/01/25", wantYear: 2025},
		{name: "2-digit year 99 as 1999", input: "15/01/99", wantYear: 1999},
		{name: "2-digit year 85 as 1985", input: "15/01/85", wantYear: 1985},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeDate(tt.input)
			if got == "" {
				t.Fatalf("NormalizeDate(%q) returned empty", tt.input)
			}
			parsed, err := time.Parse("2006-01-02", got)
			if err != nil {
				t.Fatalf("result %q is not ISO: %v", got, err)
			}
			if parsed.Year() != tt.wantYear {
				t.Errorf("NormalizeDate(%q) year = %d, want %d", tt.input, parsed.Year(), tt.wantYear)
			}
			if parsed.Year() > pivotYear {
				t.Errorf("year %d is beyond pivot %d", parsed.Year(), pivotYear)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// NormalizeBool Tests
// ----------------------------------------------------------------------------

func TestNormalizeBool(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"true", "true"},
		{"TRUE", "true"},
		{"yes", "true"},
		{"Sí", "true"},
		{"si", "true"},
		{"x", "true"},
		{"1", "true"},
		{"false", "false"},
		{"No", "false"},
		{"0", "false"},
		{"", ""},
		{"maybe", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeBool(tt.input); got != tt.want {
				t.Errorf("NormalizeBool(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// CellString / CleanCell Tests
// ----------------------------------------------------------------------------

func TestCellString(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{name: "nil", input: nil, want: ""},
		{name: "string trimmed", input: "  Dell  ", want: "Dell"},
		{name: "integral float", input: float64(16), want: "16"},
		{name: "fractional float", input: 2.5, want: "2.5"},
		{name: "int", input: 42, want: "42"},
		{name: "bool", input: true, want: "true"},
		{name: "date", input: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), want: "2024-03-15"},
		{name: "zero time", input: time.Time{}, want: ""},
		{name: "bytes", input: []byte(" abc "), want: "abc"},
		{name: "int32", input: int32(5), want: "5"},
		{name: "int8 negative", input: int8(-3), want: "-3"},
		{name: "uint", input: uint(7), want: "7"},
		{name: "uint64", input: uint64(18446744073709551615), want: "18446744073709551615"},
		{name: "other value formatted", input: struct{ N int }{4}, want: "{4}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CellString(tt.input); got != tt.want {
				t.Errorf("CellString(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		// Basic cleaning
		{name: "simple string unchanged", input: "hello", want: "hello"},
		{name: "empty string", input: "", want: ""},
		{name: "surrounded by whitespace", input: "  hello  ", want: "hello"},
		{name: "non-breaking spaces", input: " hello ", want: "hello"},

		// Excel formula prefix handling
		{name: "Excel formula with quotes", input: `="hello"`, want: "hello"},
		{name: "Excel formula number as text", input: `="00123"`, want: "00123"},
		{name: "bare equals sign", input: "=SUM(A1)", want: "SUM(A1)"},

		// Quote handling
		{name: "double quoted", input: `"hello"`, want: "hello"},
		{name: "single quoted", input: `'hello'`, want: "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanCell(tt.input); got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsEmptyRow(t *testing.T) {
	if !isEmptyRow([]any{nil, "", "  ", " "}) {
		t.Error("row of blanks should be empty")
	}
	if isEmptyRow([]any{nil, float64(0)}) {
		t.Error("row with a zero should not be empty")
	}
}
