package core

import (
	"fmt"
	"strconv"
)

// DefaultHeaderScanRows is how many leading rows are scored when looking
// for the header row.
const DefaultHeaderScanRows = 25

// isTextLike reports whether a cell counts toward a header score: a
// non-empty string that is neither a number nor a date.
func isTextLike(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	s = CleanCell(s)
	if s == "" {
		return false
	}
	return !IsNumeric(s) && NormalizeDate(s) == ""
}

func headerScore(row []any) int {
	n := 0
	for _, v := range row {
		if isTextLike(v) {
			n++
		}
	}
	return n
}

// DetectHeaderRow scores the first scan rows and returns the 0-based index
// of the row with the most text-like cells, and its score. Ties go to the
// earliest row. Returns -1 when no row scores above zero.
func DetectHeaderRow(rows [][]any, scan int) (int, int) {
	if scan <= 0 {
		scan = DefaultHeaderScanRows
	}
	if len(rows) < scan {
		scan = len(rows)
	}

	best, bestScore := -1, 0
	for i := 0; i < scan; i++ {
		if score := headerScore(rows[i]); score > bestScore {
			best, bestScore = i, score
		}
	}
	return best, bestScore
}

// column is one kept source column during normalization.
type column struct {
	index int
	label string
}

// NormalizeTable detects the header row of raw and returns the labelled
// table. When no header can be found it returns an empty table and a
// warning; it never fails.
func NormalizeTable(raw RawTable, scan int) (NormalizedTable, []string) {
	out := NormalizedTable{Source: raw.Source, Sheet: raw.Sheet, Section: raw.Section}

	headerIdx, _ := DetectHeaderRow(raw.Rows, scan)
	if headerIdx < 0 {
		recordHeaderDetect("none")
		return out, []string{fmt.Sprintf("%s: no header row found in the first %d rows", out.SourceID(), scanLimit(scan))}
	}
	recordHeaderDetect("found")
	out.HeaderRow = raw.RowOffset + headerIdx + 1

	header := raw.Rows[headerIdx]
	var data [][]any
	var dataIdx []int
	for i := headerIdx + 1; i < len(raw.Rows); i++ {
		if isEmptyRow(raw.Rows[i]) {
			continue
		}
		data = append(data, raw.Rows[i])
		dataIdx = append(dataIdx, raw.RowOffset+i+1)
	}

	width := len(header)
	for _, r := range data {
		if len(r) > width {
			width = len(r)
		}
	}

	cols := labelColumns(header, data, width)
	cols = dropIndexColumns(cols, data)

	out.Labels = make([]string, len(cols))
	for i, c := range cols {
		out.Labels[i] = c.label
	}

	out.Rows = make([]Row, len(data))
	for i, r := range data {
		values := make(map[string]string, len(cols))
		for _, c := range cols {
			values[c.label] = cellAt(r, c.index)
		}
		out.Rows[i] = Row{Index: dataIdx[i], Values: values}
	}

	return out, nil
}

func scanLimit(scan int) int {
	if scan <= 0 {
		return DefaultHeaderScanRows
	}
	return scan
}

func cellAt(row []any, i int) string {
	if i >= len(row) {
		return ""
	}
	return CellString(row[i])
}

// labelColumns normalizes header cells into unique labels. Unlabelled
// columns holding data become column_<n>; unlabelled empty columns are dropped.
func labelColumns(header []any, data [][]any, width int) []column {
	seen := make(map[string]bool)
	var cols []column

	for i := 0; i < width; i++ {
		label := ""
		if i < len(header) {
			label = NormalizeLabel(CellString(header[i]))
		}
		if label == "" {
			if !columnHasData(data, i) {
				continue
			}
			label = "column_" + strconv.Itoa(i+1)
		}
		label = uniqueLabel(label, seen)
		seen[label] = true
		cols = append(cols, column{index: i, label: label})
	}
	return cols
}

func uniqueLabel(label string, seen map[string]bool) string {
	if !seen[label] {
		return label
	}
	for n := 2; ; n++ {
		candidate := label + "_" + strconv.Itoa(n)
		if !seen[candidate] {
			return candidate
		}
	}
}

func columnHasData(data [][]any, i int) bool {
	for _, r := range data {
		if cellAt(r, i) != "" {
			return true
		}
	}
	return false
}

// dropIndexColumns removes leading columns whose values are a running row
// number (1, 2, 3, ... or 0, 1, 2, ...). At least two data rows are needed
// to tell an index from data.
func dropIndexColumns(cols []column, data [][]any) []column {
	if len(data) < 2 {
		return cols
	}
	for len(cols) > 1 && isIndexColumn(data, cols[0].index) {
		cols = cols[1:]
	}
	return cols
}

func isIndexColumn(data [][]any, i int) bool {
	prev := -1
	for n, r := range data {
		v := cellAt(r, i)
		if v == "" || !isAllDigits(v) {
			return false
		}
		num, err := strconv.Atoi(v)
		if err != nil {
			return false
		}
		if n == 0 {
			if num > 1 {
				return false
			}
		} else if num != prev+1 {
			return false
		}
		prev = num
	}
	return true
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
