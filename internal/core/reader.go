package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFile is returned for file types the engine cannot read.
var ErrUnsupportedFile = errors.New("unsupported file type")

// Delimiters tried by sniffDelimiter, in tie-break order.
var csvDelimiters = []rune{',', ';', '\t', '|'}

// sniffLines is the number of non-blank lines inspected when guessing a delimiter.
const sniffLines = 10

// ReadFile parses one uploaded file into raw tables, one per sheet.
// CSV-like files yield a single table with an empty sheet name.
func ReadFile(name string, data []byte) ([]RawTable, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: file is empty", name)
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".tsv", ".txt":
		return readDelimited(name, data)
	case ".xlsx", ".xlsm":
		return readWorkbook(name, data)
	default:
		return nil, fmt.Errorf("%s: %w", name, ErrUnsupportedFile)
	}
}

func readDelimited(name string, data []byte) ([]RawTable, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, fmt.Errorf("%s: decode: %w", name, err)
	}

	records, err := parseCSV(text, sniffDelimiter(text))
	if err != nil {
		return nil, fmt.Errorf("%s: parse: %w", name, err)
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(rec))
		for j, cell := range rec {
			row[j] = cell
		}
		rows[i] = row
	}
	return []RawTable{{Source: name, Rows: rows}}, nil
}

func parseCSV(data []byte, delim rune) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

// sniffDelimiter picks the candidate that splits the first lines into the
// most consistent number of fields (more than one). Falls back to comma.
func sniffDelimiter(data []byte) rune {
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == sniffLines {
			break
		}
	}
	if len(lines) == 0 {
		return ','
	}

	best, bestScore := ',', 0
	for _, d := range csvDelimiters {
		counts := make(map[int]int)
		for _, line := range lines {
			n := strings.Count(line, string(d))
			if n > 0 {
				counts[n]++
			}
		}
		// Score: lines sharing the most common non-zero count.
		score := 0
		for _, c := range counts {
			if c > score {
				score = c
			}
		}
		if score > bestScore {
			best, bestScore = d, score
		}
	}
	return best
}

func readWorkbook(name string, data []byte) ([]RawTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: open workbook: %w", name, err)
	}
	defer f.Close()

	var tables []RawTable
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("%s#%s: read rows: %w", name, sheet, err)
		}
		if merges, err := f.GetMergeCells(sheet); err == nil {
			rows = expandMerged(rows, merges)
		}

		raw := make([][]any, len(rows))
		for i, r := range rows {
			row := make([]any, len(r))
			for j, cell := range r {
				row[j] = cell
			}
			raw[i] = row
		}
		tables = append(tables, RawTable{Source: name, Sheet: sheet, Rows: raw})
	}
	return tables, nil
}

// expandMerged copies the value of each merged range's top-left cell into
// every cell of the range, growing rows as needed.
func expandMerged(rows [][]string, merges []excelize.MergeCell) [][]string {
	for _, mg := range merges {
		sc, sr, err := excelize.CellNameToCoordinates(mg.GetStartAxis())
		if err != nil {
			continue
		}
		ec, er, err := excelize.CellNameToCoordinates(mg.GetEndAxis())
		if err != nil {
			continue
		}
		value := mg.GetCellValue()
		if value == "" {
			continue
		}
		for r := sr - 1; r <= er-1; r++ {
			for len(rows) <= r {
				rows = append(rows, nil)
			}
			for len(rows[r]) < ec {
				rows[r] = append(rows[r], "")
			}
			for c := sc - 1; c <= ec-1; c++ {
				rows[r][c] = value
			}
		}
	}
	return rows
}
