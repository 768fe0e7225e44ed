package core

// SplitSections breaks a multi-block sheet into one RawTable per block.
//
// A section-label row has exactly one text-like cell and is followed by a
// row with at least two filled cells (the block's header). Rows before the
// first section label form an unnamed block. Blocks without any rows after
// their label are dropped.
func SplitSections(raw RawTable) []RawTable {
	var starts []int
	for i := range raw.Rows {
		if isSectionLabel(raw.Rows, i) {
			starts = append(starts, i)
		}
	}
	if len(starts) == 0 {
		return []RawTable{raw}
	}

	var out []RawTable
	if lead := raw.Rows[:starts[0]]; !allEmpty(lead) {
		out = append(out, RawTable{
			Source:    raw.Source,
			Sheet:     raw.Sheet,
			RowOffset: raw.RowOffset,
			Rows:      lead,
		})
	}

	for n, start := range starts {
		end := len(raw.Rows)
		if n+1 < len(starts) {
			end = starts[n+1]
		}
		body := raw.Rows[start+1 : end]
		if allEmpty(body) {
			continue
		}
		out = append(out, RawTable{
			Source:    raw.Source,
			Sheet:     raw.Sheet,
			Section:   sectionName(raw.Rows[start]),
			RowOffset: raw.RowOffset + start + 1,
			Rows:      body,
		})
	}
	return out
}

func isSectionLabel(rows [][]any, i int) bool {
	filled, text := 0, 0
	for _, v := range rows[i] {
		if CellString(v) != "" {
			filled++
		}
		if isTextLike(v) {
			text++
		}
	}
	if filled != 1 || text != 1 {
		return false
	}
	for j := i + 1; j < len(rows); j++ {
		if isEmptyRow(rows[j]) {
			continue
		}
		return filledCount(rows[j]) >= 2
	}
	return false
}

func filledCount(row []any) int {
	n := 0
	for _, v := range row {
		if CellString(v) != "" {
			n++
		}
	}
	return n
}

func allEmpty(rows [][]any) bool {
	for _, r := range rows {
		if !isEmptyRow(r) {
			return false
		}
	}
	return true
}

func sectionName(row []any) string {
	for _, v := range row {
		if s := CellString(v); s != "" {
			return NormalizeLabel(s)
		}
	}
	return ""
}
