package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowsOf(lines ...[]any) [][]any {
	return lines
}

func TestDetectHeaderRow(t *testing.T) {
	t.Run("skips title and blank rows", func(t *testing.T) {
		rows := rowsOf(
			[]any{"Inventario 2024"},
			[]any{},
			[]any{"Serial", "Marca", "Modelo", "Fecha Compra"},
			[]any{"ABC123", "Dell", "Latitude", "15/03/2024"},
		)
		idx, score := DetectHeaderRow(rows, 25)
		assert.Equal(t, 2, idx)
		assert.Equal(t, 4, score)
	})

	t.Run("ties go to the earliest row", func(t *testing.T) {
		rows := rowsOf(
			[]any{"Serial", "Marca"},
			[]any{"ABC123", "Dell"},
		)
		idx, _ := DetectHeaderRow(rows, 25)
		assert.Equal(t, 0, idx)
	})

	t.Run("numbers and dates do not count", func(t *testing.T) {
		rows := rowsOf(
			[]any{float64(1), "2024-01-01", "1.234,56", time.Now()},
		)
		idx, score := DetectHeaderRow(rows, 25)
		assert.Equal(t, -1, idx)
		assert.Equal(t, 0, score)
	})

	t.Run("only scans the first rows", func(t *testing.T) {
		rows := rowsOf(
			[]any{"1"},
			[]any{"2"},
			[]any{"Serial", "Marca"},
		)
		idx, _ := DetectHeaderRow(rows, 2)
		assert.Equal(t, -1, idx)
	})
}

func TestNormalizeTable(t *testing.T) {
	raw := RawTable{
		Source: "equipos.xlsx",
		Sheet:  "Hoja1",
		Rows: rowsOf(
			[]any{"Reporte de equipos"},
			[]any{"#", "Serial o Mac", "Marca", "", "Marca"},
			[]any{"1", "ABC123", "Dell", "x", "Latitude"},
			[]any{},
			[]any{"2", "DEF456", "HP"},
			[]any{"3", "GHI789", "Lenovo", "", "", "extra"},
		),
	}

	table, warnings := NormalizeTable(raw, 25)
	require.Empty(t, warnings)

	assert.Equal(t, 2, table.HeaderRow)
	assert.Equal(t, []string{"serial o mac", "marca", "column_4", "marca_2", "column_6"}, table.Labels)
	require.Len(t, table.Rows, 3)

	assert.Equal(t, 3, table.Rows[0].Index)
	assert.Equal(t, 5, table.Rows[1].Index, "blank rows are skipped but indexes stay source positions")
	assert.Equal(t, "ABC123", table.Rows[0].Values["serial o mac"])
	assert.Equal(t, "Latitude", table.Rows[0].Values["marca_2"])
	assert.Equal(t, "extra", table.Rows[2].Values["column_6"])

	for _, r := range table.Rows {
		assert.Len(t, r.Values, len(table.Labels), "every row carries every label")
	}
	assert.Equal(t, "equipos.xlsx#Hoja1", table.SourceID())
}

func TestNormalizeTable_KeepsTypedIntegerCells(t *testing.T) {
	raw := RawTable{Source: "api", Rows: rowsOf(
		[]any{"Serial", "Cantidad", "Precio"},
		[]any{"S1", int32(5), uint(7)},
		[]any{"S2", int8(1), uint64(900)},
	)}

	table, warnings := NormalizeTable(raw, 25)
	require.Empty(t, warnings)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, map[string]string{"serial": "S1", "cantidad": "5", "precio": "7"}, table.Rows[0].Values)
	assert.Equal(t, map[string]string{"serial": "S2", "cantidad": "1", "precio": "900"}, table.Rows[1].Values)
}

func TestNormalizeTable_NoHeader(t *testing.T) {
	raw := RawTable{Source: "n.csv", Rows: rowsOf([]any{"1", "2"}, []any{"3", "4"})}

	table, warnings := NormalizeTable(raw, 25)
	assert.Empty(t, table.Labels)
	assert.Empty(t, table.Rows)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "no header row")
}

func TestNormalizeTable_IndexColumns(t *testing.T) {
	tests := []struct {
		name   string
		rows   [][]any
		labels []string
	}{
		{
			name: "leading running number dropped",
			rows: rowsOf(
				[]any{"No", "Serial", "Marca"},
				[]any{"1", "A1", "Dell"},
				[]any{"2", "A2", "HP"},
			),
			labels: []string{"serial", "marca"},
		},
		{
			name: "zero based",
			rows: rowsOf(
				[]any{"", "Serial", "Marca"},
				[]any{"0", "A1", "Dell"},
				[]any{"1", "A2", "HP"},
			),
			labels: []string{"serial", "marca"},
		},
		{
			name: "non consecutive kept",
			rows: rowsOf(
				[]any{"Cantidad", "Descripcion"},
				[]any{"1", "Silla"},
				[]any{"5", "Mesa"},
			),
			labels: []string{"cantidad", "descripcion"},
		},
		{
			name: "single row kept",
			rows: rowsOf(
				[]any{"No", "Serial"},
				[]any{"1", "A1"},
			),
			labels: []string{"no", "serial"},
		},
		{
			name: "last column always kept",
			rows: rowsOf(
				[]any{"Id"},
				[]any{"1"},
				[]any{"2"},
			),
			labels: []string{"id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, _ := NormalizeTable(RawTable{Source: "t.csv", Rows: tt.rows}, 25)
			assert.Equal(t, tt.labels, table.Labels)
		})
	}
}

func TestNormalizeTable_RowOffset(t *testing.T) {
	raw := RawTable{
		Source:    "s.csv",
		Section:   "licencias",
		RowOffset: 10,
		Rows: rowsOf(
			[]any{"Correo", "Licencia"},
			[]any{"a@x.co", "E3"},
		),
	}
	table, _ := NormalizeTable(raw, 25)
	assert.Equal(t, 11, table.HeaderRow)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, 12, table.Rows[0].Index)
	assert.Equal(t, "s.csv/licencias", table.SourceID())
}
