package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSections(t *testing.T) {
	raw := RawTable{
		Source: "mixto.xlsx",
		Sheet:  "Hoja1",
		Rows: rowsOf(
			[]any{"Computadores"},
			[]any{"Serial", "Marca"},
			[]any{"A1", "Dell"},
			[]any{},
			[]any{"Licencias Office"},
			[]any{"Correo", "Tipo Licencia"},
			[]any{"a@x.co", "E3"},
			[]any{"b@x.co", "E1"},
		),
	}

	parts := SplitSections(raw)
	require.Len(t, parts, 2)

	assert.Equal(t, "computadores", parts[0].Section)
	assert.Equal(t, 1, parts[0].RowOffset)
	assert.Len(t, parts[0].Rows, 3)

	assert.Equal(t, "licencias office", parts[1].Section)
	assert.Equal(t, 5, parts[1].RowOffset)
	assert.Len(t, parts[1].Rows, 3)

	table, _ := NormalizeTable(parts[1], 25)
	assert.Equal(t, []string{"correo", "tipo licencia"}, table.Labels)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, 7, table.Rows[0].Index, "row indexes refer to the whole sheet")
}

func TestSplitSections_LeadingBlock(t *testing.T) {
	raw := RawTable{
		Source: "mixto.csv",
		Rows: rowsOf(
			[]any{"Serial", "Marca"},
			[]any{"A1", "Dell"},
			[]any{"Empleados"},
			[]any{"Cedula", "Nombre"},
			[]any{"1020", "Ana"},
		),
	}

	parts := SplitSections(raw)
	require.Len(t, parts, 2)
	assert.Equal(t, "", parts[0].Section)
	assert.Len(t, parts[0].Rows, 2)
	assert.Equal(t, "empleados", parts[1].Section)
}

func TestSplitSections_NoLabels(t *testing.T) {
	raw := RawTable{
		Source: "plano.csv",
		Rows: rowsOf(
			[]any{"Serial", "Marca"},
			[]any{"A1", "Dell"},
		),
	}
	parts := SplitSections(raw)
	require.Len(t, parts, 1)
	assert.Equal(t, raw, parts[0])
}

func TestSplitSections_LabelNeedsHeaderBelow(t *testing.T) {
	raw := RawTable{
		Source: "s.csv",
		Rows: rowsOf(
			[]any{"Vacio"},
			[]any{"Otro"},
			[]any{"Serial", "Marca"},
			[]any{"A1", "Dell"},
		),
	}
	parts := SplitSections(raw)
	require.Len(t, parts, 2)
	assert.Equal(t, "", parts[0].Section, "a lone cell followed by another lone cell is not a label")
	assert.Len(t, parts[0].Rows, 1)
	assert.Equal(t, "otro", parts[1].Section)
}
