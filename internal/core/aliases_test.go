package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAliasTable(t *testing.T) {
	table, err := DefaultAliasTable()
	require.NoError(t, err)

	tests := []struct {
		label string
		field string
	}{
		{"serial o mac", "serial"},
		{"codigo barras individual", "code"},
		{"cedula", "cedula"},
		{"usuario asignado", "assigned_user"},
		{"marca", "brand"},
		{"sede", "site"},
		{"ciudad", "city"},
	}
	for _, tt := range tests {
		f, ok := table.Lookup(tt.label)
		assert.True(t, ok, tt.label)
		assert.Equal(t, tt.field, f, tt.label)
	}

	_, ok := table.Lookup("numero de chasis")
	assert.False(t, ok)

	aliases, keywords := table.Size()
	assert.Positive(t, aliases)
	assert.Positive(t, keywords)
}

func TestLoadAliasTable_Normalizes(t *testing.T) {
	table, err := LoadAliasTable([]byte(`
aliases:
  serial: ["Número de Serie"]
keywords:
  brand: ["Fabricante"]
`))
	require.NoError(t, err)

	f, ok := table.Lookup("numero de serie")
	assert.True(t, ok)
	assert.Equal(t, "serial", f)
	assert.Equal(t, []string{"brand", "serial"}, table.Fields())
}

func TestLoadAliasTable_Invalid(t *testing.T) {
	_, err := LoadAliasTable([]byte(`
aliases:
  serial: [serie]
  model: [Serie]
keywords:
  ram: [gb]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `alias "serie" maps to both`)
	assert.Contains(t, err.Error(), `keyword "gb" for ram is shorter than 3 characters`)

	_, err = LoadAliasTable([]byte("aliases: [not, a, map]"))
	assert.ErrorContains(t, err, "parse alias table")
}

func TestLoadAliasFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("aliases:\n  serial: [chasis]\n"), 0o600))

	table, err := LoadAliasFile(path)
	require.NoError(t, err)
	f, ok := table.Lookup("chasis")
	assert.True(t, ok)
	assert.Equal(t, "serial", f)

	_, err = LoadAliasFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read alias file")
}

func TestMatchKeyword(t *testing.T) {
	table, err := DefaultAliasTable()
	require.NoError(t, err)

	all := map[string]bool{}
	for _, f := range []string{"brand", "serial", "code", "ram", "storage", "area", "site"} {
		all[f] = true
	}

	tests := []struct {
		name   string
		label  string
		vocab  map[string]bool
		field  string
		wantOK bool
	}{
		{"substring keyword", "marca del equipo", all, "brand", true},
		{"short keyword as word", "ram instalada", all, "ram", true},
		{"short keyword inside word", "programa", all, "", false},
		{"ambiguous", "codigo serial", all, "", false},
		{"outside vocabulary", "marca del equipo", map[string]bool{"serial": true}, "", false},
		{"no match", "numero de chasis", all, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := table.MatchKeyword(tt.label, tt.vocab)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.field, f)
		})
	}
}
