package core

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var assetVocabulary = []string{
	"code", "serial", "brand", "model", "processor", "ram", "storage", "os",
	"site", "city", "category", "assigned_user", "area", "status",
}

type fakeSuggester struct {
	mu     sync.Mutex
	answer map[string]string
	err    error
	calls  int
	asked  [][]string
}

func (f *fakeSuggester) Suggest(_ context.Context, labels, _ []string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.asked = append(f.asked, append([]string(nil), labels...))
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

func newTestMapper(t *testing.T, opts ...MapperOption) *Mapper {
	t.Helper()
	table, err := DefaultAliasTable()
	require.NoError(t, err)
	return NewMapper(table, opts...)
}

func TestMapper_Tiers(t *testing.T) {
	m := newTestMapper(t)
	labels := []string{"serial o mac", "marca del equipo", "numero de chasis", "sede"}

	mapping, warnings := m.Map(context.Background(), labels, assetVocabulary, nil)
	assert.Empty(t, warnings)

	assert.Equal(t, []ColumnAssignment{
		{Label: "serial o mac", Field: "serial", Tier: TierAlias},
		{Label: "marca del equipo", Field: "brand", Tier: TierHeuristic},
		{Label: "numero de chasis", Tier: TierUnmapped},
		{Label: "sede", Field: "site", Tier: TierAlias},
	}, mapping.Columns)
	assert.Equal(t, []string{"numero de chasis"}, mapping.Unmapped())
}

func TestMapper_FirstColumnClaimsField(t *testing.T) {
	m := newTestMapper(t)

	mapping, _ := m.Map(context.Background(), []string{"serial", "serie"}, assetVocabulary, nil)
	assert.Equal(t, "serial", mapping.Field("serial"))
	assert.Equal(t, "", mapping.Field("serie"))
}

func TestMapper_Deterministic(t *testing.T) {
	labels := []string{"codigo", "serial", "marca", "modelo", "tipo", "memoria ram", "disco", "responsable"}
	first, _ := newTestMapper(t).Map(context.Background(), labels, assetVocabulary, nil)
	for i := 0; i < 5; i++ {
		again, _ := newTestMapper(t).Map(context.Background(), labels, assetVocabulary, nil)
		assert.Equal(t, first, again)
	}
}

func TestMapper_VocabularyLimitsFields(t *testing.T) {
	m := newTestMapper(t)

	mapping, _ := m.Map(context.Background(), []string{"serial", "correo"}, []string{"serial"}, nil)
	assert.Equal(t, "serial", mapping.Field("serial"))
	assert.Equal(t, "", mapping.Field("correo"))
}

func TestMapper_Suggester(t *testing.T) {
	fake := &fakeSuggester{answer: map[string]string{
		"quien lo tiene": "assigned_user",
		"procedencia":    "nonexistent_field",
	}}
	m := newTestMapper(t, WithSuggester(fake))

	labels := []string{"serial", "quien lo tiene", "procedencia"}
	mapping, warnings := m.Map(context.Background(), labels, assetVocabulary, nil)
	assert.Empty(t, warnings)

	assert.Equal(t, ColumnAssignment{Label: "quien lo tiene", Field: "assigned_user", Tier: TierSuggestion}, mapping.Columns[1])
	assert.Equal(t, "", mapping.Field("procedencia"), "fields outside the vocabulary are discarded")
	require.Len(t, fake.asked, 1)
	assert.Equal(t, []string{"quien lo tiene", "procedencia"}, fake.asked[0], "only unresolved labels are sent")
}

func TestMapper_SuggesterFailureDegrades(t *testing.T) {
	fake := &fakeSuggester{err: errors.New("connection refused")}
	cache := NewMemoryMappingCache()
	m := newTestMapper(t, WithSuggester(fake), WithMappingCache(cache))

	labels := []string{"serial", "marca del equipo", "quien lo tiene"}
	mapping, warnings := m.Map(context.Background(), labels, assetVocabulary, nil)

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "suggestion unavailable")
	assert.Equal(t, "brand", mapping.Field("marca del equipo"), "keywords still apply")
	assert.Equal(t, 0, cache.Len(), "degraded mappings are not cached")
}

func TestMapper_CachesResolvedMappings(t *testing.T) {
	fake := &fakeSuggester{answer: map[string]string{}}
	cache := NewMemoryMappingCache()
	m := newTestMapper(t, WithSuggester(fake), WithMappingCache(cache))

	labels := []string{"serial", "quien lo tiene"}
	first, _ := m.Map(context.Background(), labels, assetVocabulary, nil)
	second, _ := m.Map(context.Background(), labels, assetVocabulary, nil)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, 1, cache.Len())
}

func TestMapper_ReloadInvalidatesCache(t *testing.T) {
	cache := NewMemoryMappingCache()
	m := newTestMapper(t, WithMappingCache(cache))

	labels := []string{"numero de chasis"}
	before, _ := m.Map(context.Background(), labels, assetVocabulary, nil)
	assert.Equal(t, "", before.Field("numero de chasis"))
	assert.Equal(t, 1, cache.Len())

	table, err := LoadAliasTable([]byte("aliases:\n  serial: [numero de chasis]\n"))
	require.NoError(t, err)
	require.NoError(t, m.Reload(context.Background(), table))
	assert.Equal(t, 0, cache.Len())

	after, _ := m.Map(context.Background(), labels, assetVocabulary, nil)
	assert.Equal(t, "serial", after.Field("numero de chasis"))
}

func TestMapper_Overrides(t *testing.T) {
	m := newTestMapper(t)
	labels := []string{"serial", "numero de chasis", "marca"}

	t.Run("override wins and releases the field", func(t *testing.T) {
		mapping, warnings := m.Map(context.Background(), labels, assetVocabulary,
			map[string]string{"Número de Chasis": "serial"})
		assert.Empty(t, warnings)
		assert.Equal(t, ColumnAssignment{Label: "numero de chasis", Field: "serial", Tier: TierOverride}, mapping.Columns[1])
		assert.Equal(t, ColumnAssignment{Label: "serial", Tier: TierUnmapped}, mapping.Columns[0])
		assert.Equal(t, "brand", mapping.Field("marca"))
	})

	t.Run("unknown field is dropped with a warning", func(t *testing.T) {
		mapping, warnings := m.Map(context.Background(), labels, assetVocabulary,
			map[string]string{"marca": "colour"})
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "unknown field")
		assert.Equal(t, "brand", mapping.Field("marca"))
	})

	t.Run("label not in table is ignored", func(t *testing.T) {
		mapping, warnings := m.Map(context.Background(), labels, assetVocabulary,
			map[string]string{"placa": "code"})
		assert.Empty(t, warnings)
		assert.Equal(t, []string{"serial", "brand"}, mapping.Fields())
	})

	t.Run("overrides are not cached", func(t *testing.T) {
		plain, _ := m.Map(context.Background(), labels, assetVocabulary, nil)
		assert.Equal(t, "serial", plain.Field("serial"))
	})
}

func TestColumnMapping_Restrict(t *testing.T) {
	mapping := ColumnMapping{Columns: []ColumnAssignment{
		{Label: "serial", Field: "serial", Tier: TierAlias},
		{Label: "correo", Field: "email", Tier: TierAlias},
	}}
	got := mapping.Restrict(func(f string) bool { return f == "serial" })
	assert.Equal(t, []string{"serial"}, got.Fields())
	assert.Equal(t, []string{"correo"}, got.Unmapped())
	assert.Equal(t, "email", mapping.Field("correo"), "the original is unchanged")
}
