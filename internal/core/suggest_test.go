package core

import (
	"testing"

	"github.com/openai/openai-go"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSuggestion(t *testing.T) {
	labels := []string{"quien lo tiene", "procedencia", "equipo"}
	vocab := []string{"assigned_user", "site", "category"}

	t.Run("plain object", func(t *testing.T) {
		got, err := ParseSuggestion(`{"quien lo tiene": "assigned_user", "procedencia": null}`, labels, vocab)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"quien lo tiene": "assigned_user"}, got)
	})

	t.Run("fenced with prose", func(t *testing.T) {
		content := "Here is the mapping:\n```json\n{\"equipo\": \"category\"}\n```"
		got, err := ParseSuggestion(content, labels, vocab)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"equipo": "category"}, got)
	})

	t.Run("drops unknown labels and fields", func(t *testing.T) {
		got, err := ParseSuggestion(`{"equipo": "vehicle", "otro": "site", "procedencia": " site "}`, labels, vocab)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"procedencia": "site"}, got)
	})

	t.Run("no object", func(t *testing.T) {
		_, err := ParseSuggestion("I cannot help with that", labels, vocab)
		assert.ErrorIs(t, err, ErrEmptySuggestion)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParseSuggestion(`{"equipo": }`, labels, vocab)
		assert.ErrorContains(t, err, "decode suggestion")
	})
}

func TestOpenAISuggester_RequestsJSONObject(t *testing.T) {
	s := NewOpenAISuggester("sk-test", "", "gpt-4o-mini")
	p := s.params([]string{"equipo"}, []string{"category"})

	require.NotNil(t, p.ResponseFormat.OfJSONObject)
	assert.Nil(t, p.ResponseFormat.OfText)
	assert.Nil(t, p.ResponseFormat.OfJSONSchema)
	assert.Equal(t, openai.ChatModel("gpt-4o-mini"), p.Model)
	assert.Len(t, p.Messages, 2)
	assert.Equal(t, 0.0, p.Temperature.Value)
}

func TestMappingCacheKey(t *testing.T) {
	a := MappingCacheKey([]string{"serial", "marca"}, []string{"serial", "brand"})
	b := MappingCacheKey([]string{"serial", "marca"}, []string{"serial", "brand"})
	c := MappingCacheKey([]string{"marca", "serial"}, []string{"serial", "brand"})
	d := MappingCacheKey([]string{"serial", "marca"}, []string{"serial"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c, "label order matters")
	assert.NotEqual(t, a, d, "vocabulary is part of the key")
}
