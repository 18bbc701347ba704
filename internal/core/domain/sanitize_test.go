package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPlaceholder(t *testing.T) {
	for _, s := range []string{"", "  ", "N/A", "na", "NULL", "undefined", " Unknown "} {
		assert.True(t, IsPlaceholder(s), s)
	}
	for _, s := range []string{"Hakuho", "0", "nan"} {
		assert.False(t, IsPlaceholder(s), s)
	}
}

func TestSanitize(t *testing.T) {
	in := map[string]any{
		"rikishiId": " 1 ",
		"heya":      "n/a",
		"birthDate": nil,
		"heightCm":  180.0,
		"sourceRefs": []any{
			map[string]any{"note": "null"},
		},
		"nested": map[string]any{"a": ""},
	}
	got := Sanitize(in)
	assert.Equal(t, map[string]any{"rikishiId": "1", "heightCm": 180.0}, got)

	assert.Nil(t, Sanitize(map[string]any{"a": nil}))
	assert.Nil(t, Sanitize([]any{"", nil}))
}

func TestSanitizeRecords(t *testing.T) {
	raw := []any{
		map[string]any{"kimariteId": "yorikiri", "label": "N/A"},
		map[string]any{"label": ""},
	}
	got, err := SanitizeRecords(raw)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"kimariteId":"yorikiri"}`, string(got[0]))
}

func TestContainsPlaceholder(t *testing.T) {
	assert.False(t, ContainsPlaceholder(map[string]any{"a": "x", "b": []any{1.0}}))
	assert.True(t, ContainsPlaceholder(map[string]any{"a": "x", "b": []any{"na"}}))
	assert.True(t, ContainsPlaceholder(map[string]any{"a": nil}))
}
