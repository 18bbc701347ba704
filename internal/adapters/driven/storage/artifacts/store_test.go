package artifacts

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/hashing"
)

func TestStore_WriteAndReadRows(t *testing.T) {
	s := NewStore(t.TempDir())
	data := []byte("{\"heightCm\":192.5,\"rikishiId\":\"1\"}\n\n{\"rikishiId\":\"2\"}\n")

	out, err := s.WriteFile("b1", "canonical/rikishi.jsonl", data, 2)
	require.NoError(t, err)
	assert.Equal(t, "canonical/rikishi.jsonl", out.Path)
	assert.Equal(t, hashing.ContentHash(data), out.SHA256)
	assert.Equal(t, int64(len(data)), out.Bytes)
	assert.True(t, s.Exists("b1", "canonical/rikishi.jsonl"))

	rows, err := s.ReadRows("b1", "canonical/rikishi.jsonl")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, json.Number("192.5"), rows[0]["heightCm"])

	line, err := hashing.Serialize(rows[0])
	require.NoError(t, err)
	assert.Equal(t, `{"heightCm":192.5,"rikishiId":"1"}`, string(line))
}

func TestStore_MissingFiles(t *testing.T) {
	s := NewStore(t.TempDir())

	rows, err := s.ReadRows("nope", "canonical/basho.jsonl")
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = s.ReadFile("nope", "manifest.json")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	diff, err := s.ReadDiff("nope", domain.DiffAddedFile)
	require.NoError(t, err)
	assert.Empty(t, diff)
}

func TestStore_DiffRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())
	rows := []domain.DiffRow{
		{EntityType: domain.EntityBasho, EntityID: "202401", AfterHash: "h1", After: map[string]any{"bashoId": "202401"}},
		{EntityType: domain.EntityRikishi, EntityID: "1", BeforeHash: "h0"},
	}
	require.NoError(t, s.WriteDiff("b1", domain.DiffAddedFile, rows))

	got, err := s.ReadDiff("b1", domain.DiffAddedFile)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "202401", got[0].After["bashoId"])
	assert.Nil(t, got[1].After)
}

func TestStore_RejectsEscapingIDs(t *testing.T) {
	root := t.TempDir()
	s := NewStore(filepath.Join(root, "builds"))

	for _, id := range []string{"", ".", "..", "../x", "a/b", `a\b`} {
		t.Run(id, func(t *testing.T) {
			assert.ErrorIs(t, CheckID(id), domain.ErrInvalidInput)

			_, err := s.WriteFile(id, domain.ManifestFile, []byte("{}"), 0)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			_, err = s.ReadFile(id, domain.ManifestFile)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.False(t, s.Exists(id, domain.ManifestFile))
		})
	}
	assert.NoFileExists(t, filepath.Join(root, "x", domain.ManifestFile))

	_, err := s.WriteFile("202401", "../../escape.json", []byte("{}"), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.NoError(t, CheckID("202401"))
}
