package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSnapshotMeta(t *testing.T) {
	sha := strings.Repeat("0", 64)
	raw := `{"source":"jsa","url":"https://www.sumo.or.jp/EnHonbashoBanzuke/202401","fetchedAt":"2024-01-01T00:00:00.000Z",` +
		`"contentSha256":"` + sha + `","bytes":12,"contentType":"text/html","httpStatus":200}`

	m, err := DecodeSnapshotMeta([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, SourceJSA, m.Source)
	assert.Equal(t, int64(12), m.Bytes)
	assert.Equal(t, StoredSnapshotMeta{
		Source: SourceJSA, ContentSHA256: sha, Bytes: 12, ContentType: "text/html", HTTPStatus: 200,
	}, m.Stored())

	t.Run("unknown field", func(t *testing.T) {
		_, err := DecodeSnapshotMeta([]byte(strings.Replace(raw, `"bytes"`, `"extra":1,"bytes"`, 1)))
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("bad fetchedAt", func(t *testing.T) {
		_, err := DecodeSnapshotMeta([]byte(strings.Replace(raw, "2024-01-01T00:00:00.000Z", "yesterday", 1)))
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("unknown source", func(t *testing.T) {
		_, err := DecodeSnapshotMeta([]byte(strings.Replace(raw, `"jsa"`, `"nhk"`, 1)))
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestExtensionForContentType(t *testing.T) {
	assert.Equal(t, ".json", ExtensionForContentType("application/json; charset=utf-8"))
	assert.Equal(t, ".html", ExtensionForContentType("TEXT/HTML"))
	assert.Equal(t, ".txt", ExtensionForContentType("text/plain"))
}

func TestEntityID(t *testing.T) {
	assert.Equal(t, "202401|makuuchi|3|west", EntityID(EntityBanzuke, map[string]any{
		"bashoId": "202401", "division": "makuuchi", "rankValue": 3.0, "side": "west",
	}))
	assert.Equal(t, "r1", EntityID(EntityRikishi, map[string]any{"rikishiId": "r1"}))
	assert.Equal(t, "bouts.jsonl", EntityBout.CanonicalFile())

	counts := NewDiffCounts()
	assert.Len(t, counts, 5)
	assert.Zero(t, counts.Total())
}
