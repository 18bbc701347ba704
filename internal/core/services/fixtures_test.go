package services

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/adapters/driven/storage/artifacts"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/adapters/driven/storage/memory"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/adapters/driven/storage/snapshot"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/hashing"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/normalisers"
)

var testSHA = strings.Repeat("a", 64)

func testRef(source domain.Source) map[string]any {
	return map[string]any{
		"source":         string(source),
		"snapshotSha256": testSHA,
		"url":            "https://fixtures.local/" + string(source),
	}
}

// fixtureSet is the content of the five fixture files.
type fixtureSet map[string][]map[string]any

func defaultFixtures() fixtureSet {
	return fixtureSet{
		domain.RikishiFixture: {
			{"rikishiId": "11927", "shikona": "Hoshoryu", "heya": "Tatsunami", "sourceRefs": []any{testRef(domain.SourceSumoDB)}},
			{"rikishiId": "12451", "shikona": "Kirishima", "heya": "  ", "nationality": "N/A"},
		},
		domain.BashoFixture: {
			{"bashoId": "202401", "label": "Hatsu 2024"},
		},
		domain.BanzukeFixture: {
			{"bashoId": "202401", "division": "makuuchi", "rankValue": 1, "side": "east", "rikishiId": "11927"},
			{"bashoId": "202401", "division": "makuuchi", "rankValue": 1, "side": "west", "rikishiId": "12451"},
		},
		domain.BoutsFixture: {
			{
				"bashoId": "202401", "day": 1, "division": "makuuchi", "boutNo": 1,
				"eastRikishiId": "11927", "westRikishiId": "12451", "winnerRikishiId": "11927",
				"kimariteId": "yorikiri",
			},
		},
		domain.KimariteFixture: {
			{"kimariteId": "yorikiri", "label": "Yorikiri"},
		},
	}
}

func writeFixtures(t *testing.T, dir string, set fixtureSet) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, name := range domain.FixtureFiles {
		rows := set[name]
		if rows == nil {
			rows = []map[string]any{}
		}
		data, err := json.MarshalIndent(rows, "", "  ")
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}
}

// writeCapture stores a snapshot fixture under dir/snapshots/<source>/<name>.
func writeCapture(t *testing.T, dir string, source domain.Source, name, url, contentType, body string) {
	t.Helper()
	base := filepath.Join(dir, snapshotFixturesDir, string(source), name)
	require.NoError(t, os.MkdirAll(filepath.Dir(base), 0o755))
	meta := domain.SnapshotMeta{
		Source:        source,
		URL:           url,
		FetchedAt:     "2024-01-01T00:00:00.000Z",
		ContentSHA256: hashing.ContentHash([]byte(body)),
		Bytes:         int64(len(body)),
		ContentType:   contentType,
		HTTPStatus:    200,
	}
	data, err := json.Marshal(meta)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(base+metaSuffix, data, 0o644))
	require.NoError(t, os.WriteFile(base+domain.ExtensionForContentType(contentType), []byte(body), 0o644))
}

// pipeline wires every offline service against temp dirs and memory stores.
type pipeline struct {
	fixtures  string
	artifacts *artifacts.Store
	snapshots *snapshot.Store
	store     *memory.PipelineStore
	builder   *BuildService
	differ    *DiffService
}

func newPipeline(t *testing.T, mode domain.BuildMode, set fixtureSet) *pipeline {
	t.Helper()
	root := t.TempDir()
	p := &pipeline{
		fixtures:  filepath.Join(root, "fixtures"),
		artifacts: artifacts.NewStore(filepath.Join(root, "builds")),
		snapshots: snapshot.NewStore(filepath.Join(root, "snapshots")),
		store:     memory.NewPipelineStore(),
	}
	writeFixtures(t, p.fixtures, set)
	p.builder = NewBuildService(
		domain.BuildConfig{Mode: mode, FixturesDir: p.fixtures},
		p.artifacts, p.snapshots, normalisers.DefaultRegistry(),
	)
	p.differ = NewDiffService(p.artifacts, p.store)
	return p
}

func (p *pipeline) loader(intercept Interceptor) *LoadService {
	return NewLoadService(p.artifacts, p.store, p.differ, intercept)
}

func none() *string {
	s := ""
	return &s
}
