package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driven"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	// Create a temporary directory for the test database
	tempDir, err := os.MkdirTemp("", "sumo-pipeline-test-*")
	require.NoError(t, err)

	store, err := NewStore(filepath.Join(tempDir, "pipeline.db"))
	require.NoError(t, err)
	require.NotNil(t, store)

	// Return cleanup function
	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

var testSHA = strings.Repeat("ab", 32)

func testBuild(id string, status domain.BuildStatus) domain.BuildRecord {
	return domain.BuildRecord{
		BuildID:         id,
		PipelineVersion: domain.PipelineVersion,
		SchemaVersion:   domain.SchemaVersion,
		ManifestSHA256:  testSHA,
		Status:          status,
	}
}

// ==================== Store Creation and Initialization Tests ====================

func TestNewStore_ErrorHandling(t *testing.T) {
	_, err := NewStore("")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewStore_DirectoryCreation(t *testing.T) {
	tempDir := t.TempDir()

	dbPath := filepath.Join(tempDir, "nested", "path", "pipeline.db")
	store, err := NewStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, dbPath, store.Path())
	assert.FileExists(t, dbPath)
	assert.NoError(t, store.db.Ping())
}

func TestNewStore_Migrations(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	var count int
	err := store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Greater(t, count, 0, "should have at least one migration")

	tables := []string{
		"builds",
		"build_snapshots",
		"rikishi",
		"basho",
		"kimarite",
		"banzuke_entries",
		"bouts",
		"tombstones",
		"source_refs",
		"basho_ingestion",
	}

	for _, table := range tables {
		var tableExists int
		err := store.db.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&tableExists)
		require.NoError(t, err)
		assert.Equal(t, 1, tableExists, "table %s should exist", table)
	}
}

func TestNewStore_ReopenSkipsApplied(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pipeline.db")
	first, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewStore(dbPath)
	require.NoError(t, err)
	defer second.Close()

	var count int
	require.NoError(t, second.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_refs.up.sql":      {Data: []byte("SELECT 1;")},
		"001_initial.up.sql":   {Data: []byte("SELECT 1;")},
		"001_initial.down.sql": {Data: []byte("SELECT 1;")},
		"010_more.up.sql":      {Data: []byte("SELECT 1;")},
	}

	all, err := pendingMigrations(fsys, 0)
	require.NoError(t, err)
	assert.Equal(t, []migration{
		{version: 1, name: "001_initial.up.sql"},
		{version: 2, name: "002_refs.up.sql"},
		{version: 10, name: "010_more.up.sql"},
	}, all)

	rest, err := pendingMigrations(fsys, 2)
	require.NoError(t, err)
	assert.Equal(t, []migration{{version: 10, name: "010_more.up.sql"}}, rest)
}

func TestPendingMigrations_BadNames(t *testing.T) {
	_, err := pendingMigrations(fstest.MapFS{"initial.up.sql": {}}, 0)
	assert.ErrorContains(t, err, "version number")

	_, err = pendingMigrations(fstest.MapFS{"001_a.up.sql": {}, "1_b.up.sql": {}}, 0)
	assert.ErrorContains(t, err, "share version 1")
}

func TestMigrate_FailedScriptLeavesNoTrace(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.migrate(fstest.MapFS{
		"050_broken.up.sql": {Data: []byte("CREATE TABLE half_done (id TEXT); NOT SQL;")},
	})
	require.Error(t, err)

	var version, tables int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE name = 'half_done'").Scan(&tables))
	assert.Zero(t, tables)
}

func TestNewStore_ForeignKeysEnabled(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	var fkEnabled int
	err := store.db.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled)
	require.NoError(t, err)
	assert.Equal(t, 1, fkEnabled, "foreign keys should be enabled")
}

func TestStore_Close(t *testing.T) {
	store, _ := setupTestStore(t)

	err := store.Close()
	assert.NoError(t, err)

	// Verify connection is closed
	err = store.db.Ping()
	assert.Error(t, err)
}

// ==================== PipelineStore Tests ====================

func TestPipelineStore_CommitWritesEverything(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	ps := store.PipelineStore()

	ref := domain.SourceRef{Source: domain.SourceSumoDB, SnapshotSHA256: testSHA, URL: "https://sumodb.sumogames.de/Rikishi.aspx?r=1"}
	err := ps.WithinTx(ctx, func(tx driven.PipelineTx) error {
		require.NoError(t, tx.UpsertBuild(testBuild("b1", domain.BuildPending)))
		require.NoError(t, tx.ReplaceBuildSnapshots("b1", []domain.BuildSnapshot{
			{Source: domain.SourceSumoDB, SHA256: testSHA, URL: ref.URL, Bytes: 10},
		}))
		require.NoError(t, tx.UpsertRikishi("b1", domain.Rikishi{RikishiID: "1", Shikona: "Hoshoryu", HeightCm: 187.5, SourceRefs: []domain.SourceRef{ref}}))
		require.NoError(t, tx.UpsertBasho("b1", domain.Basho{BashoID: "202401"}))
		require.NoError(t, tx.UpsertKimarite("b1", domain.Kimarite{KimariteID: "yorikiri", Label: "Yorikiri"}))
		require.NoError(t, tx.UpsertBanzukeEntry("b1", "bzk_1", domain.BanzukeEntry{
			BashoID: "202401", Division: domain.Makuuchi, RankValue: 1, Side: domain.East, RikishiID: "1",
		}))
		require.NoError(t, tx.UpsertBout("b1", domain.Bout{
			BoutID: "bout1", BashoID: "202401", Day: 1, Division: domain.Makuuchi, BoutNo: 1,
			EastRikishiID: "1", WestRikishiID: "2", WinnerRikishiID: "1", KimariteID: "yorikiri",
		}))
		require.NoError(t, tx.ReplaceSourceRefs("b1", []domain.SourceRefRow{
			{EntityType: domain.EntityRikishi, EntityID: "1", Source: ref.Source, SnapshotSHA256: ref.SnapshotSHA256, URL: ref.URL},
		}))
		return tx.SetBuildStatus("b1", domain.BuildSuccess)
	})
	require.NoError(t, err)

	rec, err := ps.GetBuild(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, domain.BuildSuccess, rec.Status)
	assert.Equal(t, testSHA, rec.ManifestSHA256)
	assert.False(t, rec.CreatedAt.IsZero())

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, driven.StoreCounts{
		Builds: 1, BuildSnapshots: 1, Rikishi: 1, Basho: 1, Kimarite: 1,
		BanzukeEntries: 1, Bouts: 1, SourceRefs: 1,
	}, counts)

	var height float64
	require.NoError(t, store.db.QueryRow("SELECT height_cm FROM rikishi WHERE rikishi_id = '1'").Scan(&height))
	assert.InDelta(t, 187.5, height, 0.001)
}

func TestPipelineStore_RollbackOnError(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	ps := store.PipelineStore()

	boom := errors.New("boom")
	err := ps.WithinTx(ctx, func(tx driven.PipelineTx) error {
		require.NoError(t, tx.UpsertBuild(testBuild("b1", domain.BuildPending)))
		require.NoError(t, tx.UpsertRikishi("b1", domain.Rikishi{RikishiID: "1", Shikona: "Hoshoryu"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = ps.GetBuild(ctx, "b1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, driven.StoreCounts{}, counts)
}

func TestPipelineStore_MarkBuildFailed(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	ps := store.PipelineStore()

	// Creates the record when the failed transaction left nothing behind.
	require.NoError(t, ps.MarkBuildFailed(ctx, testBuild("b1", domain.BuildPending)))
	rec, err := ps.GetBuild(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, domain.BuildFailed, rec.Status)

	n, err := store.CountBuilds(ctx, domain.BuildFailed)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPipelineStore_LatestSuccessfulBuild(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	ps := store.PipelineStore()

	_, err := ps.LatestSuccessfulBuild(ctx, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	for _, id := range []string{"b1", "b2"} {
		require.NoError(t, ps.WithinTx(ctx, func(tx driven.PipelineTx) error {
			return tx.UpsertBuild(testBuild(id, domain.BuildSuccess))
		}))
	}
	require.NoError(t, ps.MarkBuildFailed(ctx, testBuild("b3", domain.BuildPending)))

	latest, err := ps.LatestSuccessfulBuild(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "b2", latest.BuildID)

	latest, err = ps.LatestSuccessfulBuild(ctx, "b2")
	require.NoError(t, err)
	assert.Equal(t, "b1", latest.BuildID)
}

func TestPipelineTx_TombstoneIsIdempotent(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	ts := domain.Tombstone{EntityType: domain.EntityBout, EntityID: "bout1", BuildID: "b2"}
	for i := 0; i < 2; i++ {
		require.NoError(t, store.PipelineStore().WithinTx(ctx, func(tx driven.PipelineTx) error {
			return tx.Tombstone(ts)
		}))
	}

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Tombstones)
}

func TestPipelineTx_ReplaceSourceRefs(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	rows := func(ids ...string) []domain.SourceRefRow {
		var out []domain.SourceRefRow
		for _, id := range ids {
			out = append(out, domain.SourceRefRow{
				EntityType: domain.EntityRikishi, EntityID: id, Source: domain.SourceJSA,
				SnapshotSHA256: testSHA, URL: "https://www.sumo.or.jp/x", RefType: domain.RefProfile,
			})
		}
		return out
	}

	ps := store.PipelineStore()
	require.NoError(t, ps.WithinTx(ctx, func(tx driven.PipelineTx) error {
		return tx.ReplaceSourceRefs("b1", rows("1", "2", "3"))
	}))
	require.NoError(t, ps.WithinTx(ctx, func(tx driven.PipelineTx) error {
		return tx.ReplaceSourceRefs("b1", rows("4"))
	}))

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.SourceRefs)
}

func TestPipelineTx_SetBuildStatusUnknown(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.PipelineStore().WithinTx(context.Background(), func(tx driven.PipelineTx) error {
		return tx.SetBuildStatus("missing", domain.BuildSuccess)
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ==================== IngestionStore Tests ====================

func TestIngestionStore_Lifecycle(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	is := store.IngestionStore()

	_, err := is.Get(ctx, "202401")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, is.EnsurePending(ctx, "202401"))
	require.NoError(t, is.EnsurePending(ctx, "202401"))
	rec, err := is.Get(ctx, "202401")
	require.NoError(t, err)
	assert.Equal(t, domain.IngestionPending, rec.Status)
	assert.Nil(t, rec.StartedAt)

	require.NoError(t, is.MarkInProgress(ctx, "202401", "run-1"))
	require.NoError(t, is.MarkFailed(ctx, "202401", "code=FETCH_FAILED message=HTTP 503"))
	rec, err = is.Get(ctx, "202401")
	require.NoError(t, err)
	assert.Equal(t, domain.IngestionFailed, rec.Status)
	assert.Equal(t, "run-1", rec.RunID)
	assert.Contains(t, rec.ErrorMessage, "FETCH_FAILED")
	require.NotNil(t, rec.FinishedAt)

	require.NoError(t, is.MarkInProgress(ctx, "202401", "run-2"))
	rec, err = is.Get(ctx, "202401")
	require.NoError(t, err)
	assert.Equal(t, domain.IngestionInProgress, rec.Status)
	assert.Empty(t, rec.ErrorMessage)
	assert.Nil(t, rec.FinishedAt)

	require.NoError(t, is.MarkComplete(ctx, "202401", 8, testSHA))
	rec, err = is.Get(ctx, "202401")
	require.NoError(t, err)
	assert.Equal(t, domain.IngestionComplete, rec.Status)
	assert.Equal(t, 8, rec.SnapshotCount)
	assert.Equal(t, testSHA, rec.BuildID)
	assert.Equal(t, "run-2", rec.RunID)
}

func TestStore_ContextCancellation(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.PipelineStore().GetBuild(ctx, "b1")
	assert.Error(t, err)
}
