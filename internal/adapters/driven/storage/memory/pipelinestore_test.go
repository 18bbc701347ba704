package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driven"
)

func build(id string, status domain.BuildStatus) domain.BuildRecord {
	return domain.BuildRecord{BuildID: id, PipelineVersion: "v", SchemaVersion: "v", Status: status}
}

func TestPipelineStore_WithinTxCommits(t *testing.T) {
	store := NewPipelineStore()
	ctx := context.Background()

	err := store.WithinTx(ctx, func(tx driven.PipelineTx) error {
		require.NoError(t, tx.UpsertBuild(build("b1", domain.BuildPending)))
		require.NoError(t, tx.UpsertRikishi("b1", domain.Rikishi{RikishiID: "1", Shikona: "Kotozakura"}))
		require.NoError(t, tx.UpsertBanzukeEntry("b1", "bzk_x", domain.BanzukeEntry{BashoID: "202401", RikishiID: "1"}))
		require.NoError(t, tx.ReplaceBuildSnapshots("b1", []domain.BuildSnapshot{{Source: domain.SourceJSA}}))
		require.NoError(t, tx.ReplaceSourceRefs("b1", []domain.SourceRefRow{{EntityID: "1"}}))
		return tx.SetBuildStatus("b1", domain.BuildSuccess)
	})
	require.NoError(t, err)

	rec, err := store.GetBuild(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, domain.BuildSuccess, rec.Status)
	assert.True(t, rec.UpdatedAt.After(rec.CreatedAt))

	r, ok := store.Rikishi("1")
	require.True(t, ok)
	assert.Equal(t, "Kotozakura", r.Shikona)
	assert.Equal(t, "b1", store.UpdatedBy(domain.EntityRikishi, "1"))
	_, ok = store.BanzukeEntry("bzk_x")
	assert.True(t, ok)
	assert.Len(t, store.SourceRefs("b1"), 1)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, driven.StoreCounts{Builds: 1, BuildSnapshots: 1, Rikishi: 1, BanzukeEntries: 1, SourceRefs: 1}, counts)
}

func TestPipelineStore_WithinTxRollsBack(t *testing.T) {
	store := NewPipelineStore()
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(tx driven.PipelineTx) error {
		require.NoError(t, tx.UpsertBuild(build("b1", domain.BuildPending)))
		require.NoError(t, tx.Tombstone(domain.Tombstone{EntityType: domain.EntityBout, EntityID: "x", BuildID: "b1"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.GetBuild(ctx, "b1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, store.Tombstoned(domain.EntityBout, "x"))
}

func TestPipelineStore_CancelledContext(t *testing.T) {
	store := NewPipelineStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.WithinTx(ctx, func(driven.PipelineTx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestPipelineStore_LatestSuccessfulBuild(t *testing.T) {
	store := NewPipelineStore()
	ctx := context.Background()

	_, err := store.LatestSuccessfulBuild(ctx, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	for _, id := range []string{"b2", "b1"} {
		require.NoError(t, store.WithinTx(ctx, func(tx driven.PipelineTx) error {
			return tx.UpsertBuild(build(id, domain.BuildSuccess))
		}))
	}
	require.NoError(t, store.MarkBuildFailed(ctx, build("b3", domain.BuildPending)))

	latest, err := store.LatestSuccessfulBuild(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "b1", latest.BuildID)

	latest, err = store.LatestSuccessfulBuild(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "b2", latest.BuildID)
}

func TestPipelineStore_MarkBuildFailedKeepsCreation(t *testing.T) {
	store := NewPipelineStore()
	ctx := context.Background()

	require.NoError(t, store.WithinTx(ctx, func(tx driven.PipelineTx) error {
		return tx.UpsertBuild(build("b1", domain.BuildSuccess))
	}))
	before, err := store.GetBuild(ctx, "b1")
	require.NoError(t, err)

	require.NoError(t, store.MarkBuildFailed(ctx, build("b1", domain.BuildPending)))
	after, err := store.GetBuild(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, domain.BuildFailed, after.Status)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
}

func TestPipelineTx_BoutDayOutOfRange(t *testing.T) {
	store := NewPipelineStore()
	err := store.WithinTx(context.Background(), func(tx driven.PipelineTx) error {
		return tx.UpsertBout("b1", domain.Bout{BoutID: "x", Day: 16})
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestionStore_Lifecycle(t *testing.T) {
	store := NewIngestionStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "202401")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.EnsurePending(ctx, "202401"))
	require.NoError(t, store.MarkInProgress(ctx, "202401", "run-1"))
	require.NoError(t, store.MarkFailed(ctx, "202401", "code=SOURCE_CHANGED"))
	require.NoError(t, store.EnsurePending(ctx, "202401"))

	rec, err := store.Get(ctx, "202401")
	require.NoError(t, err)
	assert.Equal(t, domain.IngestionFailed, rec.Status)
	assert.Equal(t, "code=SOURCE_CHANGED", rec.ErrorMessage)

	require.NoError(t, store.MarkInProgress(ctx, "202401", "run-2"))
	require.NoError(t, store.MarkComplete(ctx, "202401", 8, "abc"))
	rec, err = store.Get(ctx, "202401")
	require.NoError(t, err)
	assert.Equal(t, domain.IngestionComplete, rec.Status)
	assert.Equal(t, "run-2", rec.RunID)
	assert.Equal(t, 8, rec.SnapshotCount)
	assert.Empty(t, rec.ErrorMessage)
	require.NotNil(t, rec.StartedAt)
	require.NotNil(t, rec.FinishedAt)
}
