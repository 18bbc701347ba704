package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/hashing"
)

func TestLoad_AppliesBuild(t *testing.T) {
	p := newPipeline(t, domain.BuildModeFixtures, defaultFixtures())
	id := buildWith(t, p, defaultFixtures())
	ctx := context.Background()

	res, err := p.loader(nil).Load(ctx, id, nil)
	require.NoError(t, err)
	assert.False(t, res.Noop)
	assert.Equal(t, id, res.BuildID)
	assert.Equal(t, domain.ChangeCounts{Added: 2}, res.Counts[domain.EntityRikishi])

	rec, err := p.store.GetBuild(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.BuildSuccess, rec.Status)
	assert.Equal(t, domain.PipelineVersion, rec.PipelineVersion)
	manifest, err := os.ReadFile(filepath.Join(p.artifacts.Dir(id), domain.ManifestFile))
	require.NoError(t, err)
	assert.Equal(t, hashing.ContentHash(manifest), rec.ManifestSHA256)

	r, ok := p.store.Rikishi("11927")
	require.True(t, ok)
	assert.Equal(t, "Tatsunami", r.Heya)
	assert.Equal(t, id, p.store.UpdatedBy(domain.EntityRikishi, "11927"))

	bzk := BanzukeRowID("202401|makuuchi|1|east")
	assert.Regexp(t, `^bzk_[0-9a-f]{24}$`, bzk)
	e, ok := p.store.BanzukeEntry(bzk)
	require.True(t, ok)
	assert.Equal(t, "11927", e.RikishiID)

	refs := p.store.SourceRefs(id)
	require.Len(t, refs, 1)
	assert.Equal(t, domain.SourceRefRow{
		EntityType:     domain.EntityRikishi,
		EntityID:       "11927",
		Source:         domain.SourceSumoDB,
		SnapshotSHA256: testSHA,
		URL:            "https://fixtures.local/sumodb",
	}, refs[0])
}

func TestLoad_Idempotent(t *testing.T) {
	p := newPipeline(t, domain.BuildModeFixtures, defaultFixtures())
	id := buildWith(t, p, defaultFixtures())
	ctx := context.Background()
	loader := p.loader(nil)

	_, err := loader.Load(ctx, id, nil)
	require.NoError(t, err)
	before, err := p.store.Counts(ctx)
	require.NoError(t, err)

	for range 2 {
		res, err := loader.Load(ctx, id, nil)
		require.NoError(t, err)
		assert.True(t, res.Noop)
		assert.Zero(t, res.Counts.Total())
	}
	after, err := p.store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, after.Builds)
}

func TestLoad_InjectedFailureRollsBack(t *testing.T) {
	for _, step := range LoadSteps {
		t.Run(step.Point(), func(t *testing.T) {
			p := newPipeline(t, domain.BuildModeFixtures, defaultFixtures())
			id := buildWith(t, p, defaultFixtures())
			ctx := context.Background()

			_, err := p.loader(FailAt(step.Point())).Load(ctx, id, nil)
			require.ErrorIs(t, err, domain.ErrInjectedFailure)

			rec, err := p.store.GetBuild(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, domain.BuildFailed, rec.Status)
			_, ok := p.store.Rikishi("11927")
			assert.False(t, ok, "entity writes are rolled back")
			assert.Empty(t, p.store.SourceRefs(id))

			res, err := p.loader(nil).Load(ctx, id, nil)
			require.NoError(t, err, "a failed build can be loaded again")
			assert.False(t, res.Noop)
			rec, err = p.store.GetBuild(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, domain.BuildSuccess, rec.Status)
		})
	}
}

func TestFailAt(t *testing.T) {
	fail := FailAt("  AFTER-Rikishi ")
	assert.ErrorIs(t, fail("after-rikishi"), domain.ErrInjectedFailure)
	assert.NoError(t, fail("after-basho"))
	assert.NoError(t, FailAt("")("after-rikishi"))
}

func TestLoad_TombstonesRemovedRows(t *testing.T) {
	p := newPipeline(t, domain.BuildModeFixtures, defaultFixtures())
	ctx := context.Background()
	first := buildWith(t, p, defaultFixtures())
	_, err := p.loader(nil).Load(ctx, first, nil)
	require.NoError(t, err)

	set := defaultFixtures()
	set[domain.KimariteFixture] = []map[string]any{}
	second := buildWith(t, p, set)

	res, err := p.loader(nil).Load(ctx, second, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ChangeCounts{Removed: 1}, res.Counts[domain.EntityKimarite])
	assert.Equal(t, 1, res.Counts.Total())
	assert.True(t, p.store.Tombstoned(domain.EntityKimarite, "yorikiri"))
}

func TestLoad_NoChangesStillRecordsBuild(t *testing.T) {
	p := newPipeline(t, domain.BuildModeFixtures, defaultFixtures())
	ctx := context.Background()
	id := buildWith(t, p, defaultFixtures())

	_, err := p.differ.Diff(ctx, id, &id)
	require.NoError(t, err)

	res, err := p.loader(nil).Load(ctx, id, nil)
	require.NoError(t, err)
	assert.True(t, res.Noop)
	rec, err := p.store.GetBuild(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.BuildSuccess, rec.Status)
	_, ok := p.store.Rikishi("11927")
	assert.False(t, ok)
}

func TestLoad_ManifestMismatch(t *testing.T) {
	p := newPipeline(t, domain.BuildModeFixtures, defaultFixtures())
	id := buildWith(t, p, defaultFixtures())
	data, err := os.ReadFile(filepath.Join(p.artifacts.Dir(id), domain.ManifestFile))
	require.NoError(t, err)

	other := testSHA
	_, err = p.artifacts.WriteFile(other, domain.ManifestFile, data, 0)
	require.NoError(t, err)

	_, err = p.loader(nil).Load(context.Background(), other, nil)
	assert.ErrorIs(t, err, domain.ErrBuildIDMismatch)
}

func TestLoad_MissingBuild(t *testing.T) {
	p := newPipeline(t, domain.BuildModeFixtures, defaultFixtures())
	_, err := p.loader(nil).Load(context.Background(), testSHA, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoad_RejectsPathLikeBuildIDs(t *testing.T) {
	p := newPipeline(t, domain.BuildModeFixtures, defaultFixtures())

	for _, id := range []string{"../x", "", strings.ToUpper(testSHA), testSHA[:63]} {
		_, err := p.loader(nil).Load(context.Background(), id, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "id %q", id)
	}
}
