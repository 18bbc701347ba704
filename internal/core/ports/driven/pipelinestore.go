package driven

import (
	"context"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
)

// PipelineStore persists loaded builds and canonical entities.
type PipelineStore interface {
	// GetBuild retrieves a build record.
	// Returns domain.ErrNotFound if the build was never loaded.
	GetBuild(ctx context.Context, buildID string) (*domain.BuildRecord, error)

	// LatestSuccessfulBuild returns the most recently updated SUCCESS build
	// other than exclude. Returns domain.ErrNotFound if there is none.
	LatestSuccessfulBuild(ctx context.Context, exclude string) (*domain.BuildRecord, error)

	// MarkBuildFailed records a failed load outside of any transaction.
	MarkBuildFailed(ctx context.Context, rec domain.BuildRecord) error

	// WithinTx runs fn in a single transaction. If fn returns an error every
	// write made through the PipelineTx is rolled back.
	WithinTx(ctx context.Context, fn func(tx PipelineTx) error) error
}

// PipelineTx is the write surface available inside a transaction.
type PipelineTx interface {
	UpsertBuild(rec domain.BuildRecord) error
	ReplaceBuildSnapshots(buildID string, snaps []domain.BuildSnapshot) error
	SetBuildStatus(buildID string, status domain.BuildStatus) error

	// Entity upserts insert or replace by identity and stamp the row with
	// the build that last wrote it.
	UpsertRikishi(buildID string, r domain.Rikishi) error
	UpsertBasho(buildID string, b domain.Basho) error
	UpsertKimarite(buildID string, k domain.Kimarite) error
	UpsertBanzukeEntry(buildID, id string, e domain.BanzukeEntry) error
	UpsertBout(buildID string, b domain.Bout) error

	// Tombstone records that an entity was removed by a build.
	// Recording the same tombstone twice is a no-op.
	Tombstone(t domain.Tombstone) error

	// ReplaceSourceRefs swaps every provenance row of a build.
	ReplaceSourceRefs(buildID string, refs []domain.SourceRefRow) error
}

// StoreCounts is the number of rows in each persisted table.
type StoreCounts struct {
	Builds         int `json:"builds"`
	BuildSnapshots int `json:"buildSnapshots"`
	Rikishi        int `json:"rikishi"`
	Basho          int `json:"basho"`
	Kimarite       int `json:"kimarite"`
	BanzukeEntries int `json:"banzukeEntries"`
	Bouts          int `json:"bouts"`
	Tombstones     int `json:"tombstones"`
	SourceRefs     int `json:"sourceRefs"`
}

// Counter reports table sizes. Verification uses it to check that
// repeated loads leave the store unchanged.
type Counter interface {
	Counts(ctx context.Context) (StoreCounts, error)
}

// IngestionStore persists per-basho ingestion state.
type IngestionStore interface {
	// EnsurePending creates a PENDING record if none exists.
	EnsurePending(ctx context.Context, bashoID string) error

	// Get retrieves a record. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, bashoID string) (*domain.IngestionRecord, error)

	MarkInProgress(ctx context.Context, bashoID, runID string) error
	MarkComplete(ctx context.Context, bashoID string, snapshotCount int, buildID string) error
	MarkFailed(ctx context.Context, bashoID, message string) error
}
