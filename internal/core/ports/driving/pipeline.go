package driving

import (
	"context"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
)

// Builder produces a deterministic build directory.
type Builder interface {
	// Build reads inputs, writes staged and canonical outputs and the manifest.
	Build(ctx context.Context) (*domain.BuildResult, error)
}

// Differ compares the canonical outputs of two builds.
type Differ interface {
	// Diff writes added, changed and removed rows for buildID. A nil previous
	// means the latest successfully loaded build other than buildID.
	Diff(ctx context.Context, buildID string, previous *string) (*domain.DiffResult, error)
}

// Loader applies a build's diff to the canonical store.
type Loader interface {
	// Load applies buildID in one transaction. Loading a SUCCESS build again
	// is a no-op. previous is passed to Diff when the diff is missing.
	Load(ctx context.Context, buildID string, previous *string) (*domain.LoadResult, error)
}

// Ingestor captures and canonicalises tournaments.
type Ingestor interface {
	// IngestBasho runs one tournament end to end.
	IngestBasho(ctx context.Context, bashoID string) (*domain.IngestSummary, error)

	// IngestRange runs every tournament from one id to another, skipping
	// COMPLETE tournaments unless force is set.
	IngestRange(ctx context.Context, from, to string, force bool) (*domain.RangeResult, error)
}

// Verifier checks determinism and output invariants of the build.
type Verifier interface {
	Verify(ctx context.Context) (*domain.VerifyReport, error)
}
