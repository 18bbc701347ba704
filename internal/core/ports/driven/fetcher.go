package driven

import (
	"context"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
)

// Fetcher captures one upstream page for a basho. The body is persisted to
// the snapshot store before the capture record is returned.
// Failures are returned as *domain.IngestError.
type Fetcher interface {
	Fetch(ctx context.Context, bashoID string, req domain.RequiredSnapshot) (*domain.Snapshot, error)
}

// SnapshotStore persists snapshot bodies addressed by their SHA-256.
type SnapshotStore interface {
	// Put stores body under source and returns its sidecar. Re-putting the
	// same bytes is a no-op that returns the first sidecar written.
	Put(source domain.Source, body []byte, contentType string, httpStatus int) (*domain.StoredSnapshotMeta, error)

	// Get reads a body and sidecar, verifying both against the address.
	Get(source domain.Source, sha256 string) (*domain.StoredSnapshotMeta, []byte, error)
}
