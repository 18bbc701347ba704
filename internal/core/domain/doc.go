// Package domain defines the core entities of the sumo data pipeline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Rikishi, Basho, BanzukeEntry, Bout, Kimarite: canonical rows
//   - Staged records: per-source rows extracted from snapshots
//   - SnapshotMeta: the capture record of one upstream response
//   - BuildManifest and DiffRow: build and change artefacts
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
