// Package sqlite provides a SQLite-based implementation of the pipeline's
// persistent store ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. One database holds:
//
//   - the build registry and each build's snapshot linkage
//   - canonical rikishi, basho, kimarite, banzuke and bout rows
//   - tombstones and per-build provenance rows
//   - per-basho ingestion state
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Transactions
//
// PipelineStore.WithinTx runs a load in one transaction; nothing a failed
// load wrote is visible afterwards.
package sqlite
