// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Fetcher: Captures upstream pages (offline fixtures or live HTTP)
//   - SnapshotStore: Content-addressed snapshot bodies and sidecars
//   - SourceParser / BoutParser: Turn snapshot bodies into staged rows
//   - ParserRegistry: Selects the parser for a source
//   - ArtifactStore: Build and ingestion output files
//   - PipelineStore: Transactional canonical store
//   - IngestionStore: Per-basho ingestion state
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - BlockedDetector: Without it, registry pages are never treated as blocked.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
