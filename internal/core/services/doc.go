// Package services implements the driving port interfaces.
// Services contain the pipeline logic and orchestrate
// calls to driven ports (adapters).
//
// Build, diff and load form the offline path from fixtures to the store;
// ingestion captures one basho at a time from the upstream sources.
package services
