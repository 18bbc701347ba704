// Package driving defines the operations the command line drives: build,
// diff, load, ingest and verify. These are the "driving" ports of the
// hexagon; internal/core/services implements them.
package driving
