// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//
// Resolve layers a ConfigStore and the process environment over the
// built-in defaults to produce the pipeline configuration.
package file
