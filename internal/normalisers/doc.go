// Package normalisers turns snapshot bodies into staged rows. Each source
// has its own sub-package implementing driven.SourceParser; the Registry
// dispatches a snapshot to the parser for its source.
//
// Parsers are registered with the Registry at startup.
package normalisers
