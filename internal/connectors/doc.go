// Package connectors holds the adapters that reach upstream sources.
// The fetch sub-package captures pages either from local fixture files
// (offline) or over HTTP (live), recording each response as a snapshot.
package connectors
