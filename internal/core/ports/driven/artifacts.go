package driven

import "github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"

// ArtifactStore reads and writes output directories keyed by id (a build id
// or a basho id). Every write is atomic: readers see the old file or the new
// one, never a partial one.
type ArtifactStore interface {
	// Dir returns the directory for id.
	Dir(id string) string

	// WriteFile writes data to rel under id's directory and describes it.
	WriteFile(id, rel string, data []byte, rows int) (*domain.OutputFile, error)

	// ReadFile reads rel under id's directory.
	ReadFile(id, rel string) ([]byte, error)

	// Exists reports whether rel exists under id's directory.
	Exists(id, rel string) bool

	// ReadRows decodes a JSONL file. A missing file yields no rows.
	ReadRows(id, rel string) ([]map[string]any, error)

	// WriteDiff writes one diff file under id's diff directory.
	WriteDiff(id, file string, rows []domain.DiffRow) error

	// ReadDiff reads one diff file. A missing file yields no rows.
	ReadDiff(id, file string) ([]domain.DiffRow, error)
}
