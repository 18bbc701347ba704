package domain

import "time"

// BuildStatus tracks a build through loading.
type BuildStatus string

const (
	BuildPending BuildStatus = "PENDING"
	BuildSuccess BuildStatus = "SUCCESS"
	BuildFailed  BuildStatus = "FAILED"
)

// BuildRecord is the persisted state of a loaded build.
type BuildRecord struct {
	BuildID         string
	PipelineVersion string
	SchemaVersion   string
	ManifestSHA256  string
	Status          BuildStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// BuildSnapshot links a build to a snapshot it consumed.
type BuildSnapshot struct {
	Source Source
	SHA256 string
	URL    string
	Bytes  int64
}

// Tombstone marks an entity removed by a build.
type Tombstone struct {
	EntityType EntityType
	EntityID   string
	BuildID    string
}

// SourceRefRow is a provenance row stored per build.
type SourceRefRow struct {
	EntityType     EntityType
	EntityID       string
	Source         Source
	SnapshotSHA256 string
	URL            string
	RefType        RefType
	Note           string
}

// BuildResult is returned by a build run.
type BuildResult struct {
	BuildID  string `json:"buildId"`
	BuildDir string `json:"buildDir"`
}

// LoadResult is returned by a load run.
type LoadResult struct {
	BuildID string     `json:"buildId"`
	Noop    bool       `json:"noop"`
	Counts  DiffCounts `json:"counts"`
}

// IngestionStatus tracks one basho through range ingestion.
type IngestionStatus string

const (
	IngestionPending    IngestionStatus = "PENDING"
	IngestionInProgress IngestionStatus = "IN_PROGRESS"
	IngestionComplete   IngestionStatus = "COMPLETE"
	IngestionFailed     IngestionStatus = "FAILED"
)

// IngestionRecord is the persisted state of one basho ingestion.
type IngestionRecord struct {
	BashoID       string
	Status        IngestionStatus
	RunID         string
	SnapshotCount int
	BuildID       string
	ErrorMessage  string
	StartedAt     *time.Time
	FinishedAt    *time.Time
	UpdatedAt     time.Time
}

// IngestSummary is returned by a single basho ingestion.
type IngestSummary struct {
	BashoID        string `json:"bashoId"`
	SnapshotCount  int    `json:"snapshotCount"`
	StagedCount    int    `json:"stagedCount"`
	CanonicalCount int    `json:"canonicalCount"`
	WarningCount   int    `json:"warningCount"`
	BuildID        string `json:"buildId"`
	OutputDir      string `json:"outputDir"`
}

// IngestOutcome is the result of one basho within a range.
type IngestOutcome struct {
	BashoID string          `json:"bashoId"`
	Status  IngestionStatus `json:"status"`
	Skipped bool            `json:"skipped,omitempty"`
	Summary *IngestSummary  `json:"summary,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// RangeResult is returned by range ingestion.
type RangeResult struct {
	From     string          `json:"from"`
	To       string          `json:"to"`
	Total    int             `json:"total"`
	Complete int             `json:"complete"`
	Failed   int             `json:"failed"`
	Skipped  int             `json:"skipped"`
	Results  []IngestOutcome `json:"results"`
}

// Warning is a non-fatal problem recorded during ingestion.
type Warning struct {
	Code    IngestErrorCode `json:"code"`
	Source  Source          `json:"source"`
	URL     string          `json:"url"`
	Message string          `json:"message"`
}

// VerifyReport is returned by a verification run.
type VerifyReport struct {
	BuildID           string   `json:"buildId"`
	SnapshotFixtures  int      `json:"snapshotFixtures"`
	CheckedFiles      int      `json:"checkedFiles"`
	CheckedRows       int      `json:"checkedRows"`
	DeterministicRuns int      `json:"deterministicRuns"`
	Problems          []string `json:"problems"`
}

// OK reports whether verification found no problems.
func (r *VerifyReport) OK() bool { return len(r.Problems) == 0 }
