package domain

import (
	"path/filepath"
	"time"
)

// IngestMode selects where ingestion reads upstream bodies from.
type IngestMode string

const (
	// IngestOffline reads bodies and capture records from a fixture directory.
	IngestOffline IngestMode = "offline"

	// IngestLive fetches bodies over HTTP.
	IngestLive IngestMode = "live"
)

// Config holds the resolved pipeline configuration.
type Config struct {
	// DataDir holds builds, snapshots and the default database.
	DataDir string

	// DBPath is the store database file. Empty means DataDir/pipeline.db.
	DBPath string

	Build  BuildConfig
	Ingest IngestConfig
	Load   LoadConfig
}

// BuildConfig configures the build command.
type BuildConfig struct {
	Mode        BuildMode
	FixturesDir string
}

// IngestConfig configures basho ingestion.
type IngestConfig struct {
	Mode        IngestMode
	FixturesDir string
	OutputDir   string
	UserAgent   string
	RateLimit   time.Duration
	Timeout     time.Duration
	Blocked     BlockedConfig
}

// BlockedConfig tunes detection of interstitial pages served in place of
// the registry banzuke.
type BlockedConfig struct {
	MinBytes        int
	BlockTokens     []string
	ExpectedMarkers []string
}

// LoadConfig configures the loader.
type LoadConfig struct {
	// FailStep names a loader step after which an injected failure is raised.
	FailStep string
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	return Config{
		DataDir: "data",
		Build: BuildConfig{
			Mode:        BuildModeFull,
			FixturesDir: filepath.Join("pipeline", "fixtures"),
		},
		Ingest: IngestConfig{
			Mode:        IngestOffline,
			FixturesDir: filepath.Join("pipeline", "fixtures", "snapshots", "ingest"),
			OutputDir:   filepath.Join("data", "ingestion"),
			UserAgent:   "SumoPipelineIngestion/0.4 (+https://example.invalid)",
			RateLimit:   time.Second,
			Timeout:     20 * time.Second,
			Blocked:     DefaultBlockedConfig(),
		},
	}
}

// DefaultBlockedConfig returns the stock blocked-page heuristics.
func DefaultBlockedConfig() BlockedConfig {
	return BlockedConfig{
		MinBytes: 2000,
		BlockTokens: []string{
			"access denied",
			"forbidden",
			"captcha",
			"attention required",
			"request blocked",
			"bot",
			"cloudflare",
			"temporarily unavailable",
			"service unavailable",
		},
		ExpectedMarkers: []string{"banzuke", "enhonbashobanzuke", "sumo.or.jp", "rikishi"},
	}
}

// BuildsDir is where build directories are written.
func (c Config) BuildsDir() string { return filepath.Join(c.DataDir, "builds") }

// SnapshotsDir is the root of the content-addressed snapshot store.
func (c Config) SnapshotsDir() string { return filepath.Join(c.DataDir, "snapshots") }

// SnapshotFixturesDir holds capture records consumed by full builds.
func (c Config) SnapshotFixturesDir() string { return filepath.Join(c.Build.FixturesDir, "snapshots") }

// DatabasePath returns the store database file.
func (c Config) DatabasePath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.DataDir, "pipeline.db")
}
