package domain

import (
	"fmt"
	"path/filepath"
)

// Versions recorded in every manifest and build record.
const (
	PipelineVersion = "0.4.0"
	SchemaVersion   = "0.4.0"
)

// BuildMode selects where canonical rows come from.
type BuildMode string

const (
	// BuildModeFixtures validates curated canonical fixture files.
	BuildModeFixtures BuildMode = "fixtures"

	// BuildModeFull derives canonical rows from captured snapshots.
	BuildModeFull BuildMode = "full"
)

// Valid reports whether m is a known build mode.
func (m BuildMode) Valid() bool {
	return m == BuildModeFixtures || m == BuildModeFull
}

// FixtureInput describes one fixture file consumed by a build.
type FixtureInput struct {
	Path      string `json:"path"`
	SHA256    string `json:"sha256"`
	SizeBytes int64  `json:"sizeBytes"`
	Records   int    `json:"records"`
}

// SnapshotInput describes one snapshot consumed by a build.
type SnapshotInput struct {
	Source Source `json:"source"`
	SHA256 string `json:"sha256"`
	URL    string `json:"url"`
	Bytes  int64  `json:"bytes"`
}

// OutputFile describes one file written by a build.
type OutputFile struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
	Bytes  int64  `json:"bytes"`
	Rows   int    `json:"rows"`
}

// ManifestInputs lists everything a build read.
type ManifestInputs struct {
	Fixtures  []FixtureInput  `json:"fixtures"`
	Snapshots []SnapshotInput `json:"snapshots"`
}

// ManifestOutputs lists everything a build wrote.
type ManifestOutputs struct {
	Staged    []OutputFile `json:"staged"`
	Canonical []OutputFile `json:"canonical"`
}

// BuildManifest is written to manifest.json in every build directory.
type BuildManifest struct {
	BuildID         string          `json:"buildId"`
	PipelineVersion string          `json:"pipelineVersion"`
	SchemaVersion   string          `json:"schemaVersion"`
	Inputs          ManifestInputs  `json:"inputs"`
	Outputs         ManifestOutputs `json:"outputs"`
}

// Validate checks manifest shape.
func (m BuildManifest) Validate() error {
	if !isHex64(m.BuildID) {
		return fmt.Errorf("%w: manifest.buildId %q", ErrInvalidInput, m.BuildID)
	}
	if m.PipelineVersion == "" || m.SchemaVersion == "" {
		return fmt.Errorf("%w: manifest versions are required", ErrInvalidInput)
	}
	if len(m.Inputs.Fixtures) == 0 {
		return fmt.Errorf("%w: manifest has no fixture inputs", ErrInvalidInput)
	}
	if len(m.Outputs.Canonical) == 0 {
		return fmt.Errorf("%w: manifest has no canonical outputs", ErrInvalidInput)
	}
	for _, f := range m.Inputs.Fixtures {
		if !isHex64(f.SHA256) {
			return fmt.Errorf("%w: fixture %s sha256", ErrInvalidInput, f.Path)
		}
	}
	for _, s := range m.Inputs.Snapshots {
		if !isHex64(s.SHA256) || !s.Source.Valid() {
			return fmt.Errorf("%w: snapshot input %s", ErrInvalidInput, s.URL)
		}
	}
	for _, o := range append(append([]OutputFile{}, m.Outputs.Staged...), m.Outputs.Canonical...) {
		if !isHex64(o.SHA256) {
			return fmt.Errorf("%w: output %s sha256", ErrInvalidInput, o.Path)
		}
	}
	return nil
}

// Fixture file names read by every build.
const (
	RikishiFixture  = "rikishi.fixture.json"
	BashoFixture    = "basho.fixture.json"
	BanzukeFixture  = "banzuke_entries.fixture.json"
	BoutsFixture    = "bouts.fixture.json"
	KimariteFixture = "kimarite.fixture.json"
)

// FixtureFiles lists the fixture names in path order.
var FixtureFiles = []string{BanzukeFixture, BashoFixture, BoutsFixture, KimariteFixture, RikishiFixture}

// Layout of a build directory.
const (
	ManifestFile = "manifest.json"
	CanonicalDir = "canonical"
	StagedDir    = "staged"
	DiffDir      = "diff"
)

// BuildDir returns the directory of a build under the builds root.
func BuildDir(buildsRoot, buildID string) string {
	return filepath.Join(buildsRoot, buildID)
}
