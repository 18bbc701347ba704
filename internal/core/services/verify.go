package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driven"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driving"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/hashing"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/logger"
)

// Ensure VerifyService implements the interface.
var _ driving.Verifier = (*VerifyService)(nil)

// VerifyService checks that builds are deterministic and that their
// outputs hold every row invariant.
type VerifyService struct {
	fixturesDir string
	builder     driving.Builder
	artifacts   driven.ArtifactStore
	snapshots   driven.SnapshotStore
	loader      driving.Loader
	counter     driven.Counter
}

// NewVerifyService creates a verify service over the build fixtures in
// fixturesDir.
func NewVerifyService(
	fixturesDir string,
	builder driving.Builder,
	artifacts driven.ArtifactStore,
	snapshots driven.SnapshotStore,
) *VerifyService {
	return &VerifyService{
		fixturesDir: fixturesDir,
		builder:     builder,
		artifacts:   artifacts,
		snapshots:   snapshots,
	}
}

// WithLoadCheck makes Verify load the build three times and check that the
// store's row counts do not move after the first load.
func (s *VerifyService) WithLoadCheck(loader driving.Loader, counter driven.Counter) *VerifyService {
	s.loader = loader
	s.counter = counter
	return s
}

// builtFiles is a manifest and the bytes of every output it lists.
type builtFiles struct {
	id       string
	manifest []byte
	outputs  map[string][]byte
}

// Verify runs every check and reports the problems found. An error is
// returned only when a check could not run at all.
func (s *VerifyService) Verify(ctx context.Context) (*domain.VerifyReport, error) {
	logger.Section("verify")
	report := &domain.VerifyReport{Problems: []string{}}
	problem := func(format string, args ...any) {
		report.Problems = append(report.Problems, fmt.Sprintf(format, args...))
	}

	root := filepath.Join(s.fixturesDir, snapshotFixturesDir)
	metas, err := listCaptures(root)
	if err != nil {
		return nil, err
	}
	for _, p := range metas {
		if _, _, err := readCapture(root, p); err != nil {
			problem("%v", err)
		}
	}
	report.SnapshotFixtures = len(metas)

	first, err := s.buildOnce(ctx)
	if err != nil {
		return nil, err
	}
	second, err := s.buildOnce(ctx)
	if err != nil {
		return nil, err
	}
	report.DeterministicRuns = 2
	report.BuildID = second.id

	if first.id != second.id {
		problem("buildId must be stable for identical fixtures: %s != %s", first.id, second.id)
	}
	if !bytes.Equal(first.manifest, second.manifest) {
		problem("manifest.json bytes differ across identical runs")
	}
	if len(first.outputs) != len(second.outputs) {
		problem("output file count differs across identical runs")
	}
	for p, data := range second.outputs {
		if !bytes.Equal(first.outputs[p], data) {
			problem("output file bytes differ across identical runs: %s", p)
		}
	}

	var manifest domain.BuildManifest
	if err := json.Unmarshal(second.manifest, &manifest); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	s.checkOutputs(manifest, second, report, problem)
	s.checkSnapshots(manifest, problem)

	if s.loader != nil && s.counter != nil {
		if err := s.checkLoad(ctx, second.id, problem); err != nil {
			return nil, err
		}
	}

	logger.Info("Verified build %s: %d files, %d rows, %d problems",
		report.BuildID, report.CheckedFiles, report.CheckedRows, len(report.Problems))
	return report, nil
}

// buildOnce runs a build and reads back its manifest and outputs before
// the next run can replace them.
func (s *VerifyService) buildOnce(ctx context.Context) (*builtFiles, error) {
	res, err := s.builder.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	data, err := s.artifacts.ReadFile(res.BuildID, domain.ManifestFile)
	if err != nil {
		return nil, err
	}
	var m domain.BuildManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	out := &builtFiles{id: res.BuildID, manifest: data, outputs: map[string][]byte{}}
	for _, f := range slices.Concat(m.Outputs.Staged, m.Outputs.Canonical) {
		b, err := s.artifacts.ReadFile(res.BuildID, f.Path)
		if err != nil {
			return nil, err
		}
		out.outputs[f.Path] = b
	}
	return out, nil
}

func (s *VerifyService) checkOutputs(m domain.BuildManifest, built *builtFiles, report *domain.VerifyReport, problem func(string, ...any)) {
	for label, files := range map[string][]domain.OutputFile{"staged": m.Outputs.Staged, "canonical": m.Outputs.Canonical} {
		if !slices.IsSortedFunc(files, func(a, b domain.OutputFile) int { return strings.Compare(a.Path, b.Path) }) {
			problem("manifest.outputs.%s must be sorted by path", label)
		}
	}
	if !slices.IsSortedFunc(m.Inputs.Snapshots, func(a, b domain.SnapshotInput) int {
		return cmpChain(strings.Compare(string(a.Source), string(b.Source)), strings.Compare(a.SHA256, b.SHA256))
	}) {
		problem("manifest.inputs.snapshots must be sorted by source then sha256")
	}

	for _, f := range slices.Concat(m.Outputs.Staged, m.Outputs.Canonical) {
		data := built.outputs[f.Path]
		report.CheckedFiles++
		if hashing.ContentHash(data) != f.SHA256 {
			problem("%s: sha256 does not match manifest", f.Path)
		}
		if int64(len(data)) != f.Bytes {
			problem("%s: byte count does not match manifest", f.Path)
		}
		if bytes.Contains(data, []byte(":null")) {
			problem("%s contains null literal", f.Path)
		}
		rows, err := decodeLines(data)
		if err != nil {
			problem("%s: %v", f.Path, err)
			continue
		}
		if len(rows) != f.Rows {
			problem("%s: row count %d does not match manifest %d", f.Path, len(rows), f.Rows)
		}
		report.CheckedRows += len(rows)
		for i, row := range rows {
			if domain.ContainsPlaceholder(row) {
				problem("%s row %d contains null/empty/placeholder values", f.Path, i)
			}
		}
		if err := checkRows(path.Base(f.Path), data); err != nil {
			problem("%s: %v", f.Path, err)
		}
	}
}

// checkRows validates every row of a known output file and checks that the
// rows are in their canonical order.
func checkRows(name string, data []byte) error {
	switch name {
	case domain.EntityRikishi.CanonicalFile():
		return checkSorted(data, domain.Rikishi.Validate, domain.CompareRikishi)
	case domain.EntityBasho.CanonicalFile():
		return checkSorted(data, domain.Basho.Validate, domain.CompareBasho)
	case domain.EntityBanzuke.CanonicalFile():
		return checkSorted(data, domain.BanzukeEntry.Validate, domain.CompareBanzuke)
	case domain.EntityBout.CanonicalFile():
		return checkSorted(data, domain.Bout.Validate, domain.CompareBouts)
	case domain.EntityKimarite.CanonicalFile():
		return checkSorted(data, domain.Kimarite.Validate, domain.CompareKimarite)
	case path.Base(domain.StagedSumoDBFile):
		return checkSorted(data, domain.StagedSumoDBRikishi.Validate, nil)
	case path.Base(domain.StagedJSAFile):
		return checkSorted(data, domain.StagedJSARikishi.Validate, nil)
	case path.Base(domain.StagedWikipediaFile):
		return checkSorted(data, domain.StagedWikipediaRikishi.Validate, nil)
	case path.Base(domain.StagedWikimediaFile):
		return checkSorted(data, domain.StagedWikimediaImage.Validate, nil)
	}
	return nil
}

func checkSorted[T any](data []byte, validate func(T) error, compare func(a, b T) int) error {
	var rows []T
	for i, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.DisallowUnknownFields()
		var v T
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
		if err := validate(v); err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
		rows = append(rows, v)
	}
	if compare == nil {
		return nil
	}
	for i := 1; i < len(rows); i++ {
		if compare(rows[i-1], rows[i]) > 0 {
			return fmt.Errorf("ordering is not monotonic at index=%d", i-1)
		}
	}
	return nil
}

// checkSnapshots reads every manifest snapshot back from the store.
func (s *VerifyService) checkSnapshots(m domain.BuildManifest, problem func(string, ...any)) {
	for _, in := range m.Inputs.Snapshots {
		meta, body, err := s.snapshots.Get(in.Source, in.SHA256)
		if err != nil {
			problem("snapshot %s:%s: %v", in.Source, in.SHA256, err)
			continue
		}
		if meta.Bytes != in.Bytes {
			problem("snapshot bytes mismatch for %s:%s", in.Source, in.SHA256)
		}
		if hashing.ContentHash(body) != in.SHA256 {
			problem("snapshot body sha mismatch for %s:%s", in.Source, in.SHA256)
		}
	}
}

// checkLoad loads buildID three times; the second and third loads must
// leave every table the same size.
func (s *VerifyService) checkLoad(ctx context.Context, buildID string, problem func(string, ...any)) error {
	for range 2 {
		if _, err := s.loader.Load(ctx, buildID, nil); err != nil {
			return fmt.Errorf("load: %w", err)
		}
	}
	before, err := s.counter.Counts(ctx)
	if err != nil {
		return err
	}
	res, err := s.loader.Load(ctx, buildID, nil)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	after, err := s.counter.Counts(ctx)
	if err != nil {
		return err
	}
	if !res.Noop {
		problem("repeated load of %s was not a no-op", buildID)
	}
	if before != after {
		problem("store row counts changed on repeated load of %s", buildID)
	}
	return nil
}

// decodeLines decodes each non-blank line of a JSONL file.
func decodeLines(data []byte) ([]map[string]any, error) {
	var rows []map[string]any
	for i, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		var row map[string]any
		if err := dec.Decode(&row); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
