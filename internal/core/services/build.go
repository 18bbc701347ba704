package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/canonical"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driven"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driving"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/hashing"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/logger"
)

// Ensure BuildService implements the interface.
var _ driving.Builder = (*BuildService)(nil)

const (
	// fixturePathPrefix is how fixture files are named in the manifest, so
	// that the build id does not depend on where the fixtures are checked out.
	fixturePathPrefix = "pipeline/fixtures/"

	// fixtureURLPrefix marks the snapshot fixtures that full builds parse.
	fixtureURLPrefix = "https://fixtures.local/"

	snapshotFixturesDir = "snapshots"
	metaSuffix          = ".meta.json"
)

// BuildService produces deterministic build directories.
type BuildService struct {
	cfg       domain.BuildConfig
	artifacts driven.ArtifactStore
	snapshots driven.SnapshotStore
	parsers   driven.ParserRegistry
}

// NewBuildService creates a build service. Build directories are written
// through artifacts, and snapshot fixtures are persisted to snapshots.
func NewBuildService(
	cfg domain.BuildConfig,
	artifacts driven.ArtifactStore,
	snapshots driven.SnapshotStore,
	parsers driven.ParserRegistry,
) *BuildService {
	if !cfg.Mode.Valid() {
		cfg.Mode = domain.BuildModeFull
	}
	return &BuildService{
		cfg:       cfg,
		artifacts: artifacts,
		snapshots: snapshots,
		parsers:   parsers,
	}
}

// canonicalSet holds one build's canonical collections.
type canonicalSet struct {
	rikishi  []domain.Rikishi
	basho    []domain.Basho
	banzuke  []domain.BanzukeEntry
	bouts    []domain.Bout
	kimarite []domain.Kimarite
}

func (c *canonicalSet) count() int {
	return len(c.rikishi) + len(c.basho) + len(c.banzuke) + len(c.bouts) + len(c.kimarite)
}

// fixtureRecords is the decoded content of every fixture file.
type fixtureRecords struct {
	rikishi  []domain.Rikishi
	basho    []domain.Basho
	banzuke  []domain.BanzukeEntry
	bouts    []domain.Bout
	kimarite []domain.Kimarite
}

// snapshotFixture is a verified capture read from the fixture tree.
type snapshotFixture struct {
	input domain.SnapshotInput
	snap  *domain.Snapshot
}

// Build reads every fixture, derives the canonical collections for the
// configured mode and writes the build directory.
func (s *BuildService) Build(ctx context.Context) (*domain.BuildResult, error) {
	logger.Section("build")

	records, inputs, err := s.readFixtures()
	if err != nil {
		return nil, err
	}
	snaps, err := s.readSnapshotFixtures()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snapInputs := make([]domain.SnapshotInput, 0, len(snaps))
	for _, sf := range snaps {
		snapInputs = append(snapInputs, sf.input)
	}
	manifestInputs := domain.ManifestInputs{Fixtures: inputs, Snapshots: snapInputs}

	buildID, err := hashing.StructuralHash(map[string]any{
		"inputs":          manifestInputs,
		"mode":            s.cfg.Mode,
		"pipelineVersion": domain.PipelineVersion,
		"schemaVersion":   domain.SchemaVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("hashing build inputs: %w", err)
	}
	logger.Info("Build %s (%s mode, %d fixtures, %d snapshots)", buildID, s.cfg.Mode, len(inputs), len(snapInputs))

	var (
		staged domain.StagedSet
		set    *canonicalSet
	)
	switch s.cfg.Mode {
	case domain.BuildModeFixtures:
		set, err = canonicalFromFixtures(records)
	default:
		staged, err = s.parseSnapshots(snaps)
		if err == nil {
			set, err = canonicalFromStaged(staged)
		}
	}
	if err != nil {
		return nil, err
	}
	if err := set.checkUnique(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stagedOut, err := writeStaged(s.artifacts, buildID, staged)
	if err != nil {
		return nil, err
	}
	canonicalOut, err := writeCanonical(s.artifacts, buildID, set)
	if err != nil {
		return nil, err
	}

	manifest := domain.BuildManifest{
		BuildID:         buildID,
		PipelineVersion: domain.PipelineVersion,
		SchemaVersion:   domain.SchemaVersion,
		Inputs:          manifestInputs,
		Outputs:         domain.ManifestOutputs{Staged: stagedOut, Canonical: canonicalOut},
	}
	if err := manifest.Validate(); err != nil {
		return nil, fmt.Errorf("validating manifest: %w", err)
	}
	data, err := hashing.Serialize(manifest)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	if _, err := s.artifacts.WriteFile(buildID, domain.ManifestFile, append(data, '\n'), 0); err != nil {
		return nil, err
	}

	logger.Info("Wrote %d staged and %d canonical rows", staged.Count(), set.count())
	return &domain.BuildResult{BuildID: buildID, BuildDir: s.artifacts.Dir(buildID)}, nil
}

// readFixtures reads the fixture arrays. Every mode reads and validates
// them, so a broken fixture fails the build even when it is not used.
func (s *BuildService) readFixtures() (*fixtureRecords, []domain.FixtureInput, error) {
	var (
		recs   fixtureRecords
		inputs []domain.FixtureInput
	)
	for _, name := range domain.FixtureFiles {
		raw, err := os.ReadFile(filepath.Join(s.cfg.FixturesDir, name))
		if err != nil {
			return nil, nil, fmt.Errorf("reading fixture %s: %w", name, err)
		}
		rows, n, err := sanitizedArray(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("fixture %s%s: %w", fixturePathPrefix, name, err)
		}

		switch name {
		case domain.RikishiFixture:
			recs.rikishi, err = decodeStrict(rows, domain.Rikishi.Validate)
		case domain.BashoFixture:
			recs.basho, err = decodeStrict(rows, domain.Basho.Validate)
		case domain.BanzukeFixture:
			recs.banzuke, err = decodeStrict(rows, domain.BanzukeEntry.Validate)
		case domain.BoutsFixture:
			recs.bouts, err = decodeStrict(rows, validateFixtureBout)
		case domain.KimariteFixture:
			recs.kimarite, err = decodeStrict(rows, domain.Kimarite.Validate)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("fixture %s%s: %w", fixturePathPrefix, name, err)
		}

		inputs = append(inputs, domain.FixtureInput{
			Path:      fixturePathPrefix + name,
			SHA256:    hashing.ContentHash(raw),
			SizeBytes: int64(len(raw)),
			Records:   n,
		})
	}
	slices.SortFunc(inputs, func(a, b domain.FixtureInput) int { return strings.Compare(a.Path, b.Path) })
	return &recs, inputs, nil
}

// validateFixtureBout rejects fixture bouts that carry their own id; the id
// is always derived.
func validateFixtureBout(b domain.Bout) error {
	if b.BoutID != "" {
		return fmt.Errorf("%w: bout fixtures must not carry boutId", domain.ErrInvalidInput)
	}
	return b.ValidateInput()
}

// sanitizedArray decodes a JSON array, sanitises every element and returns
// the survivors along with the original element count.
func sanitizedArray(raw []byte) ([]json.RawMessage, int, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, 0, fmt.Errorf("%w: must be a JSON array: %v", domain.ErrInvalidInput, err)
	}
	rows, err := domain.SanitizeRecords(items)
	if err != nil {
		return nil, 0, err
	}
	return rows, len(items), nil
}

// decodeStrict decodes each row into T, rejecting unknown fields, and
// validates it.
func decodeStrict[T any](rows []json.RawMessage, validate func(T) error) ([]T, error) {
	out := make([]T, 0, len(rows))
	for i, row := range rows {
		dec := json.NewDecoder(bytes.NewReader(row))
		dec.DisallowUnknownFields()
		var v T
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", domain.ErrInvalidInput, i, err)
		}
		if err := validate(v); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// readSnapshotFixtures walks the snapshot fixture tree, verifies each
// capture against its body and persists it to the snapshot store. The
// result is ordered by source, then digest.
func (s *BuildService) readSnapshotFixtures() ([]snapshotFixture, error) {
	root := filepath.Join(s.cfg.FixturesDir, snapshotFixturesDir)
	metas, err := listCaptures(root)
	if err != nil {
		return nil, err
	}

	out := make([]snapshotFixture, 0, len(metas))
	for _, path := range metas {
		meta, body, err := readCapture(root, path)
		if err != nil {
			return nil, err
		}
		stored, err := s.snapshots.Put(meta.Source, body, meta.ContentType, meta.HTTPStatus)
		if err != nil {
			return nil, fmt.Errorf("persisting snapshot fixture %s: %w", meta.URL, err)
		}
		out = append(out, snapshotFixture{
			input: domain.SnapshotInput{
				Source: meta.Source,
				SHA256: stored.ContentSHA256,
				URL:    meta.URL,
				Bytes:  int64(len(body)),
			},
			snap: &domain.Snapshot{Meta: meta, Body: body},
		})
	}
	slices.SortFunc(out, func(a, b snapshotFixture) int {
		if c := strings.Compare(string(a.input.Source), string(b.input.Source)); c != 0 {
			return c
		}
		return strings.Compare(a.input.SHA256, b.input.SHA256)
	})
	return out, nil
}

// listCaptures returns every capture record under root in path order. A
// missing root holds no captures.
func listCaptures(root string) ([]string, error) {
	var metas []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), metaSuffix) {
			metas = append(metas, path)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("walking snapshot fixtures: %w", err)
	}
	slices.Sort(metas)
	return metas, nil
}

// readCapture reads a capture record and its body, and checks the body's
// digest and length against the record.
func readCapture(root, metaPath string) (domain.SnapshotMeta, []byte, error) {
	rel, err := filepath.Rel(root, metaPath)
	if err != nil {
		rel = metaPath
	}
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return domain.SnapshotMeta{}, nil, fmt.Errorf("reading snapshot fixture %s: %w", rel, err)
	}
	meta, err := domain.DecodeSnapshotMeta(data)
	if err != nil {
		return domain.SnapshotMeta{}, nil, fmt.Errorf("snapshot fixture %s: %w", rel, err)
	}
	bodyPath := strings.TrimSuffix(metaPath, metaSuffix) + domain.ExtensionForContentType(meta.ContentType)
	body, err := os.ReadFile(bodyPath)
	if err != nil {
		return domain.SnapshotMeta{}, nil, fmt.Errorf("reading snapshot fixture body %s: %w", rel, err)
	}
	if hashing.ContentHash(body) != meta.ContentSHA256 {
		return domain.SnapshotMeta{}, nil, fmt.Errorf("%w: snapshot fixture sha mismatch: %s", domain.ErrInvalidInput, rel)
	}
	if int64(len(body)) != meta.Bytes {
		return domain.SnapshotMeta{}, nil, fmt.Errorf("%w: snapshot fixture byte-length mismatch: %s", domain.ErrInvalidInput, rel)
	}
	return meta, body, nil
}

// parseSnapshots runs the source parsers over the fixture captures. Only
// captures recorded under the fixture host are parsed; the rest are inputs
// to the build id and nothing more.
func (s *BuildService) parseSnapshots(snaps []snapshotFixture) (domain.StagedSet, error) {
	var staged domain.StagedSet
	for _, sf := range snaps {
		if !strings.HasPrefix(sf.input.URL, fixtureURLPrefix) {
			continue
		}
		recs, err := s.parsers.Parse(sf.snap)
		if err != nil {
			return staged, fmt.Errorf("parsing %s snapshot %s: %w", sf.input.Source, sf.input.URL, err)
		}
		logger.Debug("Parsed %d %s rows from %s", len(recs), sf.input.Source, sf.input.URL)
		staged.Add(recs...)
	}
	staged.Sort()
	return staged, nil
}

func canonicalFromFixtures(recs *fixtureRecords) (*canonicalSet, error) {
	bouts, err := canonical.MergeBouts(recs.bouts)
	if err != nil {
		return nil, err
	}
	set := &canonicalSet{
		rikishi:  slices.Clone(recs.rikishi),
		basho:    slices.Clone(recs.basho),
		banzuke:  slices.Clone(recs.banzuke),
		bouts:    bouts,
		kimarite: slices.Clone(recs.kimarite),
	}
	for i := range set.rikishi {
		set.rikishi[i].SourceRefs = domain.DedupeSourceRefs(set.rikishi[i].SourceRefs)
	}
	for i := range set.basho {
		set.basho[i].SourceRefs = domain.DedupeSourceRefs(set.basho[i].SourceRefs)
	}
	for i := range set.banzuke {
		set.banzuke[i].SourceRefs = domain.DedupeSourceRefs(set.banzuke[i].SourceRefs)
	}
	for i := range set.kimarite {
		set.kimarite[i].SourceRefs = domain.DedupeSourceRefs(set.kimarite[i].SourceRefs)
	}
	domain.SortRikishi(set.rikishi)
	domain.SortBasho(set.basho)
	domain.SortBanzuke(set.banzuke)
	domain.SortKimarite(set.kimarite)
	return set, nil
}

// canonicalFromStaged derives rikishi, banzuke and basho rows from staged
// records. Bouts and kimarite only come from basho ingestion.
func canonicalFromStaged(staged domain.StagedSet) (*canonicalSet, error) {
	rikishi := canonical.MergeRikishi(staged)
	banzuke, err := canonical.MergeBanzuke(staged.JSA, canonical.NameIndex(rikishi))
	if err != nil {
		return nil, err
	}
	return &canonicalSet{
		rikishi: rikishi,
		basho:   canonical.MergeBasho(banzuke, nil, nil),
		banzuke: banzuke,
	}, nil
}

// checkUnique fails on the first identity key seen twice.
func (c *canonicalSet) checkUnique() error {
	checks := []func() error{
		func() error { return unique(c.rikishi, func(r domain.Rikishi) string { return r.RikishiID }, "rikishiId") },
		func() error { return unique(c.basho, func(b domain.Basho) string { return b.BashoID }, "bashoId") },
		func() error { return unique(c.banzuke, domain.BanzukeEntry.Key, "banzuke") },
		func() error { return unique(c.bouts, func(b domain.Bout) string { return b.BoutID }, "boutId") },
		func() error { return unique(c.kimarite, func(k domain.Kimarite) string { return k.KimariteID }, "kimariteId") },
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func unique[T any](rows []T, key func(T) string, label string) error {
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		k := key(r)
		if seen[k] {
			return fmt.Errorf("%w: duplicate %s key: %s", domain.ErrDuplicateKey, label, k)
		}
		seen[k] = true
	}
	return nil
}

// writeStaged writes the four staged files under id, sorted by path.
func writeStaged(store driven.ArtifactStore, id string, staged domain.StagedSet) ([]domain.OutputFile, error) {
	staged.Sort()
	writers := []func() (*domain.OutputFile, error){
		func() (*domain.OutputFile, error) { return writeLines(store, id, domain.StagedJSAFile, staged.JSA) },
		func() (*domain.OutputFile, error) { return writeLines(store, id, domain.StagedSumoDBFile, staged.SumoDB) },
		func() (*domain.OutputFile, error) { return writeLines(store, id, domain.StagedWikimediaFile, staged.Wikimedia) },
		func() (*domain.OutputFile, error) { return writeLines(store, id, domain.StagedWikipediaFile, staged.Wikipedia) },
	}
	return runWriters(writers)
}

// writeCanonical writes one JSONL file per entity under id, sorted by path.
func writeCanonical(store driven.ArtifactStore, id string, set *canonicalSet) ([]domain.OutputFile, error) {
	writers := []func() (*domain.OutputFile, error){
		func() (*domain.OutputFile, error) { return writeLines(store, id, canonicalPath(domain.EntityRikishi), set.rikishi) },
		func() (*domain.OutputFile, error) { return writeLines(store, id, canonicalPath(domain.EntityBasho), set.basho) },
		func() (*domain.OutputFile, error) { return writeLines(store, id, canonicalPath(domain.EntityBanzuke), set.banzuke) },
		func() (*domain.OutputFile, error) { return writeLines(store, id, canonicalPath(domain.EntityBout), set.bouts) },
		func() (*domain.OutputFile, error) { return writeLines(store, id, canonicalPath(domain.EntityKimarite), set.kimarite) },
	}
	return runWriters(writers)
}

func runWriters(writers []func() (*domain.OutputFile, error)) ([]domain.OutputFile, error) {
	out := make([]domain.OutputFile, 0, len(writers))
	for _, w := range writers {
		f, err := w()
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	sortOutputs(out)
	return out, nil
}

func canonicalPath(t domain.EntityType) string {
	return domain.CanonicalDir + "/" + t.CanonicalFile()
}

func writeLines[T any](store driven.ArtifactStore, id, rel string, rows []T) (*domain.OutputFile, error) {
	data, err := hashing.SerializeLines(rows)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", rel, err)
	}
	return store.WriteFile(id, rel, data, len(rows))
}

func sortOutputs(files []domain.OutputFile) {
	slices.SortFunc(files, func(a, b domain.OutputFile) int { return strings.Compare(a.Path, b.Path) })
}
