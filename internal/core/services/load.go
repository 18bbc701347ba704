package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driven"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driving"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/hashing"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/logger"
)

// Ensure LoadService implements the interface.
var _ driving.Loader = (*LoadService)(nil)

// LoadStep names one stage of the load transaction.
type LoadStep string

// Load stages in the order they run.
const (
	StepBuildSnapshots LoadStep = "build-snapshots"
	StepRikishi        LoadStep = "rikishi"
	StepBasho          LoadStep = "basho"
	StepKimarite       LoadStep = "kimarite"
	StepBanzuke        LoadStep = "banzuke"
	StepBout           LoadStep = "bout"
	StepSourceRefs     LoadStep = "source-refs"
	StepStatus         LoadStep = "status"
)

// LoadSteps lists every stage in execution order.
var LoadSteps = []LoadStep{
	StepBuildSnapshots, StepRikishi, StepBasho, StepKimarite,
	StepBanzuke, StepBout, StepSourceRefs, StepStatus,
}

// Point is the interception point reached once step has run.
func (s LoadStep) Point() string { return "after-" + string(s) }

// Interceptor is called at every interception point inside the load
// transaction. A non-nil error aborts and rolls back the load.
type Interceptor func(point string) error

// FailAt returns an interceptor that fails at the named point. Matching is
// case-insensitive; an empty point never fails.
func FailAt(point string) Interceptor {
	point = strings.ToLower(strings.TrimSpace(point))
	return func(p string) error {
		if point != "" && p == point {
			return fmt.Errorf("%w at %s", domain.ErrInjectedFailure, p)
		}
		return nil
	}
}

// banzukeIDPrefix starts every persisted banzuke row id.
const banzukeIDPrefix = "bzk_"

// LoadService applies build diffs to the pipeline store.
type LoadService struct {
	artifacts driven.ArtifactStore
	store     driven.PipelineStore
	differ    driving.Differ
	intercept Interceptor
}

// NewLoadService creates a load service. differ writes the diff of a build
// that has none yet; intercept may be nil.
func NewLoadService(
	artifacts driven.ArtifactStore,
	store driven.PipelineStore,
	differ driving.Differ,
	intercept Interceptor,
) *LoadService {
	if intercept == nil {
		intercept = func(string) error { return nil }
	}
	return &LoadService{
		artifacts: artifacts,
		store:     store,
		differ:    differ,
		intercept: intercept,
	}
}

// loadPlan is everything a load writes, gathered before the transaction.
type loadPlan struct {
	record    domain.BuildRecord
	snapshots []domain.BuildSnapshot
	upserts   map[domain.EntityType][]domain.DiffRow
	removals  map[domain.EntityType][]domain.DiffRow
	refs      []domain.SourceRefRow
	counts    domain.DiffCounts
	rows      int
}

// Load applies buildID's diff in one transaction.
func (s *LoadService) Load(ctx context.Context, buildID string, previous *string) (*domain.LoadResult, error) {
	if err := checkBuildIDs(buildID, previous); err != nil {
		return nil, err
	}
	logger.Section("load")

	manifestData, err := s.artifacts.ReadFile(buildID, domain.ManifestFile)
	if err != nil {
		return nil, fmt.Errorf("reading manifest of %s: %w", buildID, err)
	}
	var manifest domain.BuildManifest
	if err := json.Unmarshal(manifestData, &manifest); err != nil {
		return nil, fmt.Errorf("%w: manifest of %s: %v", domain.ErrInvalidInput, buildID, err)
	}
	if manifest.BuildID != buildID {
		return nil, fmt.Errorf("%w: %s describes %s", domain.ErrBuildIDMismatch, buildID, manifest.BuildID)
	}

	existing, err := s.store.GetBuild(ctx, buildID)
	switch {
	case err == nil && existing.Status == domain.BuildSuccess:
		logger.Info("Build %s already loaded", buildID)
		return &domain.LoadResult{BuildID: buildID, Noop: true, Counts: domain.NewDiffCounts()}, nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("get build: %w", err)
	}

	if err := s.ensureDiff(ctx, buildID, previous); err != nil {
		return nil, err
	}
	plan, err := s.plan(buildID, manifest, manifestData)
	if err != nil {
		return nil, err
	}

	if plan.rows == 0 {
		err = s.store.WithinTx(ctx, func(tx driven.PipelineTx) error {
			rec := plan.record
			rec.Status = domain.BuildSuccess
			if err := tx.UpsertBuild(rec); err != nil {
				return err
			}
			return tx.ReplaceBuildSnapshots(buildID, plan.snapshots)
		})
		if err != nil {
			return nil, s.fail(ctx, plan.record, err)
		}
		logger.Info("Build %s has no changes", buildID)
		return &domain.LoadResult{BuildID: buildID, Noop: true, Counts: plan.counts}, nil
	}

	if err := s.store.WithinTx(ctx, func(tx driven.PipelineTx) error {
		return s.apply(tx, plan)
	}); err != nil {
		return nil, s.fail(ctx, plan.record, err)
	}

	logger.Info("Loaded build %s (%d rows)", buildID, plan.rows)
	return &domain.LoadResult{BuildID: buildID, Counts: plan.counts}, nil
}

// fail records the build as FAILED and returns the original error.
func (s *LoadService) fail(ctx context.Context, rec domain.BuildRecord, cause error) error {
	rec.Status = domain.BuildFailed
	if err := s.store.MarkBuildFailed(context.WithoutCancel(ctx), rec); err != nil {
		logger.Warn("Could not mark build %s failed: %v", rec.BuildID, err)
	}
	return fmt.Errorf("loading build %s: %w", rec.BuildID, cause)
}

func (s *LoadService) ensureDiff(ctx context.Context, buildID string, previous *string) error {
	for _, f := range domain.DiffFiles {
		if !s.artifacts.Exists(buildID, domain.DiffDir+"/"+f) {
			logger.Debug("Diff of %s missing, computing it", buildID)
			if _, err := s.differ.Diff(ctx, buildID, previous); err != nil {
				return fmt.Errorf("diffing build %s: %w", buildID, err)
			}
			return nil
		}
	}
	return nil
}

func (s *LoadService) plan(buildID string, manifest domain.BuildManifest, manifestData []byte) (*loadPlan, error) {
	plan := &loadPlan{
		record: domain.BuildRecord{
			BuildID:         buildID,
			PipelineVersion: manifest.PipelineVersion,
			SchemaVersion:   manifest.SchemaVersion,
			ManifestSHA256:  hashing.ContentHash(manifestData),
			Status:          domain.BuildPending,
		},
		snapshots: buildSnapshots(manifest.Inputs.Snapshots),
		upserts:   map[domain.EntityType][]domain.DiffRow{},
		removals:  map[domain.EntityType][]domain.DiffRow{},
		counts:    domain.NewDiffCounts(),
	}

	diff := map[string][]domain.DiffRow{}
	for _, f := range domain.DiffFiles {
		rows, err := s.artifacts.ReadDiff(buildID, f)
		if err != nil {
			return nil, err
		}
		diff[f] = rows
		plan.rows += len(rows)
	}

	count := func(rows []domain.DiffRow, inc func(*domain.ChangeCounts)) {
		for _, r := range rows {
			c := plan.counts[r.EntityType]
			inc(&c)
			plan.counts[r.EntityType] = c
		}
	}
	count(diff[domain.DiffAddedFile], func(c *domain.ChangeCounts) { c.Added++ })
	count(diff[domain.DiffChangedFile], func(c *domain.ChangeCounts) { c.Changed++ })
	count(diff[domain.DiffRemovedFile], func(c *domain.ChangeCounts) { c.Removed++ })

	for _, r := range slices.Concat(diff[domain.DiffAddedFile], diff[domain.DiffChangedFile]) {
		plan.upserts[r.EntityType] = append(plan.upserts[r.EntityType], r)
	}
	for _, r := range diff[domain.DiffRemovedFile] {
		plan.removals[r.EntityType] = append(plan.removals[r.EntityType], r)
	}
	for _, group := range []map[domain.EntityType][]domain.DiffRow{plan.upserts, plan.removals} {
		for _, rows := range group {
			slices.SortFunc(rows, func(a, b domain.DiffRow) int { return strings.Compare(a.EntityID, b.EntityID) })
		}
	}

	refs, err := sourceRefRows(plan.upserts)
	if err != nil {
		return nil, err
	}
	plan.refs = refs
	return plan, nil
}

// apply runs every load step inside tx.
func (s *LoadService) apply(tx driven.PipelineTx, plan *loadPlan) error {
	buildID := plan.record.BuildID
	steps := map[LoadStep]func() error{
		StepBuildSnapshots: func() error {
			if err := tx.UpsertBuild(plan.record); err != nil {
				return err
			}
			return tx.ReplaceBuildSnapshots(buildID, plan.snapshots)
		},
		StepRikishi: func() error {
			return applyEntity(tx, plan, domain.EntityRikishi, func(r domain.Rikishi, _ string) error {
				return tx.UpsertRikishi(buildID, r)
			})
		},
		StepBasho: func() error {
			return applyEntity(tx, plan, domain.EntityBasho, func(b domain.Basho, _ string) error {
				return tx.UpsertBasho(buildID, b)
			})
		},
		StepKimarite: func() error {
			return applyEntity(tx, plan, domain.EntityKimarite, func(k domain.Kimarite, _ string) error {
				return tx.UpsertKimarite(buildID, k)
			})
		},
		StepBanzuke: func() error {
			return applyEntity(tx, plan, domain.EntityBanzuke, func(e domain.BanzukeEntry, id string) error {
				return tx.UpsertBanzukeEntry(buildID, BanzukeRowID(id), e)
			})
		},
		StepBout: func() error {
			return applyEntity(tx, plan, domain.EntityBout, func(b domain.Bout, _ string) error {
				return tx.UpsertBout(buildID, b)
			})
		},
		StepSourceRefs: func() error {
			return tx.ReplaceSourceRefs(buildID, plan.refs)
		},
		StepStatus: func() error {
			return tx.SetBuildStatus(buildID, domain.BuildSuccess)
		},
	}

	for _, step := range LoadSteps {
		if err := steps[step](); err != nil {
			return fmt.Errorf("step %s: %w", step, err)
		}
		if err := s.intercept(step.Point()); err != nil {
			return err
		}
	}
	return nil
}

// applyEntity upserts then tombstones every diff row of one entity type.
func applyEntity[T any](tx driven.PipelineTx, plan *loadPlan, t domain.EntityType, upsert func(T, string) error) error {
	for _, r := range plan.upserts[t] {
		v, err := decodeRow[T](r.After)
		if err != nil {
			return fmt.Errorf("%s %s: %w", t, r.EntityID, err)
		}
		if err := upsert(v, r.EntityID); err != nil {
			return err
		}
	}
	for _, r := range plan.removals[t] {
		if err := tx.Tombstone(domain.Tombstone{
			EntityType: t,
			EntityID:   r.EntityID,
			BuildID:    plan.record.BuildID,
		}); err != nil {
			return err
		}
	}
	return nil
}

// decodeRow converts a decoded canonical row into its entity type.
func decodeRow[T any](row map[string]any) (T, error) {
	var v T
	data, err := json.Marshal(row)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return v, nil
}

// BanzukeRowID derives the persisted id of a banzuke row from its
// composite key.
func BanzukeRowID(key string) string {
	return banzukeIDPrefix + hashing.ContentHash([]byte(key))[:24]
}

// buildSnapshots dedupes manifest snapshot inputs on source, digest and URL.
func buildSnapshots(inputs []domain.SnapshotInput) []domain.BuildSnapshot {
	seen := map[string]bool{}
	out := make([]domain.BuildSnapshot, 0, len(inputs))
	for _, in := range inputs {
		k := string(in.Source) + "\x00" + in.SHA256 + "\x00" + in.URL
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, domain.BuildSnapshot{Source: in.Source, SHA256: in.SHA256, URL: in.URL, Bytes: in.Bytes})
	}
	slices.SortFunc(out, func(a, b domain.BuildSnapshot) int {
		return cmpChain(
			strings.Compare(string(a.Source), string(b.Source)),
			strings.Compare(a.SHA256, b.SHA256),
			strings.Compare(a.URL, b.URL),
		)
	})
	return out
}

// sourceRefRows collects the provenance of every upserted row.
func sourceRefRows(upserts map[domain.EntityType][]domain.DiffRow) ([]domain.SourceRefRow, error) {
	seen := map[domain.SourceRefRow]bool{}
	var out []domain.SourceRefRow
	for _, t := range []domain.EntityType{
		domain.EntityRikishi, domain.EntityBasho, domain.EntityBanzuke, domain.EntityBout, domain.EntityKimarite,
	} {
		for _, r := range upserts[t] {
			raw, ok := r.After["sourceRefs"]
			if !ok || raw == nil {
				continue
			}
			var refs []domain.SourceRef
			data, err := json.Marshal(raw)
			if err != nil {
				return nil, err
			}
			if err := json.Unmarshal(data, &refs); err != nil {
				return nil, fmt.Errorf("%w: %s %s sourceRefs: %v", domain.ErrInvalidInput, t, r.EntityID, err)
			}
			for _, ref := range refs {
				row := domain.SourceRefRow{
					EntityType:     t,
					EntityID:       r.EntityID,
					Source:         ref.Source,
					SnapshotSHA256: ref.SnapshotSHA256,
					URL:            ref.URL,
					RefType:        ref.RefType,
				}
				key := row
				row.Note = ref.Note
				if seen[key] {
					continue
				}
				seen[key] = true
				out = append(out, row)
			}
		}
	}
	slices.SortFunc(out, func(a, b domain.SourceRefRow) int {
		return cmpChain(
			strings.Compare(string(a.EntityType), string(b.EntityType)),
			strings.Compare(a.EntityID, b.EntityID),
			strings.Compare(string(a.Source), string(b.Source)),
			strings.Compare(a.SnapshotSHA256, b.SnapshotSHA256),
			strings.Compare(a.URL, b.URL),
			strings.Compare(string(a.RefType), string(b.RefType)),
		)
	})
	return out, nil
}

func cmpChain(cmps ...int) int {
	for _, c := range cmps {
		if c != 0 {
			return c
		}
	}
	return 0
}
