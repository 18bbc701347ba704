package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driven"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driving"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/hashing"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/logger"
)

// Ensure DiffService implements the interface.
var _ driving.Differ = (*DiffService)(nil)

// DiffService compares the canonical files of two builds.
type DiffService struct {
	artifacts driven.ArtifactStore
	store     driven.PipelineStore
}

// NewDiffService creates a diff service. store supplies the default
// baseline; a nil store means builds are diffed against nothing unless a
// previous build is named.
func NewDiffService(artifacts driven.ArtifactStore, store driven.PipelineStore) *DiffService {
	return &DiffService{artifacts: artifacts, store: store}
}

// Diff writes added, changed and removed rows for buildID. previous names
// the baseline; nil selects the latest successfully loaded build and an
// empty string selects none.
func (s *DiffService) Diff(ctx context.Context, buildID string, previous *string) (*domain.DiffResult, error) {
	if err := checkBuildIDs(buildID, previous); err != nil {
		return nil, err
	}
	logger.Section("diff")

	prev, err := s.baseline(ctx, buildID, previous)
	if err != nil {
		return nil, err
	}

	var added, changed, removed []domain.DiffRow
	counts := domain.NewDiffCounts()
	for _, t := range domain.EntityTypes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		after, err := s.rowsByID(buildID, t)
		if err != nil {
			return nil, err
		}
		before := map[string]map[string]any{}
		if prev != nil {
			if before, err = s.rowsByID(*prev, t); err != nil {
				return nil, err
			}
		}

		c := counts[t]
		for id, row := range after {
			afterHash, err := hashing.StructuralHash(row)
			if err != nil {
				return nil, fmt.Errorf("hashing %s %s: %w", t, id, err)
			}
			old, ok := before[id]
			if !ok {
				added = append(added, domain.DiffRow{EntityType: t, EntityID: id, AfterHash: afterHash, After: row})
				c.Added++
				continue
			}
			beforeHash, err := hashing.StructuralHash(old)
			if err != nil {
				return nil, fmt.Errorf("hashing %s %s: %w", t, id, err)
			}
			if beforeHash != afterHash {
				changed = append(changed, domain.DiffRow{
					EntityType: t, EntityID: id,
					BeforeHash: beforeHash, AfterHash: afterHash,
					Before: old, After: row,
				})
				c.Changed++
			}
		}
		for id, row := range before {
			if _, ok := after[id]; ok {
				continue
			}
			beforeHash, err := hashing.StructuralHash(row)
			if err != nil {
				return nil, fmt.Errorf("hashing %s %s: %w", t, id, err)
			}
			removed = append(removed, domain.DiffRow{EntityType: t, EntityID: id, BeforeHash: beforeHash, Before: row})
			c.Removed++
		}
		counts[t] = c
	}

	for file, rows := range map[string][]domain.DiffRow{
		domain.DiffAddedFile:   added,
		domain.DiffChangedFile: changed,
		domain.DiffRemovedFile: removed,
	} {
		sortDiffRows(rows)
		if err := s.artifacts.WriteDiff(buildID, file, rows); err != nil {
			return nil, err
		}
	}

	logger.Info("Diff %s against %s: %d added, %d changed, %d removed",
		buildID, baselineName(prev), len(added), len(changed), len(removed))
	return &domain.DiffResult{
		BuildID:         buildID,
		PreviousBuildID: prev,
		Counts:          counts,
		DiffDir:         filepath.Join(s.artifacts.Dir(buildID), domain.DiffDir),
	}, nil
}

func (s *DiffService) baseline(ctx context.Context, buildID string, previous *string) (*string, error) {
	if previous != nil {
		if *previous == "" {
			return nil, nil
		}
		p := *previous
		return &p, nil
	}
	if s.store == nil {
		return nil, nil
	}
	rec, err := s.store.LatestSuccessfulBuild(ctx, buildID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding previous build: %w", err)
	}
	return &rec.BuildID, nil
}

// rowsByID reads one canonical file keyed by entity id. Rows without an id
// are ignored.
func (s *DiffService) rowsByID(buildID string, t domain.EntityType) (map[string]map[string]any, error) {
	rows, err := s.artifacts.ReadRows(buildID, canonicalPath(t))
	if err != nil {
		return nil, fmt.Errorf("reading %s rows of %s: %w", t, buildID, err)
	}
	out := make(map[string]map[string]any, len(rows))
	for _, row := range rows {
		if id := domain.EntityID(t, row); id != "" {
			out[id] = row
		}
	}
	return out, nil
}

func sortDiffRows(rows []domain.DiffRow) {
	slices.SortFunc(rows, func(a, b domain.DiffRow) int {
		if c := strings.Compare(string(a.EntityType), string(b.EntityType)); c != 0 {
			return c
		}
		return strings.Compare(a.EntityID, b.EntityID)
	})
}

func baselineName(prev *string) string {
	if prev == nil {
		return "nothing"
	}
	return *prev
}

// checkBuildIDs rejects build ids that are not a SHA-256 hex digest before
// any of them is turned into a path. An empty previous id means no baseline.
func checkBuildIDs(buildID string, previous *string) error {
	if !hashing.IsHexDigest(buildID) {
		return fmt.Errorf("%w: build id %q", domain.ErrInvalidInput, buildID)
	}
	if previous != nil && *previous != "" && !hashing.IsHexDigest(*previous) {
		return fmt.Errorf("%w: previous build id %q", domain.ErrInvalidInput, *previous)
	}
	return nil
}
