// Package memory provides in-memory implementations of the store ports.
// Transactions copy the state and swap it in on success.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driven"
)

// Ensure PipelineStore implements the interfaces.
var (
	_ driven.PipelineStore = (*PipelineStore)(nil)
	_ driven.Counter       = (*PipelineStore)(nil)
)

// pipelineState is everything a PipelineStore holds. Transactions work on
// a copy and swap it in on success.
type pipelineState struct {
	builds     map[string]domain.BuildRecord
	snapshots  map[string][]domain.BuildSnapshot
	rikishi    map[string]domain.Rikishi
	basho      map[string]domain.Basho
	kimarite   map[string]domain.Kimarite
	banzuke    map[string]domain.BanzukeEntry
	bouts      map[string]domain.Bout
	stamps     map[string]string
	tombstones map[domain.Tombstone]struct{}
	refs       map[string][]domain.SourceRefRow
}

func newPipelineState() *pipelineState {
	return &pipelineState{
		builds:     make(map[string]domain.BuildRecord),
		snapshots:  make(map[string][]domain.BuildSnapshot),
		rikishi:    make(map[string]domain.Rikishi),
		basho:      make(map[string]domain.Basho),
		kimarite:   make(map[string]domain.Kimarite),
		banzuke:    make(map[string]domain.BanzukeEntry),
		bouts:      make(map[string]domain.Bout),
		stamps:     make(map[string]string),
		tombstones: make(map[domain.Tombstone]struct{}),
		refs:       make(map[string][]domain.SourceRefRow),
	}
}

func (st *pipelineState) clone() *pipelineState {
	return &pipelineState{
		builds:     maps.Clone(st.builds),
		snapshots:  maps.Clone(st.snapshots),
		rikishi:    maps.Clone(st.rikishi),
		basho:      maps.Clone(st.basho),
		kimarite:   maps.Clone(st.kimarite),
		banzuke:    maps.Clone(st.banzuke),
		bouts:      maps.Clone(st.bouts),
		stamps:     maps.Clone(st.stamps),
		tombstones: maps.Clone(st.tombstones),
		refs:       maps.Clone(st.refs),
	}
}

// PipelineStore is an in-memory implementation of driven.PipelineStore.
type PipelineStore struct {
	mu    sync.RWMutex
	state *pipelineState
	now   func() time.Time
	tick  time.Duration
}

// NewPipelineStore creates an empty in-memory pipeline store.
func NewPipelineStore() *PipelineStore {
	return &PipelineStore{state: newPipelineState(), now: time.Now}
}

// stamp returns a strictly increasing timestamp so that update order is
// observable even when the clock does not move between writes.
func (s *PipelineStore) stamp() time.Time {
	s.tick++
	return s.now().UTC().Add(s.tick)
}

// GetBuild retrieves a build record.
func (s *PipelineStore) GetBuild(_ context.Context, buildID string) (*domain.BuildRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.state.builds[buildID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// LatestSuccessfulBuild returns the most recently updated SUCCESS build.
func (s *PipelineStore) LatestSuccessfulBuild(_ context.Context, exclude string) (*domain.BuildRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *domain.BuildRecord
	for id, rec := range s.state.builds {
		if id == exclude || rec.Status != domain.BuildSuccess {
			continue
		}
		if best == nil || rec.UpdatedAt.After(best.UpdatedAt) ||
			(rec.UpdatedAt.Equal(best.UpdatedAt) && rec.BuildID > best.BuildID) {
			r := rec
			best = &r
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	return best, nil
}

// MarkBuildFailed sets a build to FAILED, creating its record if needed.
func (s *PipelineStore) MarkBuildFailed(_ context.Context, rec domain.BuildRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.stamp()
	existing, ok := s.state.builds[rec.BuildID]
	if !ok {
		existing = rec
		existing.CreatedAt = now
	}
	existing.Status = domain.BuildFailed
	existing.UpdatedAt = now
	s.state.builds[rec.BuildID] = existing
	return nil
}

// WithinTx runs fn against a copy of the store and keeps the copy only if
// fn succeeds.
func (s *PipelineStore) WithinTx(ctx context.Context, fn func(tx driven.PipelineTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.state.clone()
	if err := fn(&pipelineTx{st: work, stamp: s.stamp}); err != nil {
		return err
	}
	s.state = work
	return nil
}

// Counts reports the number of stored rows per table.
func (s *PipelineStore) Counts(_ context.Context) (driven.StoreCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	c := driven.StoreCounts{
		Builds:         len(st.builds),
		Rikishi:        len(st.rikishi),
		Basho:          len(st.basho),
		Kimarite:       len(st.kimarite),
		BanzukeEntries: len(st.banzuke),
		Bouts:          len(st.bouts),
		Tombstones:     len(st.tombstones),
	}
	for _, snaps := range st.snapshots {
		c.BuildSnapshots += len(snaps)
	}
	for _, refs := range st.refs {
		c.SourceRefs += len(refs)
	}
	return c, nil
}

// UpdatedBy returns the build that last wrote an entity row.
func (s *PipelineStore) UpdatedBy(t domain.EntityType, id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.stamps[stampKey(t, id)]
}

// Rikishi returns a stored rikishi row.
func (s *PipelineStore) Rikishi(id string) (domain.Rikishi, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.state.rikishi[id]
	return r, ok
}

// BanzukeEntry returns a stored banzuke row by loader id.
func (s *PipelineStore) BanzukeEntry(id string) (domain.BanzukeEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.state.banzuke[id]
	return e, ok
}

// Tombstoned reports whether a tombstone exists for the entity in any build.
func (s *PipelineStore) Tombstoned(t domain.EntityType, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ts := range s.state.tombstones {
		if ts.EntityType == t && ts.EntityID == id {
			return true
		}
	}
	return false
}

// SourceRefs returns the provenance rows stored for a build.
func (s *PipelineStore) SourceRefs(buildID string) []domain.SourceRefRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.SourceRefRow(nil), s.state.refs[buildID]...)
}

func stampKey(t domain.EntityType, id string) string {
	return string(t) + "\x00" + id
}

// pipelineTx writes into a working copy of the state.
type pipelineTx struct {
	st    *pipelineState
	stamp func() time.Time
}

func (t *pipelineTx) UpsertBuild(rec domain.BuildRecord) error {
	now := t.stamp()
	if existing, ok := t.st.builds[rec.BuildID]; ok {
		rec.CreatedAt = existing.CreatedAt
	} else {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	t.st.builds[rec.BuildID] = rec
	return nil
}

func (t *pipelineTx) ReplaceBuildSnapshots(buildID string, snaps []domain.BuildSnapshot) error {
	t.st.snapshots[buildID] = append([]domain.BuildSnapshot(nil), snaps...)
	return nil
}

func (t *pipelineTx) SetBuildStatus(buildID string, status domain.BuildStatus) error {
	rec, ok := t.st.builds[buildID]
	if !ok {
		return fmt.Errorf("setting build status: %w: %s", domain.ErrNotFound, buildID)
	}
	rec.Status = status
	rec.UpdatedAt = t.stamp()
	t.st.builds[buildID] = rec
	return nil
}

func (t *pipelineTx) UpsertRikishi(buildID string, r domain.Rikishi) error {
	t.st.rikishi[r.RikishiID] = r
	t.st.stamps[stampKey(domain.EntityRikishi, r.RikishiID)] = buildID
	return nil
}

func (t *pipelineTx) UpsertBasho(buildID string, b domain.Basho) error {
	t.st.basho[b.BashoID] = b
	t.st.stamps[stampKey(domain.EntityBasho, b.BashoID)] = buildID
	return nil
}

func (t *pipelineTx) UpsertKimarite(buildID string, k domain.Kimarite) error {
	t.st.kimarite[k.KimariteID] = k
	t.st.stamps[stampKey(domain.EntityKimarite, k.KimariteID)] = buildID
	return nil
}

func (t *pipelineTx) UpsertBanzukeEntry(buildID, id string, e domain.BanzukeEntry) error {
	t.st.banzuke[id] = e
	t.st.stamps[stampKey(domain.EntityBanzuke, id)] = buildID
	return nil
}

func (t *pipelineTx) UpsertBout(buildID string, b domain.Bout) error {
	if b.Day < 1 || b.Day > 15 {
		return fmt.Errorf("upserting bout: %w: day %d", domain.ErrInvalidInput, b.Day)
	}
	t.st.bouts[b.BoutID] = b
	t.st.stamps[stampKey(domain.EntityBout, b.BoutID)] = buildID
	return nil
}

func (t *pipelineTx) Tombstone(ts domain.Tombstone) error {
	t.st.tombstones[ts] = struct{}{}
	return nil
}

func (t *pipelineTx) ReplaceSourceRefs(buildID string, refs []domain.SourceRefRow) error {
	t.st.refs[buildID] = append([]domain.SourceRefRow(nil), refs...)
	return nil
}
