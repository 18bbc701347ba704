package memory

import (
	"context"
	"sync"
	"time"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driven"
)

// Ensure IngestionStore implements the interface.
var _ driven.IngestionStore = (*IngestionStore)(nil)

// IngestionStore is an in-memory implementation of driven.IngestionStore.
type IngestionStore struct {
	mu      sync.RWMutex
	records map[string]domain.IngestionRecord
	now     func() time.Time
}

// NewIngestionStore creates a new in-memory ingestion store.
func NewIngestionStore() *IngestionStore {
	return &IngestionStore{
		records: make(map[string]domain.IngestionRecord),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// EnsurePending creates a PENDING record if none exists.
func (s *IngestionStore) EnsurePending(_ context.Context, bashoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[bashoID]; ok {
		return nil
	}
	s.records[bashoID] = domain.IngestionRecord{
		BashoID:   bashoID,
		Status:    domain.IngestionPending,
		UpdatedAt: s.now(),
	}
	return nil
}

// Get retrieves the ingestion record of a basho.
func (s *IngestionStore) Get(_ context.Context, bashoID string) (*domain.IngestionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[bashoID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// MarkInProgress starts a new attempt.
func (s *IngestionStore) MarkInProgress(_ context.Context, bashoID, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	rec := s.records[bashoID]
	rec.BashoID = bashoID
	rec.Status = domain.IngestionInProgress
	rec.RunID = runID
	rec.StartedAt = &now
	rec.FinishedAt = nil
	rec.ErrorMessage = ""
	rec.UpdatedAt = now
	s.records[bashoID] = rec
	return nil
}

// MarkComplete records a successful attempt.
func (s *IngestionStore) MarkComplete(_ context.Context, bashoID string, snapshotCount int, buildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[bashoID]
	if !ok {
		return nil
	}
	now := s.now()
	rec.Status = domain.IngestionComplete
	rec.SnapshotCount = snapshotCount
	rec.BuildID = buildID
	rec.ErrorMessage = ""
	rec.FinishedAt = &now
	rec.UpdatedAt = now
	s.records[bashoID] = rec
	return nil
}

// MarkFailed records a failed attempt.
func (s *IngestionStore) MarkFailed(_ context.Context, bashoID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[bashoID]
	if !ok {
		return nil
	}
	now := s.now()
	rec.Status = domain.IngestionFailed
	rec.ErrorMessage = message
	rec.FinishedAt = &now
	rec.UpdatedAt = now
	s.records[bashoID] = rec
	return nil
}
