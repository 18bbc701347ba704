package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/logger"
)

func newRunID() string {
	return uuid.New().String()
}

// IngestRange ingests every basho from one id to another. A failed basho is
// recorded and the range carries on; COMPLETE basho are skipped unless
// force is set.
func (s *IngestService) IngestRange(ctx context.Context, from, to string, force bool) (*domain.RangeResult, error) {
	ids, err := domain.BashoRange(from, to)
	if err != nil {
		return nil, err
	}
	if s.state == nil {
		return nil, errors.New("ingestion store not configured")
	}

	res := &domain.RangeResult{From: from, To: to, Total: len(ids), Results: []domain.IngestOutcome{}}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.state.EnsurePending(ctx, id); err != nil {
			return nil, fmt.Errorf("ensure pending %s: %w", id, err)
		}
		rec, err := s.state.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get ingestion %s: %w", id, err)
		}
		if rec.Status == domain.IngestionComplete && !force {
			logger.Info("Skipping %s (already complete)", id)
			res.Skipped++
			res.Results = append(res.Results, domain.IngestOutcome{BashoID: id, Status: rec.Status, Skipped: true})
			continue
		}

		if err := s.state.MarkInProgress(ctx, id, s.newRunID()); err != nil {
			return nil, fmt.Errorf("mark in progress %s: %w", id, err)
		}
		summary, ierr := s.IngestBasho(ctx, id)
		if ierr != nil {
			msg := domain.CompactIngestError(ierr)
			logger.Warn("Ingestion of %s failed: %s", id, msg)
			if err := s.state.MarkFailed(context.WithoutCancel(ctx), id, msg); err != nil {
				return nil, fmt.Errorf("mark failed %s: %w", id, err)
			}
			res.Failed++
			res.Results = append(res.Results, domain.IngestOutcome{BashoID: id, Status: domain.IngestionFailed, Error: msg})
			continue
		}
		if err := s.state.MarkComplete(ctx, id, summary.SnapshotCount, summary.BuildID); err != nil {
			return nil, fmt.Errorf("mark complete %s: %w", id, err)
		}
		res.Complete++
		res.Results = append(res.Results, domain.IngestOutcome{BashoID: id, Status: domain.IngestionComplete, Summary: summary})
	}
	return res, nil
}
