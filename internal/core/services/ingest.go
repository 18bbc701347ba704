package services

import (
	"context"
	"fmt"
	"slices"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/canonical"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/connectors/fetch"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driven"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driving"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/hashing"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/logger"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/normalisers/sumodb"
)

// Ensure IngestService implements the interface.
var _ driving.Ingestor = (*IngestService)(nil)

// IngestParsers bundles the parsers ingestion dispatches to.
type IngestParsers struct {
	Registry driven.ParserRegistry
	Bouts    driven.BoutParser
	Roster   driven.RosterExtractor
	Blocked  driven.BlockedDetector
}

// IngestService captures and canonicalises one basho at a time.
type IngestService struct {
	fetcher   driven.Fetcher
	artifacts driven.ArtifactStore
	parsers   IngestParsers
	state     driven.IngestionStore
	newRunID  func() string
}

// NewIngestService creates an ingestion service. Outputs are written to
// artifacts under the basho id; state tracks range ingestion.
func NewIngestService(
	fetcher driven.Fetcher,
	artifacts driven.ArtifactStore,
	parsers IngestParsers,
	state driven.IngestionStore,
) *IngestService {
	return &IngestService{
		fetcher:   fetcher,
		artifacts: artifacts,
		parsers:   parsers,
		state:     state,
		newRunID:  newRunID,
	}
}

// captured is one fetched page with the kind it was requested as.
type captured struct {
	kind string
	snap *domain.Snapshot
}

// IngestBasho fetches every page of bashoID, stages and canonicalises it,
// and writes the results under the basho's output directory.
func (s *IngestService) IngestBasho(ctx context.Context, bashoID string) (*domain.IngestSummary, error) {
	if _, _, err := domain.ParseBashoID(bashoID); err != nil {
		return nil, err
	}
	logger.Section("ingest " + bashoID)

	var pages []captured
	for _, req := range fetch.RequiredSnapshots(bashoID) {
		snap, err := s.fetcher.Fetch(ctx, bashoID, req)
		if err != nil {
			return nil, domain.AsIngestError(err, bashoID, req.Source, req.URL)
		}
		pages = append(pages, captured{kind: req.Kind, snap: snap})
	}

	var (
		staged   domain.StagedSet
		roster   []domain.RosterEntry
		parsed   []parsedWithRef
		warnings []domain.Warning
	)
	for _, p := range pages {
		meta := p.snap.Meta
		switch {
		case meta.Source == domain.SourceSumoDB && p.kind == fetch.KindRikishi:
			recs, err := s.parsers.Registry.Parse(p.snap)
			if err != nil {
				return nil, domain.AsIngestError(err, bashoID, meta.Source, meta.URL)
			}
			staged.Add(recs...)
			if s.parsers.Roster != nil {
				roster = append(roster, s.parsers.Roster.ExtractRoster(p.snap)...)
			}

		case meta.Source == domain.SourceJSA && p.kind == fetch.KindBanzuke:
			if blocked, reason := s.detectBlocked(p.snap.Body); blocked {
				if reason == "" {
					reason = "unknown"
				}
				warnings = append(warnings, domain.Warning{
					Code:    domain.CodeSourceBlocked,
					Source:  meta.Source,
					URL:     meta.URL,
					Message: fmt.Sprintf("JSA banzuke source appears blocked/interstitial (%s)", reason),
				})
				continue
			}
			recs, err := s.parsers.Registry.Parse(p.snap)
			if err != nil {
				ie := domain.AsIngestError(err, bashoID, meta.Source, meta.URL)
				warnings = append(warnings, domain.Warning{Code: ie.Code, Source: meta.Source, URL: meta.URL, Message: ie.Msg})
				continue
			}
			staged.Add(recs...)

		case meta.Source == domain.SourceSumoDB:
			division, ok := fetch.IsBoutsKind(p.kind)
			if !ok {
				continue
			}
			bouts, err := s.parsers.Bouts.ParseBouts(p.snap, division)
			if err != nil {
				return nil, domain.AsIngestError(err, bashoID, meta.Source, meta.URL)
			}
			ref := domain.SourceRef{
				Source:         domain.SourceSumoDB,
				SnapshotSHA256: meta.ContentSHA256,
				URL:            meta.URL,
				RefType:        domain.RefMatch,
			}
			for _, b := range bouts {
				parsed = append(parsed, parsedWithRef{bout: b, ref: ref})
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := writeStaged(s.artifacts, bashoID, staged); err != nil {
		return nil, err
	}

	rikishi := canonical.MergeRikishi(staged)
	resolver := newIdentityResolver(bashoID, rikishi, sumodb.IndexRoster(roster))

	var ranked []domain.StagedJSARikishi
	for _, r := range staged.JSA {
		if r.BashoID == bashoID {
			ranked = append(ranked, r)
		}
	}
	banzuke, err := canonical.MergeBanzuke(ranked, resolver.uniqueNames())
	if err != nil {
		return nil, domain.AsIngestError(err, bashoID, domain.SourceJSA, "")
	}
	resolver.addBanzuke(banzuke, rikishi)

	var bouts []domain.Bout
	for _, p := range parsed {
		if b, ok := resolver.bout(p.bout, p.ref); ok {
			bouts = append(bouts, b)
		}
	}
	if err := resolver.err(); err != nil {
		return nil, err
	}
	bouts, err = canonical.MergeBouts(bouts)
	if err != nil {
		return nil, domain.AsIngestError(err, bashoID, domain.SourceSumoDB, "")
	}

	set := &canonicalSet{
		rikishi: rikishi,
		basho:   []domain.Basho{bashoRow(bashoID, banzuke, bouts)},
		banzuke: banzuke,
		bouts:   bouts,
	}
	if _, err := writeCanonical(s.artifacts, bashoID, set); err != nil {
		return nil, err
	}

	buildID, err := ingestBuildID(bashoID, pages)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		line, err := hashing.Serialize(map[string]any{
			"code":    w.Code,
			"bashoId": bashoID,
			"source":  w.Source,
			"url":     w.URL,
			"message": w.Message,
		})
		if err == nil {
			logger.Warn("ingest warning %s", line)
		}
	}

	summary := &domain.IngestSummary{
		BashoID:        bashoID,
		SnapshotCount:  len(pages),
		StagedCount:    staged.Count(),
		CanonicalCount: len(set.rikishi) + len(set.basho) + len(set.banzuke) + len(set.bouts),
		WarningCount:   len(warnings),
		BuildID:        buildID,
		OutputDir:      s.artifacts.Dir(bashoID),
	}
	logger.Info("Ingested %s: %d snapshots, %d staged, %d canonical, %d warnings",
		bashoID, summary.SnapshotCount, summary.StagedCount, summary.CanonicalCount, summary.WarningCount)
	return summary, nil
}

func (s *IngestService) detectBlocked(body []byte) (bool, string) {
	if s.parsers.Blocked == nil {
		return false, ""
	}
	return s.parsers.Blocked.Detect(body)
}

// parsedWithRef is a parsed bout and the page it came from.
type parsedWithRef struct {
	bout domain.ParsedBout
	ref  domain.SourceRef
}

// bashoRow is the single basho row of an ingestion, carrying the
// references of its banzuke and bouts.
func bashoRow(bashoID string, banzuke []domain.BanzukeEntry, bouts []domain.Bout) domain.Basho {
	var refs []domain.SourceRef
	for _, e := range banzuke {
		refs = append(refs, e.SourceRefs...)
	}
	for _, b := range bouts {
		refs = append(refs, b.SourceRefs...)
	}
	row := domain.Basho{BashoID: bashoID, Label: "Basho " + bashoID}
	if len(refs) > 0 {
		row.SourceRefs = domain.DedupeSourceRefs(refs)
	}
	return row
}

// ingestBuildID identifies an ingestion by its basho and the bytes it read.
// fetchedAt is pinned to the first of the basho month so reruns agree.
func ingestBuildID(bashoID string, pages []captured) (string, error) {
	year, month, err := domain.ParseBashoID(bashoID)
	if err != nil {
		return "", err
	}
	shas := make([]string, 0, len(pages))
	for _, p := range pages {
		shas = append(shas, p.snap.Meta.ContentSHA256)
	}
	slices.Sort(shas)
	return hashing.StructuralHash(map[string]any{
		"bashoId":      bashoID,
		"snapshotShas": shas,
		"fetchedAt":    fmt.Sprintf("%04d-%02d-01T00:00:00.000Z", year, month),
	})
}
