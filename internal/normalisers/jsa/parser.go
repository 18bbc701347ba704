// Package jsa parses profile registry snapshots. Banzuke pages are HTML
// tables; profile exports are JSON rows.
package jsa

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driven"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/normalisers/rows"
)

// Ensure Parser implements the interface.
var _ driven.SourceParser = (*Parser)(nil)

// Parser handles profile registry snapshots.
type Parser struct{}

// New creates a new registry parser.
func New() *Parser {
	return &Parser{}
}

// Source returns the source this parser handles.
func (p *Parser) Source() domain.Source {
	return domain.SourceJSA
}

// Parse dispatches on the snapshot content type.
func (p *Parser) Parse(snap *domain.Snapshot) ([]domain.StagedRecord, error) {
	if snap == nil {
		return nil, domain.ErrInvalidInput
	}
	ct := strings.ToLower(snap.Meta.ContentType)
	switch {
	case strings.Contains(ct, "html"):
		return parseHTML(snap)
	case strings.Contains(ct, "json"):
		return parseJSON(snap)
	}
	return nil, domain.NewParseError(domain.SourceJSA, snap, "unsupported content type "+snap.Meta.ContentType, nil)
}

// parseHTML reads table#banzuke rows. Cells are, in order: id, shikona,
// heya, basho, division, rank, side and official image url.
func parseHTML(snap *domain.Snapshot) ([]domain.StagedRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(snap.Body))
	if err != nil {
		return nil, domain.NewParseError(domain.SourceJSA, snap, "invalid HTML body", err)
	}

	var out []domain.StagedRecord
	var rowErr error
	doc.Find("table#banzuke tbody tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		tds := tr.Find("td")
		cell := func(i int) string {
			return strings.TrimSpace(tds.Eq(i).Text())
		}
		rec := domain.StagedJSARikishi{
			RikishiID:        domain.CleanText(cell(0)),
			Shikona:          cell(1),
			Heya:             domain.CleanText(cell(2)),
			BashoID:          cell(3),
			Division:         domain.Division(strings.ToLower(cell(4))),
			Side:             domain.Side(strings.ToLower(cell(6))),
			OfficialImageURL: cell(7),
			SnapshotSHA256:   snap.Meta.ContentSHA256,
			SnapshotURL:      snap.Meta.URL,
		}
		if rank := cell(5); rank != "" {
			n, err := strconv.Atoi(rank)
			if err != nil || n <= 0 {
				rowErr = domain.NewSchemaError(domain.SourceJSA, snap, "rank value "+strconv.Quote(rank))
				return false
			}
			rec.RankValue = n
		}
		if err := rec.Validate(); err != nil {
			rowErr = domain.NewSchemaError(domain.SourceJSA, snap, err.Error())
			return false
		}
		out = append(out, rec)
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	if len(out) == 0 {
		return nil, domain.NewSchemaError(domain.SourceJSA, snap, "expected #banzuke table rows")
	}
	return out, nil
}

func parseJSON(snap *domain.Snapshot) ([]domain.StagedRecord, error) {
	root, err := rows.Decode(domain.SourceJSA, snap)
	if err != nil {
		return nil, err
	}

	var items []map[string]any
	switch t := root.(type) {
	case []any:
		items = rows.Objects(t, nil, nil)
	case map[string]any:
		items = []map[string]any{t}
	}
	if len(items) == 0 {
		return nil, domain.NewSchemaError(domain.SourceJSA, snap, "expected profile rows")
	}

	out := make([]domain.StagedRecord, 0, len(items))
	for _, item := range items {
		rec := domain.StagedJSARikishi{
			RikishiID:        rows.String(item, "rikishiId", "id", "rid"),
			Shikona:          rows.String(item, "shikona", "title"),
			Heya:             rows.String(item, "heya"),
			OfficialImageURL: rows.String(item, "officialImageUrl"),
			SnapshotSHA256:   snap.Meta.ContentSHA256,
			SnapshotURL:      snap.Meta.URL,
		}
		if err := rec.Validate(); err != nil {
			return nil, domain.NewSchemaError(domain.SourceJSA, snap, err.Error())
		}
		out = append(out, rec)
	}
	return out, nil
}
