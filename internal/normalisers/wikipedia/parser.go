// Package wikipedia parses encyclopedia snapshots linking rikishi to page
// titles and image file names.
package wikipedia

import (
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driven"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/normalisers/rows"
)

// Ensure Parser implements the interface.
var _ driven.SourceParser = (*Parser)(nil)

// Parser handles encyclopedia snapshots.
type Parser struct{}

// New creates a new encyclopedia parser.
func New() *Parser {
	return &Parser{}
}

// Source returns the source this parser handles.
func (p *Parser) Source() domain.Source {
	return domain.SourceWikipedia
}

// Parse reads MediaWiki-style rows from query.pages[], a root array, or a
// single root object with a title.
func (p *Parser) Parse(snap *domain.Snapshot) ([]domain.StagedRecord, error) {
	if snap == nil {
		return nil, domain.ErrInvalidInput
	}
	root, err := rows.Decode(domain.SourceWikipedia, snap)
	if err != nil {
		return nil, err
	}
	items := rows.Objects(root, []string{"query.pages"}, []string{"title", "wikipediaTitle"})
	if len(items) == 0 {
		return nil, domain.NewSchemaError(domain.SourceWikipedia, snap, "expected rows at query.pages[] or root object")
	}

	out := make([]domain.StagedRecord, 0, len(items))
	for _, item := range items {
		rec := domain.StagedWikipediaRikishi{
			RikishiID:      rows.String(item, "rikishiId"),
			Shikona:        rows.String(item, "shikona"),
			WikipediaTitle: rows.String(item, "wikipediaTitle", "title"),
			WikimediaFile:  rows.String(item, "wikimediaFile"),
			SnapshotSHA256: snap.Meta.ContentSHA256,
			SnapshotURL:    snap.Meta.URL,
		}
		if err := rec.Validate(); err != nil {
			return nil, domain.NewSchemaError(domain.SourceWikipedia, snap, err.Error())
		}
		out = append(out, rec)
	}
	return out, nil
}
