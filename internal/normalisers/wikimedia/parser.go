// Package wikimedia parses media index snapshots mapping image file names
// to URLs.
package wikimedia

import (
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driven"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/normalisers/rows"
)

// Ensure Parser implements the interface.
var _ driven.SourceParser = (*Parser)(nil)

// Parser handles media index snapshots.
type Parser struct{}

// New creates a new media index parser.
func New() *Parser {
	return &Parser{}
}

// Source returns the source this parser handles.
func (p *Parser) Source() domain.Source {
	return domain.SourceWikimedia
}

// Parse reads image rows from images[], a root array, or a single object.
func (p *Parser) Parse(snap *domain.Snapshot) ([]domain.StagedRecord, error) {
	if snap == nil {
		return nil, domain.ErrInvalidInput
	}
	root, err := rows.Decode(domain.SourceWikimedia, snap)
	if err != nil {
		return nil, err
	}
	items := rows.Objects(root, []string{"images"}, []string{"file", "wikimediaFile"})
	if len(items) == 0 {
		return nil, domain.NewSchemaError(domain.SourceWikimedia, snap, "expected rows at images[] or root object")
	}

	out := make([]domain.StagedRecord, 0, len(items))
	for _, item := range items {
		rec := domain.StagedWikimediaImage{
			WikimediaFile:  rows.String(item, "wikimediaFile", "file"),
			ImageURL:       rows.String(item, "imageUrl", "url"),
			SnapshotSHA256: snap.Meta.ContentSHA256,
			SnapshotURL:    snap.Meta.URL,
		}
		if err := rec.Validate(); err != nil {
			return nil, domain.NewSchemaError(domain.SourceWikimedia, snap, err.Error())
		}
		out = append(out, rec)
	}
	return out, nil
}
