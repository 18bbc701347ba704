package driven

import "github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"

// SourceParser extracts staged rows from a snapshot of one source.
// Bodies that cannot be decoded return *domain.ParseError; bodies of the
// wrong shape return *domain.SchemaError.
type SourceParser interface {
	// Source returns the source this parser handles.
	Source() domain.Source

	// Parse extracts staged rows from a snapshot body.
	Parse(snap *domain.Snapshot) ([]domain.StagedRecord, error)
}

// BoutParser extracts bout rows from a match database results page.
type BoutParser interface {
	ParseBouts(snap *domain.Snapshot, division domain.Division) ([]domain.ParsedBout, error)
}

// RosterExtractor lists ranked roster names on a match database banzuke page.
type RosterExtractor interface {
	ExtractRoster(snap *domain.Snapshot) []domain.RosterEntry
}

// ParserRegistry selects the parser for a source.
type ParserRegistry interface {
	// Register adds a parser, replacing any parser for the same source.
	Register(parser SourceParser)

	// Parse dispatches to the parser registered for snap's source.
	Parse(snap *domain.Snapshot) ([]domain.StagedRecord, error)
}

// BlockedDetector recognises interstitial pages served instead of content.
type BlockedDetector interface {
	// Detect reports whether body is blocked and why.
	Detect(body []byte) (blocked bool, reason string)
}
