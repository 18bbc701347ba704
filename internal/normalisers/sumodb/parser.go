// Package sumodb parses match database snapshots: banzuke pages listing the
// roster, and results pages listing bouts for one day and division.
package sumodb

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driven"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/normalisers/rows"
)

// Ensure Parser implements the interfaces.
var (
	_ driven.SourceParser    = (*Parser)(nil)
	_ driven.BoutParser      = (*Parser)(nil)
	_ driven.RosterExtractor = (*Parser)(nil)
)

const rikishiLink = `a[href*="Rikishi.aspx?r="]`

var (
	rankPrefix  = regexp.MustCompile(`(?i)^(Y|O|S|K|M|J|Ms|Sd|Jd|Jk)\d+[ew]\s+`)
	hrefID      = regexp.MustCompile(`(?i)[?&]r=(\d+)`)
	heightWeigh = regexp.MustCompile(`(?i)(\d+)\s*cm\s+(\d+)\s*kg`)
	dateToken   = regexp.MustCompile(`^\d{1,2}[./-]\d{1,2}[./-]\d{2,4}$|^\d{4}[./-]\d{2}$`)
	latinWords  = regexp.MustCompile(`^[A-Za-z\s-]{2,}$`)
)

// Parser handles match database snapshots.
type Parser struct{}

// New creates a new match database parser.
func New() *Parser {
	return &Parser{}
}

// Source returns the source this parser handles.
func (p *Parser) Source() domain.Source {
	return domain.SourceSumoDB
}

// Parse extracts roster rows. HTML pages are read from their rikishi links;
// anything else is treated as JSON.
func (p *Parser) Parse(snap *domain.Snapshot) ([]domain.StagedRecord, error) {
	if snap == nil {
		return nil, domain.ErrInvalidInput
	}
	if strings.Contains(strings.ToLower(snap.Meta.ContentType), "html") {
		return parseRosterHTML(snap)
	}
	return parseRosterJSON(snap)
}

func parseRosterHTML(snap *domain.Snapshot) ([]domain.StagedRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(snap.Body))
	if err != nil {
		return nil, domain.NewParseError(domain.SourceSumoDB, snap, "invalid HTML body", err)
	}

	var out []domain.StagedRecord
	var rowErr error
	seen := make(map[string]bool)
	doc.Find(rikishiLink).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		id := linkID(a)
		if id == "" || seen[id] {
			return true
		}
		seen[id] = true

		shikona := strings.TrimSpace(rankPrefix.ReplaceAllString(rows.Collapse(a.Text()), ""))
		if shikona == "" {
			return true
		}

		title := rows.Collapse(a.AttrOr("title", ""))
		heya, nationality := titleMeta(title)
		rec := domain.StagedSumoDBRikishi{
			RikishiID:      id,
			Shikona:        shikona,
			Heya:           domain.CleanText(heya),
			Nationality:    domain.CleanText(nationality),
			SnapshotSHA256: snap.Meta.ContentSHA256,
			SnapshotURL:    snap.Meta.URL,
		}
		if m := heightWeigh.FindStringSubmatch(title); m != nil {
			if h, _ := strconv.Atoi(m[1]); h > 0 {
				rec.HeightCm = float64(h)
			}
			if w, _ := strconv.Atoi(m[2]); w > 0 {
				rec.WeightKg = float64(w)
			}
		}
		if err := rec.Validate(); err != nil {
			rowErr = domain.NewSchemaError(domain.SourceSumoDB, snap, err.Error())
			return false
		}
		out = append(out, rec)
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	if len(out) == 0 {
		return nil, domain.NewSchemaError(domain.SourceSumoDB, snap, "expected links to Rikishi.aspx?r=... rows")
	}
	return out, nil
}

// titleMeta reads heya and nationality from a link title such as
// "Hoshoryu, Tatsunami, 1999.05.22, Mongolia, 186 cm 148 kg". The first
// part is skipped, as are date tokens.
func titleMeta(title string) (heya, nationality string) {
	var parts []string
	for _, p := range strings.Split(title, ",") {
		if p = rows.Collapse(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return "", ""
	}
	var candidates []string
	for _, p := range parts[1:] {
		if !dateToken.MatchString(p) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return "", ""
	}
	heya = candidates[0]
	for _, c := range candidates {
		if c != heya && latinWords.MatchString(c) {
			nationality = c
			break
		}
	}
	return heya, nationality
}

func parseRosterJSON(snap *domain.Snapshot) ([]domain.StagedRecord, error) {
	root, err := rows.Decode(domain.SourceSumoDB, snap)
	if err != nil {
		return nil, err
	}
	items := rows.Objects(root, []string{"rikishi"}, []string{"id", "rikishiId", "shikona"})
	if len(items) == 0 {
		return nil, domain.NewSchemaError(domain.SourceSumoDB, snap, "expected rows at root array or .rikishi[]")
	}

	out := make([]domain.StagedRecord, 0, len(items))
	for _, item := range items {
		rec := domain.StagedSumoDBRikishi{
			RikishiID:      rows.String(item, "rikishiId", "id", "rid"),
			Shikona:        rows.String(item, "shikona"),
			Heya:           rows.String(item, "heya"),
			Nationality:    rows.String(item, "nationality"),
			SnapshotSHA256: snap.Meta.ContentSHA256,
			SnapshotURL:    snap.Meta.URL,
		}
		if h, ok := rows.Float(item, "heightCm"); ok {
			rec.HeightCm = h
		}
		if w, ok := rows.Float(item, "weightKg"); ok {
			rec.WeightKg = w
		}
		if err := rec.Validate(); err != nil {
			return nil, domain.NewSchemaError(domain.SourceSumoDB, snap, err.Error())
		}
		out = append(out, rec)
	}
	return out, nil
}

func linkID(a *goquery.Selection) string {
	m := hrefID.FindStringSubmatch(a.AttrOr("href", ""))
	if m == nil {
		return ""
	}
	return m[1]
}
