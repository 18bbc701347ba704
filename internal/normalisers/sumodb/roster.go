package sumodb

import (
	"bytes"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/normalisers/rows"
)

// NormaliseName lowercases a shikona and folds its whitespace.
func NormaliseName(s string) string {
	return strings.ToLower(rows.Collapse(s))
}

// ExtractRoster lists the ranked links on a banzuke page. Only links whose
// text starts with a rank such as "M3e" are ranked; names are normalised.
// Bodies that are not HTML, or not parseable, yield no entries.
func (p *Parser) ExtractRoster(snap *domain.Snapshot) []domain.RosterEntry {
	if snap == nil || !strings.Contains(strings.ToLower(snap.Meta.ContentType), "html") {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(snap.Body))
	if err != nil {
		return nil
	}

	var out []domain.RosterEntry
	doc.Find(rikishiLink).Each(func(_ int, a *goquery.Selection) {
		text := strings.TrimSpace(a.Text())
		if !rankPrefix.MatchString(text) {
			return
		}
		id := linkID(a)
		name := NormaliseName(rankPrefix.ReplaceAllString(text, ""))
		if id == "" || name == "" {
			return
		}
		out = append(out, domain.RosterEntry{SumoDBID: id, Name: name})
	})
	return out
}

// RosterIndex maps normalised roster names to match database ids.
// A name is unique when exactly one id carries it across every page indexed,
// and ambiguous otherwise.
type RosterIndex struct {
	Unique    map[string]string
	Ambiguous map[string][]string
}

// IndexRoster builds a RosterIndex from entries of one or more pages.
func IndexRoster(entries []domain.RosterEntry) RosterIndex {
	ids := make(map[string]map[string]bool)
	for _, e := range entries {
		if ids[e.Name] == nil {
			ids[e.Name] = make(map[string]bool)
		}
		ids[e.Name][e.SumoDBID] = true
	}

	idx := RosterIndex{
		Unique:    make(map[string]string),
		Ambiguous: make(map[string][]string),
	}
	for name, set := range ids {
		list := make([]string, 0, len(set))
		for id := range set {
			list = append(list, id)
		}
		slices.Sort(list)
		if len(list) == 1 {
			idx.Unique[name] = list[0]
		} else {
			idx.Ambiguous[name] = list
		}
	}
	return idx
}
