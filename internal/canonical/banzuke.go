package canonical

import (
	"fmt"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
)

// MergeBanzuke turns ranked registry rows into banzuke entries. The rikishi
// id is the row's own id, else the id names maps its folded shikona to.
// Unranked rows and rows whose rikishi cannot be found are dropped.
func MergeBanzuke(rows []domain.StagedJSARikishi, names map[string]string) ([]domain.BanzukeEntry, error) {
	var out []domain.BanzukeEntry
	for _, r := range rows {
		if !r.HasRank() {
			continue
		}
		id := r.RikishiID
		if id == "" {
			id = names[Key(r.Shikona)]
		}
		if id == "" {
			continue
		}

		e := domain.BanzukeEntry{
			BashoID:    r.BashoID,
			Division:   r.Division,
			RankValue:  r.RankValue,
			Side:       r.Side,
			RikishiID:  id,
			SourceRefs: []domain.SourceRef{ref(r, domain.RefBanzuke)},
		}
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("banzuke %s: %w", e.Key(), err)
		}
		out = append(out, e)
	}
	domain.SortBanzuke(out)
	return out, nil
}

// MergeBasho derives one basho row per basho named by entries or bouts,
// carrying their combined references.
func MergeBasho(entries []domain.BanzukeEntry, bouts []domain.Bout, label func(string) string) []domain.Basho {
	refs := make(map[string][]domain.SourceRef)
	var order []string
	add := func(id string, rs []domain.SourceRef) {
		if _, ok := refs[id]; !ok {
			order = append(order, id)
			refs[id] = nil
		}
		refs[id] = append(refs[id], rs...)
	}
	for _, e := range entries {
		add(e.BashoID, e.SourceRefs)
	}
	for _, b := range bouts {
		add(b.BashoID, b.SourceRefs)
	}

	out := make([]domain.Basho, 0, len(order))
	for _, id := range order {
		row := domain.Basho{BashoID: id, SourceRefs: domain.DedupeSourceRefs(refs[id])}
		if label != nil {
			row.Label = label(id)
		}
		out = append(out, row)
	}
	domain.SortBasho(out)
	return out
}
