package canonical

import (
	"fmt"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/hashing"
)

// BoutID hashes the fields that identify a bout. The winner, technique and
// references are not part of the identity.
func BoutID(b domain.Bout) string {
	return hashing.MustStructuralHash(map[string]any{
		"bashoId":       b.BashoID,
		"day":           b.Day,
		"division":      b.Division,
		"boutNo":        b.BoutNo,
		"eastRikishiId": b.EastRikishiID,
		"westRikishiId": b.WestRikishiID,
	})
}

// MergeBouts assigns every bout its id, validates it and returns the bouts
// sorted. Input rows are not modified.
func MergeBouts(bouts []domain.Bout) ([]domain.Bout, error) {
	out := make([]domain.Bout, 0, len(bouts))
	for _, b := range bouts {
		b.BoutID = BoutID(b)
		b.SourceRefs = domain.DedupeSourceRefs(b.SourceRefs)
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("bout %s day %d #%d: %w", b.BashoID, b.Day, b.BoutNo, err)
		}
		out = append(out, b)
	}
	domain.SortBouts(out)
	return out, nil
}
