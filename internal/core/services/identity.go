package services

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/normalisers/sumodb"
)

// maxMissDetails caps the misses listed on a mapping failure.
const maxMissDetails = 25

// resultsPage matches match database results pages, whose bouts must carry
// numeric rikishi ids.
var resultsPage = regexp.MustCompile(`(?i)/Results\.aspx(\?|$)`)

// aliasWindow is the basho range in which a shikona belongs to a rikishi.
type aliasWindow struct {
	from, to string
}

func (w aliasWindow) contains(bashoID string) bool {
	if w.from != "" && bashoID < w.from {
		return false
	}
	if w.to != "" && bashoID > w.to {
		return false
	}
	return true
}

// identityResolver maps bout participants to canonical rikishi ids for one
// basho and records every miss by class.
type identityResolver struct {
	bashoID  string
	ids      map[string]bool
	byName   map[string][]string
	windows  map[string]map[string][]aliasWindow
	roster   sumodb.RosterIndex
	idMisses []string
	ambig    []string
	misses   []string
}

func newIdentityResolver(bashoID string, rikishi []domain.Rikishi, roster sumodb.RosterIndex) *identityResolver {
	r := &identityResolver{
		bashoID: bashoID,
		ids:     map[string]bool{},
		byName:  map[string][]string{},
		windows: map[string]map[string][]aliasWindow{},
		roster:  roster,
	}
	for _, row := range rikishi {
		id := strings.TrimSpace(row.RikishiID)
		name := sumodb.NormaliseName(row.Shikona)
		if id == "" || name == "" {
			continue
		}
		r.ids[id] = true
		if !slices.Contains(r.byName[name], id) {
			r.byName[name] = append(r.byName[name], id)
		}
	}
	for name := range r.byName {
		slices.Sort(r.byName[name])
	}
	return r
}

// uniqueNames maps every shikona held by exactly one rikishi to its id,
// keyed the way banzuke merging looks names up.
func (r *identityResolver) uniqueNames() map[string]string {
	out := make(map[string]string, len(r.byName))
	for name, ids := range r.byName {
		if len(ids) == 1 {
			out[name] = ids[0]
		}
	}
	return out
}

// addBanzuke opens a one-basho alias window for each ranked rikishi.
func (r *identityResolver) addBanzuke(entries []domain.BanzukeEntry, rikishi []domain.Rikishi) {
	names := make(map[string]string, len(rikishi))
	for _, row := range rikishi {
		names[strings.TrimSpace(row.RikishiID)] = sumodb.NormaliseName(row.Shikona)
	}
	for _, e := range entries {
		name := names[e.RikishiID]
		if e.RikishiID == "" || name == "" {
			continue
		}
		if r.windows[name] == nil {
			r.windows[name] = map[string][]aliasWindow{}
		}
		r.windows[name][e.RikishiID] = append(r.windows[name][e.RikishiID], aliasWindow{from: r.bashoID, to: r.bashoID})
	}
}

// candidates lists the rikishi a shikona can mean in this basho. When a
// name is shared, holders with a window covering the basho are preferred.
func (r *identityResolver) candidates(name string) []string {
	all := r.byName[name]
	if len(all) <= 1 {
		return all
	}
	byID, ok := r.windows[name]
	if !ok {
		return all
	}
	var filtered []string
	for _, id := range all {
		if slices.ContainsFunc(byID[id], func(w aliasWindow) bool { return w.contains(r.bashoID) }) {
			filtered = append(filtered, id)
		}
	}
	if len(filtered) == 0 {
		return all
	}
	return filtered
}

// resolve returns the canonical id of one bout participant, or "" after
// recording why it could not be found.
func (r *identityResolver) resolve(side, sumoDBID, shikona, context string, requireNumericID bool) string {
	if id := strings.TrimSpace(sumoDBID); id != "" {
		if r.ids[id] {
			return id
		}
		r.idMisses = append(r.idMisses, fmt.Sprintf("%s:%s:sumodbId=%s", context, side, id))
		return ""
	}
	if requireNumericID {
		r.idMisses = append(r.idMisses, fmt.Sprintf("%s:%s:missing-sumodb-id", context, side))
		return ""
	}

	name := sumodb.NormaliseName(shikona)
	if name == "" {
		r.misses = append(r.misses, fmt.Sprintf("%s:%s:empty-shikona", context, side))
		return ""
	}
	if ids := r.roster.Ambiguous[name]; len(ids) > 0 {
		r.ambig = append(r.ambig, fmt.Sprintf("%s:%s:%s=>[%s]", context, side, shikona, strings.Join(ids, ",")))
		return ""
	}
	if id, ok := r.roster.Unique[name]; ok {
		if r.ids[id] {
			return id
		}
		r.idMisses = append(r.idMisses, fmt.Sprintf("%s:%s:rosterSumodbId=%s", context, side, id))
		return ""
	}

	cands := r.candidates(name)
	switch len(cands) {
	case 0:
		r.misses = append(r.misses, fmt.Sprintf("%s:%s:%s", context, side, shikona))
		return ""
	case 1:
		return cands[0]
	default:
		r.ambig = append(r.ambig, fmt.Sprintf("%s:%s:%s=>[%s]", context, side, shikona, strings.Join(cands, ",")))
		return ""
	}
}

// bout resolves a parsed bout. ok is false when the bout must be skipped.
func (r *identityResolver) bout(p domain.ParsedBout, ref domain.SourceRef) (domain.Bout, bool) {
	context := fmt.Sprintf("%s:day%d:bout%d", p.Division, p.Day, p.BoutNo)
	numeric := resultsPage.MatchString(ref.URL)

	east := r.resolve("east", p.EastSumoDBID, p.EastShikona, context, numeric)
	west := r.resolve("west", p.WestSumoDBID, p.WestShikona, context, numeric)
	if east == "" || west == "" {
		return domain.Bout{}, false
	}

	var winner string
	if p.WinnerShikona != "" || p.WinnerSumoDBID != "" {
		winner = r.resolve("winner", p.WinnerSumoDBID, p.WinnerShikona, context, numeric)
		if winner == "" || (winner != east && winner != west) {
			label := p.WinnerShikona
			if label == "" {
				label = p.WinnerSumoDBID
			}
			r.misses = append(r.misses, fmt.Sprintf("%s:winner:%s", context, label))
			return domain.Bout{}, false
		}
	}

	return domain.Bout{
		BashoID:         r.bashoID,
		Day:             p.Day,
		Division:        p.Division,
		BoutNo:          p.BoutNo,
		EastRikishiID:   east,
		WestRikishiID:   west,
		WinnerRikishiID: winner,
		KimariteID:      p.Kimarite,
		SourceRefs:      []domain.SourceRef{ref},
	}, true
}

// err reports the first class of miss recorded, in order of severity.
func (r *identityResolver) err() error {
	classes := []struct {
		code   domain.IngestErrorCode
		msg    string
		misses []string
	}{
		{domain.CodeSumoDBIDMapMiss, "Unable to map SumoDB numeric rikishi ID to canonical rikishiId", r.idMisses},
		{domain.CodeShikonaMapAmbiguous, "Ambiguous shikona mapped to multiple canonical rikishiId values", r.ambig},
		{domain.CodeShikonaMapMiss, "Unable to map bout shikona to canonical rikishiId", r.misses},
	}
	for _, c := range classes {
		if len(c.misses) == 0 {
			continue
		}
		return &domain.IngestError{
			Code:    c.code,
			Msg:     c.msg,
			BashoID: r.bashoID,
			Source:  domain.SourceSumoDB,
			Details: c.misses[:min(len(c.misses), maxMissDetails)],
		}
	}
	return nil
}
