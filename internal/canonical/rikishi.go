// Package canonical merges staged rows from every source into canonical
// entities. Each merge is pure: it reads its inputs, never mutates them, and
// returns rows in their fixed sort order.
package canonical

import (
	"regexp"
	"slices"
	"strings"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases s and joins its alphanumeric runs with underscores.
func Slug(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "_"), "_")
}

// Key folds a value for lookup maps.
func Key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// lookup indexes rows of one source by folded id and name. Later rows
// replace earlier ones under the same key.
type lookup[T any] struct {
	rows  []T
	index map[string]int
	used  map[int]bool
}

func newLookup[T any](rows []T, keys func(T) []string) *lookup[T] {
	l := &lookup[T]{rows: rows, index: make(map[string]int), used: make(map[int]bool)}
	for i, r := range rows {
		for _, k := range keys(r) {
			if k != "" {
				l.index[Key(k)] = i
			}
		}
	}
	return l
}

// find returns the first row matching any of keys, and marks it used.
func (l *lookup[T]) find(keys ...string) (T, bool) {
	for _, k := range keys {
		if k == "" {
			continue
		}
		if i, ok := l.index[Key(k)]; ok {
			l.used[i] = true
			return l.rows[i], true
		}
	}
	var zero T
	return zero, false
}

// claimed reports whether the row under k was already returned by find.
func (l *lookup[T]) claimed(k string) bool {
	i, ok := l.index[Key(k)]
	return ok && l.used[i]
}

// identity is one candidate rikishi. Id keys come from an explicit source
// id; name keys from a shikona or page title when no id is given.
type identity struct {
	id   string
	name string
}

// MergeRikishi merges staged rows into one canonical rikishi per identity.
//
// Identity keys are the match database ids, then registry and encyclopedia
// ids, then the names of registry and encyclopedia rows carrying no id.
// For each key the row of each source is found by id, then by the shikona
// of a higher precedence match. Fields prefer the match database, then the
// registry, then the encyclopedia. The image prefers the official registry
// URL over the media file linked from the encyclopedia page.
//
// A name key whose registry or encyclopedia row was already claimed by an
// id key is skipped, so a rikishi is never emitted twice. Keys with no
// usable shikona are skipped.
func MergeRikishi(set domain.StagedSet) []domain.Rikishi {
	media := newLookup(set.Wikimedia, func(r domain.StagedWikimediaImage) []string {
		return []string{r.WikimediaFile}
	})
	wiki := newLookup(set.Wikipedia, func(r domain.StagedWikipediaRikishi) []string {
		return []string{r.RikishiID, r.Shikona, r.WikipediaTitle}
	})
	jsa := newLookup(set.JSA, func(r domain.StagedJSARikishi) []string {
		return []string{r.RikishiID, r.Shikona}
	})
	sumo := newLookup(set.SumoDB, func(r domain.StagedSumoDBRikishi) []string {
		return []string{r.RikishiID}
	})

	ids := make(map[string]bool)
	names := make(map[string]bool)
	for _, r := range set.SumoDB {
		ids[Key(r.RikishiID)] = true
	}
	for _, r := range set.JSA {
		if r.RikishiID != "" {
			ids[Key(r.RikishiID)] = true
		} else {
			names[Key(r.Shikona)] = true
		}
	}
	for _, r := range set.Wikipedia {
		switch {
		case r.RikishiID != "":
			ids[Key(r.RikishiID)] = true
		case r.Shikona != "":
			names[Key(r.Shikona)] = true
		default:
			names[Key(r.WikipediaTitle)] = true
		}
	}

	var keys []identity
	for _, k := range sortedKeys(ids) {
		keys = append(keys, identity{id: k})
	}
	for _, k := range sortedKeys(names) {
		keys = append(keys, identity{name: k})
	}

	var out []domain.Rikishi
	for _, key := range keys {
		var (
			s       domain.StagedSumoDBRikishi
			j       domain.StagedJSARikishi
			w       domain.StagedWikipediaRikishi
			hasSumo bool
			hasJSA  bool
			hasWiki bool
		)
		if key.id != "" {
			s, hasSumo = sumo.find(key.id)
			j, hasJSA = jsa.find(key.id, s.Shikona)
			w, hasWiki = wiki.find(key.id, s.Shikona, j.Shikona)
		} else {
			if jsa.claimed(key.name) || wiki.claimed(key.name) {
				continue
			}
			j, hasJSA = jsa.find(key.name)
			w, hasWiki = wiki.find(key.name, j.Shikona)
		}

		shikona := first(s.Shikona, j.Shikona, w.Shikona, w.WikipediaTitle)
		if shikona == "" {
			continue
		}

		id := first(s.RikishiID, j.RikishiID, w.RikishiID)
		if id == "" {
			id = Slug(first(shikona, key.name))
		}

		row := domain.Rikishi{
			RikishiID:        id,
			Shikona:          shikona,
			Heya:             first(s.Heya, j.Heya),
			HeightCm:         s.HeightCm,
			WeightKg:         s.WeightKg,
			Nationality:      s.Nationality,
			OfficialImageURL: j.OfficialImageURL,
		}

		var refs []domain.SourceRef
		if hasSumo {
			refs = append(refs, ref(s, domain.RefProfile))
		}
		if hasJSA {
			refs = append(refs, ref(j, domain.RefProfile))
		}
		if hasWiki {
			refs = append(refs, ref(w, domain.RefProfile))
			if w.WikimediaFile != "" {
				if img, ok := media.find(w.WikimediaFile); ok {
					if row.OfficialImageURL == "" {
						row.ImageURL = img.ImageURL
					}
					refs = append(refs, ref(img, domain.RefImage))
				}
			}
		}
		row.SourceRefs = domain.DedupeSourceRefs(refs)
		out = append(out, row)
	}

	domain.SortRikishi(out)
	return out
}

// NameIndex maps folded shikona to rikishi id. A name held by more than one
// id is left out, so it never resolves to either of them.
func NameIndex(rows []domain.Rikishi) map[string]string {
	ids := make(map[string]map[string]struct{}, len(rows))
	for _, r := range rows {
		k := Key(r.Shikona)
		if ids[k] == nil {
			ids[k] = map[string]struct{}{}
		}
		ids[k][r.RikishiID] = struct{}{}
	}
	m := make(map[string]string, len(ids))
	for k, set := range ids {
		if len(set) != 1 {
			continue
		}
		for id := range set {
			m[k] = id
		}
	}
	return m
}

func ref(rec domain.StagedRecord, t domain.RefType) domain.SourceRef {
	sha, url := rec.Snapshot()
	return domain.SourceRef{Source: rec.StagedSource(), SnapshotSHA256: sha, URL: url, RefType: t}
}

func first(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		if k != "" {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}
