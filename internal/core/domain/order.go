package domain

import (
	"cmp"
	"slices"
	"strings"
)

// Comparators order rows by case-folded, trimmed text so that output does not
// depend on input order. Ties fall through to the next field.

func fold(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func cmpText(a, b string) int { return strings.Compare(fold(a), fold(b)) }

// CompareRikishi orders by id then shikona.
func CompareRikishi(a, b Rikishi) int {
	return cmp.Or(cmpText(a.RikishiID, b.RikishiID), cmpText(a.Shikona, b.Shikona))
}

// CompareBasho orders by id.
func CompareBasho(a, b Basho) int {
	return cmpText(a.BashoID, b.BashoID)
}

// CompareBanzuke orders by basho, division, rank, side then rikishi.
func CompareBanzuke(a, b BanzukeEntry) int {
	return cmp.Or(
		cmpText(a.BashoID, b.BashoID),
		cmpText(string(a.Division), string(b.Division)),
		cmp.Compare(a.RankValue, b.RankValue),
		cmpText(string(a.Side), string(b.Side)),
		cmpText(a.RikishiID, b.RikishiID),
	)
}

// CompareBouts orders by basho, division, day, bout number then both sides.
func CompareBouts(a, b Bout) int {
	return cmp.Or(
		cmpText(a.BashoID, b.BashoID),
		cmpText(string(a.Division), string(b.Division)),
		cmp.Compare(a.Day, b.Day),
		cmp.Compare(a.BoutNo, b.BoutNo),
		cmpText(a.EastRikishiID, b.EastRikishiID),
		cmpText(a.WestRikishiID, b.WestRikishiID),
	)
}

// CompareKimarite orders by id.
func CompareKimarite(a, b Kimarite) int {
	return cmpText(a.KimariteID, b.KimariteID)
}

func SortRikishi(rows []Rikishi) { slices.SortStableFunc(rows, CompareRikishi) }
func SortBasho(rows []Basho) { slices.SortStableFunc(rows, CompareBasho) }
func SortBanzuke(rows []BanzukeEntry) { slices.SortStableFunc(rows, CompareBanzuke) }
func SortBouts(rows []Bout) { slices.SortStableFunc(rows, CompareBouts) }
func SortKimarite(rows []Kimarite) { slices.SortStableFunc(rows, CompareKimarite) }

// SortStagedSumoDB orders roster rows by id then shikona.
func SortStagedSumoDB(rows []StagedSumoDBRikishi) {
	slices.SortStableFunc(rows, func(a, b StagedSumoDBRikishi) int {
		return cmp.Or(cmpText(a.RikishiID, b.RikishiID), cmpText(a.Shikona, b.Shikona))
	})
}

// SortStagedJSA orders registry rows by id, shikona, basho then rank.
func SortStagedJSA(rows []StagedJSARikishi) {
	slices.SortStableFunc(rows, func(a, b StagedJSARikishi) int {
		return cmp.Or(
			cmpText(a.RikishiID, b.RikishiID),
			cmpText(a.Shikona, b.Shikona),
			cmpText(a.BashoID, b.BashoID),
			cmp.Compare(a.RankValue, b.RankValue),
		)
	})
}

// SortStagedWikipedia orders page rows by id then title.
func SortStagedWikipedia(rows []StagedWikipediaRikishi) {
	slices.SortStableFunc(rows, func(a, b StagedWikipediaRikishi) int {
		return cmp.Or(cmpText(a.RikishiID, b.RikishiID), cmpText(a.WikipediaTitle, b.WikipediaTitle))
	})
}

// SortStagedWikimedia orders image rows by file then url.
func SortStagedWikimedia(rows []StagedWikimediaImage) {
	slices.SortStableFunc(rows, func(a, b StagedWikimediaImage) int {
		return cmp.Or(cmpText(a.WikimediaFile, b.WikimediaFile), cmpText(a.ImageURL, b.ImageURL))
	})
}
