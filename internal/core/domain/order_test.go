package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortBanzuke(t *testing.T) {
	rows := []BanzukeEntry{
		{BashoID: "202401", Division: Makuuchi, RankValue: 2, Side: East, RikishiID: "c"},
		{BashoID: "202401", Division: Juryo, RankValue: 1, Side: West, RikishiID: "b"},
		{BashoID: "202401", Division: Makuuchi, RankValue: 1, Side: West, RikishiID: "a"},
		{BashoID: "202401", Division: Makuuchi, RankValue: 1, Side: East, RikishiID: "d"},
	}
	SortBanzuke(rows)

	var got []string
	for _, r := range rows {
		got = append(got, r.RikishiID)
	}
	// Divisions compare as text, so juryo sorts before makuuchi.
	assert.Equal(t, []string{"b", "d", "a", "c"}, got)
}

func TestSortBouts(t *testing.T) {
	rows := []Bout{
		{BashoID: "202401", Division: Makuuchi, Day: 2, BoutNo: 1, EastRikishiID: "x"},
		{BashoID: "202401", Division: Makuuchi, Day: 1, BoutNo: 2, EastRikishiID: "y"},
		{BashoID: "202401", Division: Makuuchi, Day: 1, BoutNo: 1, EastRikishiID: "z"},
	}
	SortBouts(rows)
	assert.Equal(t, "z", rows[0].EastRikishiID)
	assert.Equal(t, "y", rows[1].EastRikishiID)
	assert.Equal(t, "x", rows[2].EastRikishiID)
}

func TestCompareRikishi_CaseFolded(t *testing.T) {
	a := Rikishi{RikishiID: "ABC", Shikona: "x"}
	b := Rikishi{RikishiID: " abc", Shikona: "Y"}
	assert.Negative(t, CompareRikishi(a, b))
	assert.Zero(t, CompareRikishi(a, a))
}

func TestStagedSet_AddAndSort(t *testing.T) {
	var s StagedSet
	s.Add(
		StagedSumoDBRikishi{RikishiID: "2", Shikona: "B"},
		StagedSumoDBRikishi{RikishiID: "1", Shikona: "A"},
		StagedWikimediaImage{WikimediaFile: "f.jpg", ImageURL: "https://x.test/f.jpg"},
		StagedJSARikishi{Shikona: "C"},
		StagedWikipediaRikishi{WikipediaTitle: "D"},
	)
	s.Sort()

	assert.Equal(t, 5, s.Count())
	assert.Equal(t, "1", s.SumoDB[0].RikishiID)
	assert.Equal(t, SourceJSA, s.JSA[0].StagedSource())
}
