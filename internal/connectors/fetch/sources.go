package fetch

import (
	"fmt"
	"strings"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
)

// Upstream page addresses.
const (
	JSABanzukeURL    = "https://www.sumo.or.jp/EnHonbashoBanzuke/%s"
	SumoDBBanzukeURL = "https://sumodb.sumogames.de/Banzuke.aspx?b=%s"
	SumoDBResultsURL = "https://sumodb.sumogames.de/Results.aspx?b=%s&d=%s"
)

// Snapshot kinds. Results pages use BoutsKind(division).
const (
	KindBanzuke = "banzuke"
	KindRikishi = "rikishi"
)

const contentTypeHTML = "text/html"

// BoutsKind names the results page of one division.
func BoutsKind(d domain.Division) string {
	return "bouts." + string(d)
}

// IsBoutsKind reports whether kind names a results page, and which division.
func IsBoutsKind(kind string) (domain.Division, bool) {
	rest, ok := strings.CutPrefix(kind, "bouts.")
	if !ok {
		return "", false
	}
	return domain.ParseDivision(rest)
}

// RequiredSnapshots lists the pages a basho ingestion captures, in fetch
// order: the registry banzuke, the match database banzuke, then one results
// page per division.
func RequiredSnapshots(bashoID string) []domain.RequiredSnapshot {
	id := strings.TrimSpace(bashoID)
	out := []domain.RequiredSnapshot{
		{Source: domain.SourceJSA, Kind: KindBanzuke, URL: fmt.Sprintf(JSABanzukeURL, id), ContentTypeHint: contentTypeHTML},
		{Source: domain.SourceSumoDB, Kind: KindRikishi, URL: fmt.Sprintf(SumoDBBanzukeURL, id), ContentTypeHint: contentTypeHTML},
	}
	for _, d := range domain.Divisions {
		out = append(out, domain.RequiredSnapshot{
			Source:          domain.SourceSumoDB,
			Kind:            BoutsKind(d),
			URL:             fmt.Sprintf(SumoDBResultsURL, id, d.Title()),
			ContentTypeHint: contentTypeHTML,
		})
	}
	return out
}
