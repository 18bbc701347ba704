package sumodb

import (
	"bytes"
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/normalisers/rows"
)

var (
	titleDay = regexp.MustCompile(`(?i)\bDay\s+(\d+)\b`)
	urlDay   = regexp.MustCompile(`(?i)[?&]d=(\d{1,2})(?:&|$)`)
	hoshi    = regexp.MustCompile(`(?i)hoshi_kuro`)
)

var rankDivisions = []struct {
	pattern  *regexp.Regexp
	division domain.Division
}{
	{regexp.MustCompile(`(?i)^(Y|O|S|K|M)\d+[ew]$`), domain.Makuuchi},
	{regexp.MustCompile(`(?i)^J\d+[ew]$`), domain.Juryo},
	{regexp.MustCompile(`(?i)^Ms\d+[ew]$`), domain.Makushita},
	{regexp.MustCompile(`(?i)^Sd\d+[ew]$`), domain.Sandanme},
	{regexp.MustCompile(`(?i)^Jd\d+[ew]$`), domain.Jonidan},
	{regexp.MustCompile(`(?i)^Jk\d+[ew]$`), domain.Jonokuchi},
}

func divisionFromRank(rank string) domain.Division {
	rank = strings.TrimSpace(rank)
	for _, rd := range rankDivisions {
		if rd.pattern.MatchString(rank) {
			return rd.division
		}
	}
	return ""
}

// JSON field aliases for bout rows.
var (
	boutListKeys   = []string{"bouts", "matches", "torikumi", "records", "results", "data"}
	boutSingleKeys = []string{"east", "west", "eastRikishiId", "westRikishiId"}

	divisionKeys   = []string{"division", "Division"}
	dayKeys        = []string{"day", "Day", "torikumiDay", "nDay"}
	boutNoKeys     = []string{"boutNo", "BoutNo", "matchNo", "MatchNo", "no", "No", "bout"}
	eastNameKeys   = []string{"eastShikona", "EastShikona", "east", "East", "eastName", "EastName"}
	westNameKeys   = []string{"westShikona", "WestShikona", "west", "West", "westName", "WestName"}
	eastIDKeys     = []string{"eastRikishiId", "EastRikishiId", "eastId", "east_id"}
	westIDKeys     = []string{"westRikishiId", "WestRikishiId", "westId", "west_id"}
	winnerNameKeys = []string{"winnerShikona", "WinnerShikona", "winner", "Winner", "winnerName", "WinnerName"}
	winnerIDKeys   = []string{"winnerRikishiId", "WinnerRikishiId", "winnerId", "winner_id"}
	kimariteKeys   = []string{"kimariteId", "KimariteId", "kimarite", "Kimarite", "decision", "technique"}
)

// ParseBouts extracts bouts of one division. HTML results pages are read
// from their torikumi table; anything else is treated as JSON.
func (p *Parser) ParseBouts(snap *domain.Snapshot, division domain.Division) ([]domain.ParsedBout, error) {
	if snap == nil {
		return nil, domain.ErrInvalidInput
	}
	var out []domain.ParsedBout
	var err error
	if strings.Contains(strings.ToLower(snap.Meta.ContentType), "html") {
		out, err = parseBoutsHTML(snap, division)
	} else {
		out, err = parseBoutsJSON(snap, division)
	}
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, func(a, b domain.ParsedBout) int {
		return cmp.Or(
			cmp.Compare(a.Division, b.Division),
			cmp.Compare(a.Day, b.Day),
			cmp.Compare(a.BoutNo, b.BoutNo),
			cmp.Compare(a.EastShikona, b.EastShikona),
			cmp.Compare(a.WestShikona, b.WestShikona),
		)
	})
	return out, nil
}

func parseBoutsJSON(snap *domain.Snapshot, division domain.Division) ([]domain.ParsedBout, error) {
	root, err := rows.Decode(domain.SourceSumoDB, snap)
	if err != nil {
		return nil, err
	}
	items := rows.Objects(root, boutListKeys, boutSingleKeys)
	if len(items) == 0 {
		return nil, domain.NewSchemaError(domain.SourceSumoDB, snap, "expected bout rows at root array or known array key")
	}

	var out []domain.ParsedBout
	for _, item := range items {
		divText := rows.Text(rows.Pick(item, divisionKeys...))
		if divText == "" {
			divText = string(division)
		}
		div, ok := domain.ParseDivision(divText)
		if !ok {
			continue
		}

		day, _ := rows.Int(item, dayKeys...)
		boutNo, _ := rows.Int(item, boutNoKeys...)
		east := rows.Text(rows.Pick(item, eastNameKeys...))
		west := rows.Text(rows.Pick(item, westNameKeys...))
		if day < 1 || day > 15 || boutNo == 0 || east == "" || west == "" {
			continue
		}

		winner := rows.Text(rows.Pick(item, winnerNameKeys...))
		if winner != east && winner != west {
			winner = ""
		}

		out = append(out, domain.ParsedBout{
			Day:            day,
			Division:       div,
			BoutNo:         boutNo,
			EastShikona:    east,
			WestShikona:    west,
			EastSumoDBID:   rows.Digits(item, eastIDKeys...),
			WestSumoDBID:   rows.Digits(item, westIDKeys...),
			WinnerShikona:  winner,
			WinnerSumoDBID: rows.Digits(item, winnerIDKeys...),
			Kimarite:       rows.Text(rows.Pick(item, kimariteKeys...)),
		})
	}
	if len(out) == 0 {
		return nil, domain.NewSchemaError(domain.SourceSumoDB, snap, "no valid bout rows")
	}
	return out, nil
}

// parseBoutsHTML reads a results page. The day comes from the page title or
// first heading, then from the url, then defaults to 1. Bout numbers count
// rows of the division in page order.
func parseBoutsHTML(snap *domain.Snapshot, division domain.Division) ([]domain.ParsedBout, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(snap.Body))
	if err != nil {
		return nil, domain.NewParseError(domain.SourceSumoDB, snap, "invalid HTML body", err)
	}

	day := 1
	heading := strings.TrimSpace(doc.Find("title").First().Text())
	if heading == "" {
		heading = strings.TrimSpace(doc.Find("h2").First().Text())
	}
	if m := titleDay.FindStringSubmatch(heading); m != nil {
		day, _ = strconv.Atoi(m[1])
	} else if m := urlDay.FindStringSubmatch(snap.Meta.URL); m != nil {
		day, _ = strconv.Atoi(m[1])
	}
	if day < 1 || day > 15 {
		return nil, domain.NewSchemaError(domain.SourceSumoDB, snap, fmt.Sprintf("invalid day in results page: %d", day))
	}

	var out []domain.ParsedBout
	counter := make(map[domain.Division]int)
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		eastCell := tr.Find("td.tk_east").First()
		westCell := tr.Find("td.tk_west").First()
		kimCell := tr.Find("td.tk_kim").First()
		if eastCell.Length() == 0 || westCell.Length() == 0 || kimCell.Length() == 0 {
			return
		}

		div := divisionFromRank(eastCell.Find("font").First().Text())
		if div == "" || div != division {
			return
		}

		eastLink := eastCell.Find(rikishiLink).First()
		westLink := westCell.Find(rikishiLink).First()
		east := strings.TrimSpace(eastLink.Text())
		west := strings.TrimSpace(westLink.Text())
		eastID := linkID(eastLink)
		westID := linkID(westLink)
		if east == "" || west == "" || eastID == "" || westID == "" {
			return
		}

		kim := kimCell.Clone()
		kim.Find("font").Remove()
		bout := domain.ParsedBout{
			Day:          day,
			Division:     div,
			EastShikona:  east,
			WestShikona:  west,
			EastSumoDBID: eastID,
			WestSumoDBID: westID,
			Kimarite:     strings.ToLower(strings.TrimSpace(kim.Text())),
		}

		results := tr.Find("td.tk_kekka")
		left, _ := results.Eq(0).Html()
		right, _ := results.Eq(1).Html()
		switch {
		case hoshi.MatchString(left):
			bout.WinnerShikona, bout.WinnerSumoDBID = east, eastID
		case hoshi.MatchString(right):
			bout.WinnerShikona, bout.WinnerSumoDBID = west, westID
		}

		counter[div]++
		bout.BoutNo = counter[div]
		out = append(out, bout)
	})
	if len(out) == 0 {
		return nil, domain.NewSchemaError(domain.SourceSumoDB, snap, fmt.Sprintf("no parseable %s rows in results page", division))
	}
	return out, nil
}
