package domain

import "fmt"

// StagedRecord is a per-source row extracted from one snapshot, before
// canonicalisation. The concrete types below form a closed set.
type StagedRecord interface {
	StagedSource() Source
	Snapshot() (sha256, url string)
	Validate() error
}

// StagedSumoDBRikishi is a roster row from the match database.
type StagedSumoDBRikishi struct {
	RikishiID      string  `json:"rikishiId"`
	Shikona        string  `json:"shikona"`
	Heya           string  `json:"heya,omitempty"`
	HeightCm       float64 `json:"heightCm,omitempty"`
	WeightKg       float64 `json:"weightKg,omitempty"`
	Nationality    string  `json:"nationality,omitempty"`
	SnapshotSHA256 string  `json:"snapshotSha256"`
	SnapshotURL    string  `json:"snapshotUrl"`
}

func (StagedSumoDBRikishi) StagedSource() Source { return SourceSumoDB }
func (r StagedSumoDBRikishi) Snapshot() (string, string) { return r.SnapshotSHA256, r.SnapshotURL }

// StagedJSARikishi is a profile or banzuke row from the profile registry.
type StagedJSARikishi struct {
	RikishiID        string   `json:"rikishiId,omitempty"`
	Shikona          string   `json:"shikona"`
	Heya             string   `json:"heya,omitempty"`
	BashoID          string   `json:"bashoId,omitempty"`
	Division         Division `json:"division,omitempty"`
	RankValue        int      `json:"rankValue,omitempty"`
	Side             Side     `json:"side,omitempty"`
	OfficialImageURL string   `json:"officialImageUrl,omitempty"`
	SnapshotSHA256   string   `json:"snapshotSha256"`
	SnapshotURL      string   `json:"snapshotUrl"`
}

func (StagedJSARikishi) StagedSource() Source { return SourceJSA }
func (r StagedJSARikishi) Snapshot() (string, string) { return r.SnapshotSHA256, r.SnapshotURL }

// HasRank reports whether the row carries a complete banzuke placement.
func (r StagedJSARikishi) HasRank() bool {
	return r.BashoID != "" && r.Division != "" && r.RankValue > 0 && r.Side != ""
}

// StagedWikipediaRikishi links a rikishi to an encyclopedia page.
type StagedWikipediaRikishi struct {
	RikishiID      string `json:"rikishiId,omitempty"`
	Shikona        string `json:"shikona,omitempty"`
	WikipediaTitle string `json:"wikipediaTitle"`
	WikimediaFile  string `json:"wikimediaFile,omitempty"`
	SnapshotSHA256 string `json:"snapshotSha256"`
	SnapshotURL    string `json:"snapshotUrl"`
}

func (StagedWikipediaRikishi) StagedSource() Source { return SourceWikipedia }
func (r StagedWikipediaRikishi) Snapshot() (string, string) { return r.SnapshotSHA256, r.SnapshotURL }

// StagedWikimediaImage maps a media file name to its URL.
type StagedWikimediaImage struct {
	WikimediaFile  string `json:"wikimediaFile"`
	ImageURL       string `json:"imageUrl"`
	SnapshotSHA256 string `json:"snapshotSha256"`
	SnapshotURL    string `json:"snapshotUrl"`
}

func (StagedWikimediaImage) StagedSource() Source { return SourceWikimedia }
func (r StagedWikimediaImage) Snapshot() (string, string) { return r.SnapshotSHA256, r.SnapshotURL }

// Validate checks a roster row.
func (r StagedSumoDBRikishi) Validate() error {
	if err := required("sumodb.rikishiId", r.RikishiID); err != nil {
		return err
	}
	if err := required("sumodb.shikona", r.Shikona); err != nil {
		return err
	}
	if r.HeightCm < 0 || r.WeightKg < 0 {
		return fmt.Errorf("%w: sumodb height and weight must be positive", ErrInvalidInput)
	}
	return validateOrigin(r.SnapshotSHA256, r.SnapshotURL)
}

// Validate checks a registry row.
func (r StagedJSARikishi) Validate() error {
	if err := required("jsa.shikona", r.Shikona); err != nil {
		return err
	}
	if r.BashoID != "" && !ValidBashoID(r.BashoID) {
		return fmt.Errorf("%w: jsa.bashoId %q", ErrInvalidBashoID, r.BashoID)
	}
	if r.Division != "" && !r.Division.Valid() {
		return fmt.Errorf("%w: jsa.division %q", ErrInvalidInput, r.Division)
	}
	if r.RankValue < 0 {
		return fmt.Errorf("%w: jsa.rankValue must be positive", ErrInvalidInput)
	}
	if r.Side != "" && r.Side != East && r.Side != West {
		return fmt.Errorf("%w: jsa.side %q", ErrInvalidInput, r.Side)
	}
	if r.OfficialImageURL != "" && !ValidURL(r.OfficialImageURL) {
		return fmt.Errorf("%w: jsa.officialImageUrl %q", ErrInvalidInput, r.OfficialImageURL)
	}
	return validateOrigin(r.SnapshotSHA256, r.SnapshotURL)
}

// Validate checks a page row.
func (r StagedWikipediaRikishi) Validate() error {
	if err := required("wikipedia.wikipediaTitle", r.WikipediaTitle); err != nil {
		return err
	}
	return validateOrigin(r.SnapshotSHA256, r.SnapshotURL)
}

// Validate checks an image row.
func (r StagedWikimediaImage) Validate() error {
	if err := required("wikimedia.wikimediaFile", r.WikimediaFile); err != nil {
		return err
	}
	if !ValidURL(r.ImageURL) {
		return fmt.Errorf("%w: wikimedia.imageUrl %q", ErrInvalidInput, r.ImageURL)
	}
	return validateOrigin(r.SnapshotSHA256, r.SnapshotURL)
}

func validateOrigin(sha, url string) error {
	if !isHex64(sha) {
		return fmt.Errorf("%w: snapshotSha256 %q", ErrInvalidInput, sha)
	}
	return required("snapshotUrl", url)
}

// StagedSet groups staged rows by source.
type StagedSet struct {
	SumoDB    []StagedSumoDBRikishi
	JSA       []StagedJSARikishi
	Wikipedia []StagedWikipediaRikishi
	Wikimedia []StagedWikimediaImage
}

// Add files each record under its source.
func (s *StagedSet) Add(records ...StagedRecord) {
	for _, rec := range records {
		switch r := rec.(type) {
		case StagedSumoDBRikishi:
			s.SumoDB = append(s.SumoDB, r)
		case StagedJSARikishi:
			s.JSA = append(s.JSA, r)
		case StagedWikipediaRikishi:
			s.Wikipedia = append(s.Wikipedia, r)
		case StagedWikimediaImage:
			s.Wikimedia = append(s.Wikimedia, r)
		}
	}
}

// Count returns the total number of staged rows.
func (s *StagedSet) Count() int {
	return len(s.SumoDB) + len(s.JSA) + len(s.Wikipedia) + len(s.Wikimedia)
}

// Sort puts every source's rows in their deterministic order.
func (s *StagedSet) Sort() {
	SortStagedSumoDB(s.SumoDB)
	SortStagedJSA(s.JSA)
	SortStagedWikipedia(s.Wikipedia)
	SortStagedWikimedia(s.Wikimedia)
}

// Staged file names under a build or period output directory.
const (
	StagedSumoDBFile    = "staged/sumodb_rikishi.jsonl"
	StagedJSAFile       = "staged/jsa_rikishi.jsonl"
	StagedWikipediaFile = "staged/wikipedia_rikishi.jsonl"
	StagedWikimediaFile = "staged/wikimedia_images.jsonl"
)

// ParsedBout is a bout row read from a results page, with both sides still
// named by match database id and shikona rather than canonical id.
type ParsedBout struct {
	Day            int
	Division       Division
	BoutNo         int
	EastShikona    string
	WestShikona    string
	EastSumoDBID   string
	WestSumoDBID   string
	WinnerShikona  string
	WinnerSumoDBID string
	Kimarite       string
}

// RosterEntry pairs a ranked roster name with its match database id.
type RosterEntry struct {
	SumoDBID string
	Name     string
}
