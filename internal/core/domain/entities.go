package domain

import (
	"fmt"
	"regexp"
)

var birthDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Rikishi is a canonical wrestler row.
type Rikishi struct {
	RikishiID        string      `json:"rikishiId"`
	Shikona          string      `json:"shikona"`
	Heya             string      `json:"heya,omitempty"`
	BirthDate        string      `json:"birthDate,omitempty"`
	HeightCm         float64     `json:"heightCm,omitempty"`
	WeightKg         float64     `json:"weightKg,omitempty"`
	Nationality      string      `json:"nationality,omitempty"`
	OfficialImageURL string      `json:"officialImageUrl,omitempty"`
	ImageURL         string      `json:"imageUrl,omitempty"`
	SourceRefs       []SourceRef `json:"sourceRefs,omitempty"`
}

// Validate checks required fields and value shapes.
func (r Rikishi) Validate() error {
	if err := required("rikishi.rikishiId", r.RikishiID); err != nil {
		return err
	}
	if err := required("rikishi.shikona", r.Shikona); err != nil {
		return err
	}
	if err := optional("rikishi.heya", r.Heya); err != nil {
		return err
	}
	if err := optional("rikishi.nationality", r.Nationality); err != nil {
		return err
	}
	if r.BirthDate != "" && !birthDatePattern.MatchString(r.BirthDate) {
		return fmt.Errorf("%w: rikishi.birthDate %q", ErrInvalidInput, r.BirthDate)
	}
	if r.HeightCm < 0 {
		return fmt.Errorf("%w: rikishi.heightCm must be positive", ErrInvalidInput)
	}
	if r.WeightKg < 0 {
		return fmt.Errorf("%w: rikishi.weightKg must be positive", ErrInvalidInput)
	}
	if r.OfficialImageURL != "" && !ValidURL(r.OfficialImageURL) {
		return fmt.Errorf("%w: rikishi.officialImageUrl %q", ErrInvalidInput, r.OfficialImageURL)
	}
	if r.ImageURL != "" && !ValidURL(r.ImageURL) {
		return fmt.Errorf("%w: rikishi.imageUrl %q", ErrInvalidInput, r.ImageURL)
	}
	return validateRefs(r.SourceRefs)
}

// Basho is a canonical tournament row.
type Basho struct {
	BashoID    string      `json:"bashoId"`
	Label      string      `json:"label,omitempty"`
	SourceRefs []SourceRef `json:"sourceRefs,omitempty"`
}

// Validate checks required fields and value shapes.
func (b Basho) Validate() error {
	if !ValidBashoID(b.BashoID) {
		return fmt.Errorf("%w: basho.bashoId %q", ErrInvalidBashoID, b.BashoID)
	}
	if err := optional("basho.label", b.Label); err != nil {
		return err
	}
	return validateRefs(b.SourceRefs)
}

// BanzukeEntry places a rikishi at a rank for one basho.
type BanzukeEntry struct {
	BashoID    string      `json:"bashoId"`
	Division   Division    `json:"division"`
	RankValue  int         `json:"rankValue"`
	Side       Side        `json:"side"`
	RikishiID  string      `json:"rikishiId"`
	RankLabel  string      `json:"rankLabel,omitempty"`
	SourceRefs []SourceRef `json:"sourceRefs,omitempty"`
}

// Key is the composite identity used for diffs and loader ids.
func (e BanzukeEntry) Key() string {
	return fmt.Sprintf("%s|%s|%d|%s", e.BashoID, e.Division, e.RankValue, e.Side)
}

// Validate checks required fields and value shapes.
func (e BanzukeEntry) Validate() error {
	if !ValidBashoID(e.BashoID) {
		return fmt.Errorf("%w: banzuke.bashoId %q", ErrInvalidBashoID, e.BashoID)
	}
	if !e.Division.Valid() {
		return fmt.Errorf("%w: banzuke.division %q", ErrInvalidInput, e.Division)
	}
	if e.RankValue <= 0 {
		return fmt.Errorf("%w: banzuke.rankValue must be positive", ErrInvalidInput)
	}
	if e.Side != East && e.Side != West {
		return fmt.Errorf("%w: banzuke.side %q", ErrInvalidInput, e.Side)
	}
	if err := required("banzuke.rikishiId", e.RikishiID); err != nil {
		return err
	}
	if err := optional("banzuke.rankLabel", e.RankLabel); err != nil {
		return err
	}
	return validateRefs(e.SourceRefs)
}

// Bout is one scheduled match. BoutID is empty until the bout is canonicalised.
type Bout struct {
	BoutID          string      `json:"boutId,omitempty"`
	BashoID         string      `json:"bashoId"`
	Day             int         `json:"day"`
	Division        Division    `json:"division"`
	BoutNo          int         `json:"boutNo"`
	EastRikishiID   string      `json:"eastRikishiId"`
	WestRikishiID   string      `json:"westRikishiId"`
	WinnerRikishiID string      `json:"winnerRikishiId,omitempty"`
	KimariteID      string      `json:"kimariteId,omitempty"`
	SourceRefs      []SourceRef `json:"sourceRefs,omitempty"`
}

// ValidateInput checks every field except the derived bout id.
func (b Bout) ValidateInput() error {
	if !ValidBashoID(b.BashoID) {
		return fmt.Errorf("%w: bout.bashoId %q", ErrInvalidBashoID, b.BashoID)
	}
	if b.Day < 1 || b.Day > 15 {
		return fmt.Errorf("%w: bout.day %d out of range", ErrInvalidInput, b.Day)
	}
	if !b.Division.Valid() {
		return fmt.Errorf("%w: bout.division %q", ErrInvalidInput, b.Division)
	}
	if b.BoutNo < 1 || b.BoutNo > 200 {
		return fmt.Errorf("%w: bout.boutNo %d out of range", ErrInvalidInput, b.BoutNo)
	}
	if err := required("bout.eastRikishiId", b.EastRikishiID); err != nil {
		return err
	}
	if err := required("bout.westRikishiId", b.WestRikishiID); err != nil {
		return err
	}
	if b.WinnerRikishiID != "" && b.WinnerRikishiID != b.EastRikishiID && b.WinnerRikishiID != b.WestRikishiID {
		return fmt.Errorf("%w: bout.winnerRikishiId %q is neither side", ErrInvalidInput, b.WinnerRikishiID)
	}
	if err := optional("bout.kimariteId", b.KimariteID); err != nil {
		return err
	}
	return validateRefs(b.SourceRefs)
}

// Validate checks a canonical bout, including its id.
func (b Bout) Validate() error {
	if !isHex64(b.BoutID) {
		return fmt.Errorf("%w: bout.boutId %q", ErrInvalidInput, b.BoutID)
	}
	return b.ValidateInput()
}

// Kimarite is a winning technique.
type Kimarite struct {
	KimariteID string      `json:"kimariteId"`
	Label      string      `json:"label,omitempty"`
	SourceRefs []SourceRef `json:"sourceRefs,omitempty"`
}

// Validate checks required fields and value shapes.
func (k Kimarite) Validate() error {
	if err := required("kimarite.kimariteId", k.KimariteID); err != nil {
		return err
	}
	if err := optional("kimarite.label", k.Label); err != nil {
		return err
	}
	return validateRefs(k.SourceRefs)
}

func required(field, v string) error {
	if IsPlaceholder(v) {
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
	}
	return nil
}

func optional(field, v string) error {
	if v != "" && IsPlaceholder(v) {
		return fmt.Errorf("%w: %s is a placeholder", ErrInvalidInput, field)
	}
	return nil
}

func validateRefs(refs []SourceRef) error {
	for _, r := range refs {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}
