package domain

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var bashoIDPattern = regexp.MustCompile(`^(19|20)\d{2}(0[1-9]|1[0-2])$`)

// ValidBashoID reports whether id has the YYYYMM shape used by canonical rows.
func ValidBashoID(id string) bool {
	return bashoIDPattern.MatchString(id)
}

// ParseBashoID splits a tournament id into year and month. Tournaments are
// held in odd months only.
func ParseBashoID(id string) (year, month int, err error) {
	if !ValidBashoID(id) {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidBashoID, id)
	}
	year, _ = strconv.Atoi(id[:4])
	month, _ = strconv.Atoi(id[4:])
	if month%2 == 0 {
		return 0, 0, fmt.Errorf("%w: %q is not a tournament month", ErrInvalidBashoID, id)
	}
	return year, month, nil
}

// BashoRange returns every tournament id from one id to another, inclusive.
func BashoRange(from, to string) ([]string, error) {
	fy, fm, err := ParseBashoID(from)
	if err != nil {
		return nil, err
	}
	ty, tm, err := ParseBashoID(to)
	if err != nil {
		return nil, err
	}
	if fy*100+fm > ty*100+tm {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange, from, to)
	}

	var ids []string
	y, m := fy, fm
	for y*100+m <= ty*100+tm {
		ids = append(ids, fmt.Sprintf("%04d%02d", y, m))
		if m == 11 {
			y, m = y+1, 1
		} else {
			m += 2
		}
	}
	return ids, nil
}

// Division is a ranked tier of the banzuke.
type Division string

const (
	Makuuchi  Division = "makuuchi"
	Juryo     Division = "juryo"
	Makushita Division = "makushita"
	Sandanme  Division = "sandanme"
	Jonidan   Division = "jonidan"
	Jonokuchi Division = "jonokuchi"
)

// Divisions lists all divisions from top to bottom.
var Divisions = []Division{Makuuchi, Juryo, Makushita, Sandanme, Jonidan, Jonokuchi}

// Valid reports whether d is a known division.
func (d Division) Valid() bool {
	return slices.Contains(Divisions, d)
}

// Title returns the division name with a leading capital, as used in
// match database query strings.
func (d Division) Title() string {
	if d == "" {
		return ""
	}
	return strings.ToUpper(string(d[:1])) + string(d[1:])
}

// ParseDivision normalises s and reports whether it names a division.
func ParseDivision(s string) (Division, bool) {
	d := Division(strings.ToLower(strings.TrimSpace(s)))
	return d, d.Valid()
}

// Side is the east or west half of the banzuke.
type Side string

const (
	East Side = "east"
	West Side = "west"
)

// ParseSide normalises s and reports whether it names a side.
func ParseSide(s string) (Side, bool) {
	side := Side(strings.ToLower(strings.TrimSpace(s)))
	return side, side == East || side == West
}
