package domain

import (
	"cmp"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Source identifies an upstream data provider.
type Source string

const (
	// SourceJSA is the official profile registry (banzuke and official images).
	SourceJSA Source = "jsa"

	// SourceSumoDB is the match database (rikishi roster and bout results).
	SourceSumoDB Source = "sumodb"

	// SourceWikipedia is the encyclopedia (titles and image file names).
	SourceWikipedia Source = "wikipedia"

	// SourceWikimedia is the media index (image file to URL).
	SourceWikimedia Source = "wikimedia"
)

// Sources lists every known source in display order.
var Sources = []Source{SourceJSA, SourceSumoDB, SourceWikipedia, SourceWikimedia}

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	return slices.Contains(Sources, s)
}

// RefType says what a source reference supports.
type RefType string

const (
	RefProfile RefType = "profile"
	RefBanzuke RefType = "banzuke"
	RefMatch   RefType = "match"
	RefImage   RefType = "image"
)

// Valid reports whether r is empty or a known reference type.
func (r RefType) Valid() bool {
	switch r {
	case "", RefProfile, RefBanzuke, RefMatch, RefImage:
		return true
	}
	return false
}

// SourceRef is a provenance pointer from a canonical row to the snapshot it came from.
type SourceRef struct {
	Source         Source  `json:"source"`
	SnapshotSHA256 string  `json:"snapshotSha256"`
	URL            string  `json:"url"`
	RefType        RefType `json:"refType,omitempty"`
	Note           string  `json:"note,omitempty"`
}

// Validate checks the reference fields.
func (r SourceRef) Validate() error {
	if !r.Source.Valid() {
		return fmt.Errorf("%w: sourceRef.source %q", ErrInvalidInput, r.Source)
	}
	if !isHex64(r.SnapshotSHA256) {
		return fmt.Errorf("%w: sourceRef.snapshotSha256 %q", ErrInvalidInput, r.SnapshotSHA256)
	}
	if !ValidURL(r.URL) {
		return fmt.Errorf("%w: sourceRef.url %q", ErrInvalidInput, r.URL)
	}
	if !r.RefType.Valid() {
		return fmt.Errorf("%w: sourceRef.refType %q", ErrInvalidInput, r.RefType)
	}
	if r.Note != "" && IsPlaceholder(r.Note) {
		return fmt.Errorf("%w: sourceRef.note %q", ErrInvalidInput, r.Note)
	}
	return nil
}

// CompareSourceRefs orders references by source, snapshot and url.
func CompareSourceRefs(a, b SourceRef) int {
	return cmp.Or(
		cmp.Compare(a.Source, b.Source),
		cmp.Compare(a.SnapshotSHA256, b.SnapshotSHA256),
		cmp.Compare(a.URL, b.URL),
		cmp.Compare(a.RefType, b.RefType),
	)
}

// DedupeSourceRefs drops references that repeat a source, snapshot and url
// and returns the rest in sorted order. The first occurrence wins.
func DedupeSourceRefs(refs []SourceRef) []SourceRef {
	if len(refs) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(refs))
	out := make([]SourceRef, 0, len(refs))
	for _, r := range refs {
		k := string(r.Source) + ":" + r.SnapshotSHA256 + ":" + r.URL
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	slices.SortFunc(out, CompareSourceRefs)
	return out
}

// ValidURL reports whether s is an absolute URL with a scheme and host.
func ValidURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

func isHex64(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
