// Package blocked recognises interstitial pages (bot checks, outage notices,
// access denials) served by the profile registry in place of a banzuke.
package blocked

import (
	"strings"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driven"
)

// Reasons reported by Detect.
const (
	ReasonSmallBody          = "small-body"
	ReasonBlockTokenNoMarker = "block-token-no-marker"
)

// Ensure Detector implements the interface.
var _ driven.BlockedDetector = (*Detector)(nil)

// Detector applies size and keyword heuristics to a page body.
type Detector struct {
	minBytes int
	tokens   []string
	markers  []string
}

// New creates a detector from configuration. Zero values fall back to defaults.
func New(cfg domain.BlockedConfig) *Detector {
	def := domain.DefaultBlockedConfig()
	if cfg.MinBytes <= 0 {
		cfg.MinBytes = def.MinBytes
	}
	if len(cfg.BlockTokens) == 0 {
		cfg.BlockTokens = def.BlockTokens
	}
	if len(cfg.ExpectedMarkers) == 0 {
		cfg.ExpectedMarkers = def.ExpectedMarkers
	}
	return &Detector{
		minBytes: cfg.MinBytes,
		tokens:   lower(cfg.BlockTokens),
		markers:  lower(cfg.ExpectedMarkers),
	}
}

// Detect reports whether body looks like a blocked page.
// A body shorter than the minimum is always blocked. Otherwise the body is
// blocked only if it has a block token and none of the expected markers.
func (d *Detector) Detect(body []byte) (bool, string) {
	if len(body) < d.minBytes {
		return true, ReasonSmallBody
	}
	text := strings.ToLower(string(body))
	for _, m := range d.markers {
		if strings.Contains(text, m) {
			return false, ""
		}
	}
	for _, tok := range d.tokens {
		if strings.Contains(text, tok) {
			return true, ReasonBlockTokenNoMarker
		}
	}
	return false, ""
}

func lower(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
