package domain

import (
	"encoding/json"
	"strings"
)

var placeholderTokens = map[string]bool{
	"n/a":       true,
	"na":        true,
	"null":      true,
	"undefined": true,
	"unknown":   true,
}

// IsPlaceholder reports whether s is blank or a stand-in for a missing value.
func IsPlaceholder(s string) bool {
	t := strings.ToLower(strings.TrimSpace(s))
	return t == "" || placeholderTokens[t]
}

// CleanText trims s and returns "" for placeholders.
func CleanText(s string) string {
	if IsPlaceholder(s) {
		return ""
	}
	return strings.TrimSpace(s)
}

// Sanitize walks a decoded JSON value and drops nulls, placeholder strings
// and containers left empty by the walk. It returns nil when nothing is left.
func Sanitize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if IsPlaceholder(t) {
			return nil
		}
		return strings.TrimSpace(t)
	case []any:
		out := make([]any, 0, len(t))
		for _, item := range t {
			if s := Sanitize(item); s != nil {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			if s := Sanitize(item); s != nil {
				out[k] = s
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return v
	}
}

// SanitizeRecords applies Sanitize to a decoded JSON array and returns the
// surviving objects re-encoded as JSON.
func SanitizeRecords(raw []any) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(raw))
	for _, item := range raw {
		clean := Sanitize(item)
		if clean == nil {
			continue
		}
		data, err := json.Marshal(clean)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

// ContainsPlaceholder reports whether any string inside a decoded JSON value
// is a placeholder, or any value is null.
func ContainsPlaceholder(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return IsPlaceholder(t)
	case []any:
		for _, item := range t {
			if ContainsPlaceholder(item) {
				return true
			}
		}
	case map[string]any:
		for _, item := range t {
			if ContainsPlaceholder(item) {
				return true
			}
		}
	}
	return false
}
