// Package rows holds helpers shared by the source parsers for reading loosely
// shaped JSON payloads: locating the row list, picking a field by any of its
// aliases and coercing text and numbers.
package rows

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
)

// Decode parses the body of snap as JSON, keeping numbers as json.Number.
func Decode(source domain.Source, snap *domain.Snapshot) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(snap.Body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, domain.NewParseError(source, snap, "invalid JSON body", err)
	}
	return v, nil
}

// Objects returns the rows of a decoded payload. An array root is the row
// list. An object root yields the first array found under listKeys, or the
// object itself when it carries any of singleKeys.
func Objects(root any, listKeys, singleKeys []string) []map[string]any {
	switch t := root.(type) {
	case []any:
		return objects(t)
	case map[string]any:
		for _, k := range listKeys {
			if list, ok := lookup(t, k).([]any); ok {
				return objects(list)
			}
		}
		for _, k := range singleKeys {
			if Text(t[k]) != "" {
				return []map[string]any{t}
			}
		}
	}
	return nil
}

// lookup resolves a dotted path such as "query.pages".
func lookup(m map[string]any, path string) any {
	var cur any = m
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[part]
	}
	return cur
}

func objects(list []any) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

// Pick returns the first value under keys that is present and not blank.
func Pick(row map[string]any, keys ...string) any {
	for _, k := range keys {
		v, ok := row[k]
		if !ok || v == nil {
			continue
		}
		if strings.TrimSpace(Text(v)) == "" {
			continue
		}
		return v
	}
	return nil
}

// String picks a field and returns it as trimmed text, or "" for placeholders.
func String(row map[string]any, keys ...string) string {
	return domain.CleanText(Text(Pick(row, keys...)))
}

// Text renders a scalar JSON value as trimmed text.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any, []any:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// Int picks a field and truncates it to an integer.
func Int(row map[string]any, keys ...string) (int, bool) {
	f, ok := Float(row, keys...)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// Float picks a field and parses it as a number.
func Float(row map[string]any, keys ...string) (float64, bool) {
	s := Text(Pick(row, keys...))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

var digits = regexp.MustCompile(`\d+`)

// Digits returns the first run of digits in a picked field, or "".
func Digits(row map[string]any, keys ...string) string {
	return digits.FindString(Text(Pick(row, keys...)))
}

var spaces = regexp.MustCompile(`\s+`)

// Collapse trims s and folds internal whitespace runs to single spaces.
func Collapse(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}
