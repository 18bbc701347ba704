package file

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"slices"

	"github.com/pelletier/go-toml/v2"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// DefaultFile is the config file read when no path is given.
const DefaultFile = "pipeline.toml"

// ConfigStore is a read-only TOML config file. Tables are flattened to
// dotted keys, so rate_limit_ms under [ingest] is "ingest.rate_limit_ms".
type ConfigStore struct {
	path   string
	values map[string]any
}

// NewConfigStore reads the TOML file at path, or DefaultFile when path is
// empty. A missing file yields an empty store; a malformed one is an error
// naming the line and column.
func NewConfigStore(path string) (*ConfigStore, error) {
	if path == "" {
		path = DefaultFile
	}
	s := &ConfigStore{path: path, values: map[string]any{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		var de *toml.DecodeError
		if errors.As(err, &de) {
			row, col := de.Position()
			return nil, fmt.Errorf("parsing %s:%d:%d: %w", path, row, col, err)
		}
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	flatten("", doc, s.values)
	return s, nil
}

func flatten(prefix string, table, into map[string]any) {
	for k, v := range table {
		if prefix != "" {
			k = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flatten(k, nested, into)
			continue
		}
		into[k] = v
	}
}

// Lookup returns the value stored under key.
func (s *ConfigStore) Lookup(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Keys lists every key in the file in sorted order.
func (s *ConfigStore) Keys() []string {
	return slices.Sorted(maps.Keys(s.values))
}

// Origin returns the file path.
func (s *ConfigStore) Origin() string {
	return s.path
}
