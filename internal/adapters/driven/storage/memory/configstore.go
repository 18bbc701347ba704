package memory

import (
	"maps"
	"slices"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore is a fixed set of config values held in memory, such as the
// overrides taken from command line flags.
type ConfigStore struct {
	origin string
	values map[string]any
}

// NewConfigStore copies values into a store named origin. Empty strings
// and nil values are left out so an unset flag never overrides anything.
func NewConfigStore(origin string, values map[string]any) *ConfigStore {
	s := &ConfigStore{origin: origin, values: make(map[string]any, len(values))}
	for k, v := range values {
		if v == nil || v == "" {
			continue
		}
		s.values[k] = v
	}
	return s
}

// Lookup returns the value stored under key.
func (s *ConfigStore) Lookup(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Keys lists every stored key in sorted order.
func (s *ConfigStore) Keys() []string {
	return slices.Sorted(maps.Keys(s.values))
}

// Origin returns the name given at construction.
func (s *ConfigStore) Origin() string {
	return s.origin
}
