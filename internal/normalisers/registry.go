package normalisers

import (
	"fmt"
	"slices"
	"sync"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driven"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/normalisers/jsa"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/normalisers/sumodb"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/normalisers/wikimedia"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/normalisers/wikipedia"
)

// Ensure Registry implements the interface.
var _ driven.ParserRegistry = (*Registry)(nil)

// Registry maps sources to their parsers.
type Registry struct {
	mu      sync.RWMutex
	parsers map[domain.Source]driven.SourceParser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{
		parsers: make(map[domain.Source]driven.SourceParser),
	}
}

// DefaultRegistry returns a registry with a parser for every known source.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(jsa.New())
	r.Register(sumodb.New())
	r.Register(wikipedia.New())
	r.Register(wikimedia.New())
	return r
}

// Register adds a parser, replacing any parser for the same source.
func (r *Registry) Register(parser driven.SourceParser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[parser.Source()] = parser
}

// Parse dispatches snap to the parser registered for its source.
func (r *Registry) Parse(snap *domain.Snapshot) ([]domain.StagedRecord, error) {
	if snap == nil {
		return nil, domain.ErrInvalidInput
	}
	r.mu.RLock()
	parser, ok := r.parsers[snap.Meta.Source]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no parser for source %q", domain.ErrUnsupportedType, snap.Meta.Source)
	}
	return parser.Parse(snap)
}

// Sources returns the registered sources in sorted order.
func (r *Registry) Sources() []domain.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Source, 0, len(r.parsers))
	for s := range r.parsers {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}
