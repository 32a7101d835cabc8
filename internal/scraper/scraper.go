package scraper

import (
	"context"

	"github.com/mcbuckeye/regulatoryradar/internal/domain"
)

// Request carries run-scoped parameters shared by all adapters.
type Request struct {
	// Keywords are the active therapeutic-interest terms; adapters that
	// support querying (the registry API, RSS filtering) use them.
	Keywords []string
}

// Scraper pulls raw updates from one external document or API.
//
// Transport and parse failures never propagate: an adapter logs the
// failure on its own logger and returns an empty slice, so a sibling
// source continues unaffected.
type Scraper interface {
	// Name identifies the adapter, e.g. "fda-guidances".
	Name() string
	// Source is the tag stored with each update, e.g. "fda". Several
	// adapters may share one source.
	Source() string
	Fetch(ctx context.Context, req Request) []domain.RawUpdate
}

// Registry keeps adapters in registration order. The orchestrator walks
// them sequentially so run totals are deterministic for a given input.
type Registry struct {
	scrapers []Scraper
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends an adapter; registration order is processing order.
func (r *Registry) Register(s Scraper) {
	r.scrapers = append(r.scrapers, s)
}

// InScope returns the adapters matching the requested source scope,
// in registration order. Scope is domain.ScopeAll or a source tag;
// anything else matches nothing.
func (r *Registry) InScope(scope string) []Scraper {
	if scope == domain.ScopeAll {
		return r.scrapers
	}
	var matched []Scraper
	for _, s := range r.scrapers {
		if s.Source() == scope {
			matched = append(matched, s)
		}
	}
	return matched
}

// All returns every registered adapter in order.
func (r *Registry) All() []Scraper {
	return r.scrapers
}
