// Package collector resolves search providers by name.
package collector

import (
	"context"
	"fmt"
	"sort"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
)

// Provider is a single search backend (Brave, Google News RSS, ...).
type Provider interface {
	Name() string
	Search(ctx context.Context, req ports.SearchRequest) ([]domain.Candidate, error)
}

// Registry keeps a mapping from provider names to their implementations.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: map[string]Provider{}}
}

// Register adds or replaces a provider implementation.
func (r *Registry) Register(provider Provider) {
	if r.providers == nil {
		r.providers = map[string]Provider{}
	}
	r.providers[provider.Name()] = provider
}

// Resolve returns a provider by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Provider, error) {
	if provider, ok := r.providers[name]; ok {
		return provider, nil
	}
	return nil, fmt.Errorf("search provider %q is not registered (have %v)", name, r.Names())
}

// Names lists registered providers in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
