// Package provider holds the format adapter registry and the conversion
// logic shared by all backend families.
package provider

import (
	"github.com/jmbish04/ai-proxy-gateway/internal/domain"
)

// Registry holds the format adapters keyed by backend family. It is
// populated once at startup and read-only afterwards.
type Registry struct {
	providers map[domain.ProviderTag]domain.Provider
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[domain.ProviderTag]domain.Provider)}
}

// Register adds an adapter for its backend family.
func (r *Registry) Register(p domain.Provider) {
	r.providers[p.Name()] = p
}

// Get returns the adapter for a backend family.
func (r *Registry) Get(tag domain.ProviderTag) (domain.Provider, bool) {
	p, ok := r.providers[tag]
	return p, ok
}

// Availability reports per-provider credential presence.
func (r *Registry) Availability() map[domain.ProviderTag]bool {
	out := make(map[domain.ProviderTag]bool, len(r.providers))
	for tag, p := range r.providers {
		out[tag] = p.Available()
	}
	return out
}

// Available returns the available backend families in registration order.
func (r *Registry) Available() []domain.ProviderTag {
	var out []domain.ProviderTag
	for _, tag := range domain.AllProviders {
		if p, ok := r.providers[tag]; ok && p.Available() {
			out = append(out, tag)
		}
	}
	return out
}
