// Package search provides web search providers for source discovery.
package search

import (
	"fmt"
	"net/http"
	"strings"

	"SEOPilot/internal/config"
	"SEOPilot/internal/ports"
)

// Provider is a named search strategy (DuckDuckGo, static lists, ...).
type Provider interface {
	ports.SearchProvider
	Name() string
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
	if provider, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]; ok {
		return provider, nil
	}
	return nil, fmt.Errorf("search provider %s is not registered", name)
}

// FromConfig registers the built-in providers and resolves the configured one.
func FromConfig(cfg config.SearchConfig, client *http.Client) (Provider, error) {
	registry := NewRegistry()
	registry.Register(NewDuckDuckGo(cfg, client))
	registry.Register(NewStatic(cfg.Static))
	return registry.Resolve(cfg.Provider)
}

// limitURLs keeps the first limit unique, non-empty entries.
func limitURLs(urls []string, limit int) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
