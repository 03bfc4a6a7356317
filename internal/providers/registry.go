// Package providers groups the generation provider clients behind a lookup
// by name.
package providers

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
)

// Registry resolves providers by the name stored on job records.
type Registry struct {
	mu         sync.RWMutex
	providers  map[string]domain.Provider
	defaultKey string
}

// NewRegistry registers the given providers. The first one becomes the
// default used for records that carry no provider name.
func NewRegistry(ps ...domain.Provider) *Registry {
	r := &Registry{providers: make(map[string]domain.Provider)}
	for _, p := range ps {
		r.Register(p)
	}
	return r
}

func (r *Registry) Register(p domain.Provider) {
	if p == nil {
		return
	}
	key := strings.ToLower(p.Name())
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[key] = p
	if r.defaultKey == "" {
		r.defaultKey = key
	}
}

// Lookup returns the provider named name, or the default for an empty name.
func (r *Registry) Lookup(name string) (domain.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = r.defaultKey
	}
	p, ok := r.providers[key]
	if !ok {
		return nil, fmt.Errorf("provider %q: %w", name, domain.ErrProviderNotConfigured)
	}
	return p, nil
}

// Names lists registered providers in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for k := range r.providers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
