package capability

import (
	"context"
	"sort"
	"sync"

	"github.com/viant/x"
)

// TypeIniter is implemented by providers that contribute Go types to the
// shared type registry.
type TypeIniter interface {
	InitTypes(types *Types)
}

// Registry holds the providers a workflow may invoke.
type Registry struct {
	types     *Types
	providers map[string]Provider
	mux       sync.RWMutex
}

func (r *Registry) Types() *Types {
	return r.types
}

// Lookup returns a provider by name, or nil.
func (r *Registry) Lookup(name string) Provider {
	r.mux.RLock()
	defer r.mux.RUnlock()
	return r.providers[name]
}

// Register adds a provider, replacing any previous one with the same name.
func (r *Registry) Register(provider Provider) {
	r.mux.Lock()
	defer r.mux.Unlock()
	if initer, ok := provider.(TypeIniter); ok {
		initer.InitTypes(r.types)
	}
	r.providers[provider.Name()] = provider
}

// Names returns registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mux.RLock()
	defer r.mux.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a provider exposes the given action.
func (r *Registry) Has(provider, action string) bool {
	p := r.Lookup(provider)
	if p == nil {
		return false
	}
	return p.Actions().Lookup(action) != nil
}

// Invoke dispatches an action on a registered provider.
func (r *Registry) Invoke(ctx context.Context, provider, action string, args map[string]interface{}) (map[string]interface{}, error) {
	p := r.Lookup(provider)
	if p == nil {
		return nil, NewProviderNotFoundError(provider)
	}
	if p.Actions().Lookup(action) == nil {
		return nil, NewActionNotFoundError(provider, action)
	}
	return p.Invoke(ctx, action, args)
}

// Close releases resources held by providers.
func (r *Registry) Close(ctx context.Context) error {
	r.mux.RLock()
	defer r.mux.RUnlock()
	var err error
	for _, provider := range r.providers {
		if closer, ok := provider.(Closer); ok {
			if cErr := closer.Close(ctx); cErr != nil && err == nil {
				err = cErr
			}
		}
	}
	return err
}

// NewRegistry creates a provider registry, pre-registering any given types.
func NewRegistry(goTypes ...*x.Type) *Registry {
	ret := &Registry{
		types:     NewTypes(),
		providers: make(map[string]Provider),
	}
	for _, t := range goTypes {
		if t != nil {
			ret.types.Register(t)
		}
	}
	return ret
}
