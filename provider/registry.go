package provider

import (
	"fmt"
	"sync"
)

// Factory builds a Provider from a backend descriptor.
type Factory func(Descriptor) (Provider, error)

// Registry maps backend kinds to provider factories. The resolver never
// constructs providers directly; the caller registers one factory per kind
// and builds providers from the configured descriptor set.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory for a backend kind.
// Returns an error if the kind is empty, the factory is nil, or a factory
// for that kind is already registered.
func (r *Registry) Register(kind string, factory Factory) error {
	if kind == "" {
		return fmt.Errorf("provider kind cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("factory for kind %q already registered", kind)
	}

	r.factories[kind] = factory
	return nil
}

// Build instantiates a provider for one descriptor.
func (r *Registry) Build(desc Descriptor) (Provider, error) {
	r.mu.RLock()
	factory, exists := r.factories[desc.Kind]
	r.mu.RUnlock()

	if !exists {
		return nil, WrapErrorf(ErrUnknownKind, "kind %q for backend %q", desc.Kind, desc.Name)
	}

	p, err := factory(desc)
	if err != nil {
		return nil, WrapErrorf(err, "building backend %q", desc.Name)
	}
	return p, nil
}

// BuildAll instantiates providers for the full descriptor set, preserving
// descriptor order. Order matters: it determines deduplication precedence
// during aggregation.
func (r *Registry) BuildAll(descs []Descriptor) ([]Provider, error) {
	providers := make([]Provider, 0, len(descs))
	for _, desc := range descs {
		p, err := r.Build(desc)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, nil
}

// Kinds returns the registered kinds in no particular order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	return kinds
}
