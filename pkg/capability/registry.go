package capability

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

var (
	ErrNotFound    = errors.New("capability not found")
	ErrDuplicate   = errors.New("capability already registered")
	ErrNilHandler  = errors.New("capability is nil")
	ErrNameMissing = errors.New("capability name is empty")
)

// Registry manages the available capabilities.
// Safe for concurrent lookups; registration normally happens once at startup.
type Registry struct {
	mu           sync.RWMutex
	capabilities map[string]Capability
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		capabilities: make(map[string]Capability),
	}
}

// Register adds capabilities to the registry.
// Duplicate names are a configuration error and leave the registry unchanged
// for the offending entry.
func (r *Registry) Register(caps ...Capability) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range caps {
		if c == nil {
			return ErrNilHandler
		}
		name := c.Name()
		if name == "" {
			return ErrNameMissing
		}
		if _, exists := r.capabilities[name]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicate, name)
		}
		r.capabilities[name] = c
	}
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(caps ...Capability) {
	if err := r.Register(caps...); err != nil {
		panic(err)
	}
}

// Lookup returns the capability registered under name.
func (r *Registry) Lookup(name string) (Capability, error) {
	r.mu.RLock()
	c, ok := r.capabilities[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return c, nil
}

// List returns all capabilities sorted by name.
func (r *Registry) List() []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Capability, 0, len(r.capabilities))
	for _, name := range slices.Sorted(maps.Keys(r.capabilities)) {
		out = append(out, r.capabilities[name])
	}
	return out
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.capabilities)
}
