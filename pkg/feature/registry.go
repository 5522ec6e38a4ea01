package feature

import (
	"fmt"
	"sync"
)

// Registry holds the static definition of every declared feature.
// Registration is expected during startup; lookups are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]Definition
	order []string
}

// NewRegistry creates a registry with the given definitions.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]Definition, len(defs))}
	if err := r.Register(defs...); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds definitions to the registry. A definition whose id is already
// registered fails with ErrDuplicateFeature and nothing from the call is added.
func (r *Registry) Register(defs ...Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch := make(map[string]struct{}, len(defs))
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return err
		}
		_, exists := r.defs[def.ID]
		_, repeated := batch[def.ID]
		if exists || repeated {
			return fmt.Errorf("%w: %q", ErrDuplicateFeature, def.ID)
		}
		batch[def.ID] = struct{}{}
	}

	for _, def := range defs {
		r.defs[def.ID] = def.Clone()
		r.order = append(r.order, def.ID)
	}
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(defs ...Definition) {
	if err := r.Register(defs...); err != nil {
		panic(err)
	}
}

// Get returns a copy of the definition registered under id.
func (r *Registry) Get(id string) (Definition, error) {
	def, ok := r.lookup(id)
	if !ok {
		return Definition{}, unknownFeature(id)
	}
	return def.Clone(), nil
}

// Has reports whether a feature with the id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.lookup(id)
	return ok
}

// Definitions returns copies of all definitions in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Definition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.defs[id].Clone())
	}
	return out
}

// Len returns the number of registered features.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// lookup returns the stored definition without copying; callers must not mutate it.
func (r *Registry) lookup(id string) (Definition, bool) {
	r.mu.RLock()
	def, ok := r.defs[id]
	r.mu.RUnlock()
	return def, ok
}
