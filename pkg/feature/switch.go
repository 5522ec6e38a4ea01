package feature

import (
	"context"
	"fmt"
	"maps"
	"sync"
)

// Switch maps the instance ids of one feature to concrete implementations.
//
// For hot-reloadable features Current resolves on every call, so an override
// changing the current instance takes effect after the next refresh. Other
// features pin the instance resolved by the first successful call.
type Switch[T any] struct {
	engine    *Engine
	featureID string
	instances map[string]T
	hot       bool

	once   sync.Once
	pinned T
	err    error
}

// NewSwitch creates a switch for the feature. Every declared instance must
// have an implementation in instances.
func NewSwitch[T any](engine *Engine, featureID string, instances map[string]T) (*Switch[T], error) {
	def, err := engine.registry.Get(featureID)
	if err != nil {
		return nil, err
	}
	for _, id := range def.Instances {
		if _, ok := instances[id]; !ok {
			return nil, fmt.Errorf("%w: feature %q declares instance %q without implementation",
				ErrInvalidDefinition, featureID, id)
		}
	}
	return &Switch[T]{
		engine:    engine,
		featureID: featureID,
		instances: maps.Clone(instances),
		hot:       def.HotReloadable,
	}, nil
}

// Current returns the implementation of the currently selected instance.
func (s *Switch[T]) Current(ctx context.Context) (T, error) {
	if s.hot {
		return s.resolve(ctx)
	}
	s.once.Do(func() {
		s.pinned, s.err = s.resolve(ctx)
	})
	return s.pinned, s.err
}

// MustCurrent is like Current but panics on error.
func (s *Switch[T]) MustCurrent(ctx context.Context) T {
	v, err := s.Current(ctx)
	if err != nil {
		panic(err)
	}
	return v
}

func (s *Switch[T]) resolve(ctx context.Context) (T, error) {
	var zero T
	id, err := s.engine.SelectInstance(ctx, s.featureID)
	if err != nil {
		return zero, err
	}
	impl, ok := s.instances[id]
	if !ok {
		return zero, fmt.Errorf("%w: %q of feature %q", ErrDanglingInstance, id, s.featureID)
	}
	return impl, nil
}
