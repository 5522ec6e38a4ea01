package feature

import (
	"context"
	"errors"
	"sync"
)

// Source supplies the full override snapshot.
// Implementations wrap I/O failures in ErrSourceUnavailable.
type Source interface {
	Fetch(ctx context.Context) (map[string]Override, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (map[string]Override, error)

// Fetch implements Source.
func (f SourceFunc) Fetch(ctx context.Context) (map[string]Override, error) {
	return f(ctx)
}

// NopSource never has overrides. It is the default when no source is configured.
type NopSource struct{}

// Fetch implements Source.
func (NopSource) Fetch(context.Context) (map[string]Override, error) {
	return map[string]Override{}, nil
}

// MemorySource is an in-memory Source.
// It's useful for testing and for hosts that push overrides themselves.
type MemorySource struct {
	mu        sync.RWMutex
	overrides map[string]Override
}

// NewMemorySource creates a memory source seeded with a copy of initial.
func NewMemorySource(initial map[string]Override) *MemorySource {
	return &MemorySource{overrides: cloneOverrides(initial)}
}

// Fetch returns a copy of the stored overrides.
func (m *MemorySource) Fetch(ctx context.Context) (map[string]Override, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneOverrides(m.overrides), nil
}

// Set stores the override for a feature, replacing any previous one.
func (m *MemorySource) Set(featureID string, o Override) error {
	if featureID == "" {
		return errors.Join(ErrInvalidDefinition, errors.New("feature id cannot be empty"))
	}
	m.mu.Lock()
	m.overrides[featureID] = o.Clone()
	m.mu.Unlock()
	return nil
}

// Delete removes the override for a feature.
func (m *MemorySource) Delete(featureID string) {
	m.mu.Lock()
	delete(m.overrides, featureID)
	m.mu.Unlock()
}

// Replace swaps the whole override set.
func (m *MemorySource) Replace(overrides map[string]Override) {
	next := cloneOverrides(overrides)
	m.mu.Lock()
	m.overrides = next
	m.mu.Unlock()
}
