package feature

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Strategy refines an enabled feature's verdict.
type Strategy interface {
	// Check evaluates the strategy without a caller-supplied subject.
	Check(ctx context.Context, cfg StrategyConfig) (bool, error)
}

// SubjectStrategy is implemented by strategies that decide based on a
// caller-supplied subject (a user id, a session, a request value).
// Strategies that do not implement it are called through Check even when
// a subject is available.
type SubjectStrategy interface {
	Strategy
	CheckSubject(ctx context.Context, cfg StrategyConfig, subject any) (bool, error)
}

// StrategyFunc adapts a function to SubjectStrategy.
// Check calls the function with a nil subject.
type StrategyFunc func(ctx context.Context, cfg StrategyConfig, subject any) (bool, error)

// Check implements Strategy.
func (f StrategyFunc) Check(ctx context.Context, cfg StrategyConfig) (bool, error) {
	return f(ctx, cfg, nil)
}

// CheckSubject implements SubjectStrategy.
func (f StrategyFunc) CheckSubject(ctx context.Context, cfg StrategyConfig, subject any) (bool, error) {
	return f(ctx, cfg, subject)
}

// StrategyRegistry maps strategy names to implementations.
type StrategyRegistry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewStrategyRegistry creates an empty strategy registry.
func NewStrategyRegistry() *StrategyRegistry {
	return &StrategyRegistry{strategies: make(map[string]Strategy)}
}

// Register adds a strategy under name.
func (r *StrategyRegistry) Register(name string, s Strategy) error {
	if name == "" {
		return errors.Join(ErrInvalidStrategy, errors.New("strategy name cannot be empty"))
	}
	if s == nil {
		return errors.Join(ErrInvalidStrategy, fmt.Errorf("strategy %q is nil", name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.strategies[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateStrategy, name)
	}
	r.strategies[name] = s
	return nil
}

// MustRegister is like Register but panics on error.
func (r *StrategyRegistry) MustRegister(name string, s Strategy) *StrategyRegistry {
	if err := r.Register(name, s); err != nil {
		panic(err)
	}
	return r
}

// Resolve returns the strategy registered under name.
// An unknown name is not an error: callers treat it as "no strategy applies".
func (r *StrategyRegistry) Resolve(name string) (Strategy, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	s, ok := r.strategies[name]
	r.mu.RUnlock()
	return s, ok
}

// Names returns the registered strategy names sorted alphabetically.
func (r *StrategyRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
