package feature

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/togglekit/pkg/logger"
)

// Engine answers whether a feature is enabled and which instance backs it.
//
// Every call reads the static definition from the Registry and exactly one
// override snapshot from the Cache, so the enabled flag, the strategy config
// and the current instance always come from the same generation of data.
// The engine itself holds no mutable state.
type Engine struct {
	registry   *Registry
	strategies *StrategyRegistry
	cache      *Cache
	log        *slog.Logger
	observer   Observer
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used for resolution problems.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithObserver registers an observer for resolution events.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// NewEngine creates an engine. A nil strategies registry means no strategy
// ever applies; a nil cache means no overrides.
func NewEngine(registry *Registry, strategies *StrategyRegistry, cache *Cache, opts ...EngineOption) *Engine {
	if registry == nil {
		registry = &Registry{defs: map[string]Definition{}}
	}
	if strategies == nil {
		strategies = NewStrategyRegistry()
	}
	if cache == nil {
		cache = NewCache(NopSource{})
	}
	e := &Engine{
		registry:   registry,
		strategies: strategies,
		cache:      cache,
		log:        slog.New(slog.DiscardHandler),
		observer:   nopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry backing the engine.
func (e *Engine) Registry() *Registry { return e.registry }

// Cache returns the override cache backing the engine.
func (e *Engine) Cache() *Cache { return e.cache }

// IsEnabled reports whether the feature is enabled.
// It fails only with ErrUnknownFeature.
func (e *Engine) IsEnabled(ctx context.Context, featureID string) (bool, error) {
	return e.resolve(ctx, featureID, nil, false)
}

// IsEnabledFor is like IsEnabled but hands subject to strategies that
// implement SubjectStrategy.
func (e *Engine) IsEnabledFor(ctx context.Context, featureID string, subject any) (bool, error) {
	return e.resolve(ctx, featureID, subject, true)
}

// SelectInstance returns the id of the instance currently backing the feature:
// the override's current instance, else the default instance, else the first
// declared instance. It fails with ErrUnknownFeature or ErrNoInstanceAvailable.
func (e *Engine) SelectInstance(ctx context.Context, featureID string) (string, error) {
	def, ok := e.registry.lookup(featureID)
	if !ok {
		return "", unknownFeature(featureID)
	}

	inst, dangling, err := selectInstance(def, e.cache.Snapshot(ctx))
	if dangling != "" {
		e.reportDangling(ctx, def.ID, dangling)
	}
	if err != nil {
		return "", err
	}
	e.observer.InstanceSelected(def.ID, inst)
	return inst, nil
}

// Checker returns a closure bound to one feature for hosts that only need a
// yes/no answer. Errors are logged and answered with false.
func (e *Engine) Checker(featureID string) func(ctx context.Context) bool {
	return func(ctx context.Context) bool {
		enabled, err := e.IsEnabled(ctx, featureID)
		if err != nil {
			e.log.ErrorContext(ctx, "feature check failed", logger.Feature(featureID), logger.Error(err))
			return false
		}
		return enabled
	}
}

// Predicate is like Checker for the subject-aware form.
func (e *Engine) Predicate(featureID string) func(ctx context.Context, subject any) bool {
	return func(ctx context.Context, subject any) bool {
		enabled, err := e.IsEnabledFor(ctx, featureID, subject)
		if err != nil {
			e.log.ErrorContext(ctx, "feature check failed", logger.Feature(featureID), logger.Error(err))
			return false
		}
		return enabled
	}
}

func (e *Engine) resolve(ctx context.Context, featureID string, subject any, withSubject bool) (bool, error) {
	def, ok := e.registry.lookup(featureID)
	if !ok {
		return false, unknownFeature(featureID)
	}

	enabled := e.verdict(ctx, def, e.cache.Snapshot(ctx), subject, withSubject)
	e.observer.FeatureResolved(def.ID, enabled)
	return enabled, nil
}

func (e *Engine) verdict(ctx context.Context, def Definition, snap *Snapshot, subject any, withSubject bool) bool {
	override, hasOverride := snap.Lookup(def.ID)

	// The dynamic flag replaces the static default, it is not combined with it.
	enabled := def.EnabledByDefault
	if hasOverride && override.Enabled != nil {
		enabled = *override.Enabled
	}
	if !enabled {
		return false
	}

	cfg, ok := effectiveStrategy(def, override, hasOverride)
	if !ok || !cfg.Active() {
		return true
	}

	strategy, ok := e.strategies.Resolve(cfg.Name)
	if !ok {
		e.log.DebugContext(ctx, "strategy is not registered, using enabled flag",
			logger.Feature(def.ID), logger.Strategy(cfg.Name))
		return true
	}

	allowed, err := runStrategy(ctx, strategy, cfg, subject, withSubject)
	if err != nil {
		e.observer.StrategyFailed(def.ID, cfg.Name, err)
		e.log.ErrorContext(ctx, "strategy failed, denying feature",
			logger.Feature(def.ID), logger.Strategy(cfg.Name), logger.Error(err))
		return false
	}
	return allowed
}

func (e *Engine) reportDangling(ctx context.Context, featureID, instance string) {
	e.observer.DanglingInstance(featureID, instance)
	e.log.WarnContext(ctx, "override names an undeclared instance, ignoring it",
		logger.Feature(featureID), logger.Instance(instance),
		logger.Error(ErrDanglingInstance))
}

// effectiveStrategy picks the override's strategy when it names one and the
// static strategy otherwise.
func effectiveStrategy(def Definition, override Override, hasOverride bool) (StrategyConfig, bool) {
	if hasOverride && override.Strategy != nil && !override.Strategy.IsZero() {
		return *override.Strategy, true
	}
	if def.Strategy != nil && !def.Strategy.IsZero() {
		return *def.Strategy, true
	}
	return StrategyConfig{}, false
}

// selectInstance resolves the instance for def against snap. A current
// instance that is not declared is returned as dangling and skipped.
func selectInstance(def Definition, snap *Snapshot) (inst, dangling string, err error) {
	if o, ok := snap.Lookup(def.ID); ok && o.CurrentInstance != "" {
		if def.Declares(o.CurrentInstance) {
			return o.CurrentInstance, "", nil
		}
		dangling = o.CurrentInstance
	}
	if def.DefaultInstance != "" {
		return def.DefaultInstance, dangling, nil
	}
	if len(def.Instances) > 0 {
		return def.Instances[0], dangling, nil
	}
	return "", dangling, fmt.Errorf("%w: %q", ErrNoInstanceAvailable, def.ID)
}

// runStrategy evaluates a strategy, converting panics into errors.
func runStrategy(ctx context.Context, s Strategy, cfg StrategyConfig, subject any, withSubject bool) (allowed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			allowed = false
			err = errors.Join(ErrStrategyPanic, fmt.Errorf("%v", r))
		}
	}()

	if withSubject {
		if ss, ok := s.(SubjectStrategy); ok {
			return ss.CheckSubject(ctx, cfg, subject)
		}
	}
	return s.Check(ctx, cfg)
}

func unknownFeature(featureID string) error {
	return errors.Join(ErrUnknownFeature, fmt.Errorf("feature %q", featureID))
}
