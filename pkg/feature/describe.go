package feature

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// StrategyInfo is a read-only view of a strategy config.
type StrategyInfo struct {
	Name       string            `json:"strategyName"`
	Active     bool              `json:"active"`
	Registered bool              `json:"registered"`
	Params     map[string]string `json:"config,omitempty"`
}

// Info is a read-only view of a feature.
type Info struct {
	ID              string        `json:"featureId"`
	Enabled         bool          `json:"enabled"`
	HotReloadable   bool          `json:"hotReloadable"`
	Instances       []string      `json:"featureInstances,omitempty"`
	CurrentInstance string        `json:"currentInstance,omitempty"`
	DefaultInstance string        `json:"defaultInstance,omitempty"`
	Strategy        *StrategyInfo `json:"strategy,omitempty"`
}

// OverrideInfo is a read-only view of the override applied to a feature.
type OverrideInfo struct {
	Enabled         *bool         `json:"enabled,omitempty"`
	CurrentInstance string        `json:"currentInstance,omitempty"`
	Strategy        *StrategyInfo `json:"strategy,omitempty"`
}

// Details explains how a feature resolves: what was declared, what the
// current snapshot overrides, and the resulting active configuration.
type Details struct {
	Initial    Info          `json:"initialConfiguration"`
	Override   *OverrideInfo `json:"configurationOverride,omitempty"`
	Active     Info          `json:"activeConfiguration"`
	SnapshotID string        `json:"snapshotId,omitempty"`
	FetchedAt  time.Time     `json:"fetchedAt,omitzero"`
}

// Describe returns the details of one feature.
func (e *Engine) Describe(ctx context.Context, featureID string) (Details, error) {
	def, ok := e.registry.lookup(featureID)
	if !ok {
		return Details{}, unknownFeature(featureID)
	}

	snap := e.cache.Snapshot(ctx)
	initialInstance, _, _ := selectInstance(def, nil)
	d := Details{
		Initial: Info{
			ID:              def.ID,
			Enabled:         def.EnabledByDefault,
			HotReloadable:   def.HotReloadable,
			Instances:       slices.Clone(def.Instances),
			CurrentInstance: initialInstance,
			DefaultInstance: def.DefaultInstance,
			Strategy:        e.strategyInfo(def.Strategy),
		},
		Active:    e.activeInfo(ctx, def, snap),
		FetchedAt: snap.FetchedAt,
	}
	if snap.ID != uuid.Nil {
		d.SnapshotID = snap.ID.String()
	}
	if o, ok := snap.Lookup(def.ID); ok {
		d.Override = &OverrideInfo{
			CurrentInstance: o.CurrentInstance,
			Strategy:        e.strategyInfo(o.Strategy),
		}
		if o.Enabled != nil {
			d.Override.Enabled = Bool(*o.Enabled)
		}
	}
	return d, nil
}

// List returns the active view of every registered feature in registration
// order, all resolved against the same snapshot.
func (e *Engine) List(ctx context.Context) []Info {
	snap := e.cache.Snapshot(ctx)
	defs := e.registry.Definitions()
	out := make([]Info, 0, len(defs))
	for _, def := range defs {
		out = append(out, e.activeInfo(ctx, def, snap))
	}
	return out
}

func (e *Engine) activeInfo(ctx context.Context, def Definition, snap *Snapshot) Info {
	override, hasOverride := snap.Lookup(def.ID)
	info := Info{
		ID:              def.ID,
		Enabled:         e.verdict(ctx, def, snap, nil, false),
		HotReloadable:   def.HotReloadable,
		Instances:       slices.Clone(def.Instances),
		DefaultInstance: def.DefaultInstance,
	}
	if inst, _, err := selectInstance(def, snap); err == nil {
		info.CurrentInstance = inst
	}
	if cfg, ok := effectiveStrategy(def, override, hasOverride); ok {
		info.Strategy = e.strategyInfo(&cfg)
	}
	return info
}

func (e *Engine) strategyInfo(cfg *StrategyConfig) *StrategyInfo {
	if cfg == nil || cfg.IsZero() {
		return nil
	}
	_, registered := e.strategies.Resolve(cfg.Name)
	return &StrategyInfo{
		Name:       cfg.Name,
		Active:     cfg.Active(),
		Registered: registered,
		Params:     maps.Clone(cfg.Params),
	}
}
