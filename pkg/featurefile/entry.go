package featurefile

import (
	"maps"
	"slices"
	"strconv"

	"github.com/dmitrymomot/togglekit/pkg/feature"
)

// StrategyEntry is the document form of a strategy config.
type StrategyEntry struct {
	Name   string            `json:"name" yaml:"name"`
	Active *bool             `json:"active,omitempty" yaml:"active,omitempty"`
	Config map[string]string `json:"config,omitempty" yaml:"config,omitempty"`
}

// Entry is one feature in a configuration document. The same shape serves
// as a static definition and as a dynamic override; fields that are unset
// leave the static definition in charge when used as an override.
type Entry struct {
	ID              string         `json:"featureId" yaml:"featureId"`
	Enabled         *bool          `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	HotReloadable   bool           `json:"hotReloadable,omitempty" yaml:"hotReloadable,omitempty"`
	Instances       []string       `json:"featureInstances,omitempty" yaml:"featureInstances,omitempty"`
	CurrentInstance string         `json:"currentInstance,omitempty" yaml:"currentInstance,omitempty"`
	DefaultInstance string         `json:"defaultInstance,omitempty" yaml:"defaultInstance,omitempty"`
	Strategy        *StrategyEntry `json:"strategy,omitempty" yaml:"strategy,omitempty"`
}

// Override converts the entry to a dynamic override.
func (e Entry) Override() feature.Override {
	o := feature.Override{
		CurrentInstance: e.CurrentInstance,
		Strategy:        e.Strategy.config(),
	}
	if e.Enabled != nil {
		o.Enabled = feature.Bool(*e.Enabled)
	}
	return o
}

// Definition converts the entry to a static definition. A missing enabled
// flag means disabled.
func (e Entry) Definition() feature.Definition {
	return feature.Definition{
		ID:               e.ID,
		EnabledByDefault: e.Enabled != nil && *e.Enabled,
		HotReloadable:    e.HotReloadable,
		Instances:        slices.Clone(e.Instances),
		DefaultInstance:  e.DefaultInstance,
		Strategy:         e.Strategy.config(),
	}
}

// EntryFromOverride builds the document form of an override.
func EntryFromOverride(id string, o feature.Override) Entry {
	e := Entry{ID: id, CurrentInstance: o.CurrentInstance}
	if o.Enabled != nil {
		e.Enabled = feature.Bool(*o.Enabled)
	}
	if o.Strategy != nil && !o.Strategy.IsZero() {
		params := maps.Clone(o.Strategy.Params)
		s := &StrategyEntry{Name: o.Strategy.Name}
		if raw, ok := params[feature.ParamActive]; ok {
			if active, err := strconv.ParseBool(raw); err == nil {
				s.Active = feature.Bool(active)
				delete(params, feature.ParamActive)
			}
		}
		if len(params) > 0 {
			s.Config = params
		}
		e.Strategy = s
	}
	return e
}

func (s *StrategyEntry) config() *feature.StrategyConfig {
	if s == nil || s.Name == "" {
		return nil
	}
	params := maps.Clone(s.Config)
	if s.Active != nil {
		if params == nil {
			params = make(map[string]string, 1)
		}
		params[feature.ParamActive] = strconv.FormatBool(*s.Active)
	}
	return &feature.StrategyConfig{Name: s.Name, Params: params}
}
