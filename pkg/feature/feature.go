package feature

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ParamActive is the strategy parameter that switches a strategy off without removing it.
const ParamActive = "active"

// StrategyConfig names a strategy and carries its string-keyed parameters.
type StrategyConfig struct {
	Name   string            `json:"name"`
	Params map[string]string `json:"params,omitempty"`
}

// IsZero reports whether the config names no strategy.
func (c StrategyConfig) IsZero() bool {
	return c.Name == ""
}

// Active reports whether the strategy should be evaluated.
// A missing or unparsable "active" parameter counts as active.
func (c StrategyConfig) Active() bool {
	v, ok := c.Params[ParamActive]
	if !ok {
		return true
	}
	active, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return active
}

// Get returns the parameter stored under key.
func (c StrategyConfig) Get(key string) (string, bool) {
	v, ok := c.Params[key]
	return v, ok
}

// Clone returns a deep copy of the config.
func (c StrategyConfig) Clone() StrategyConfig {
	return StrategyConfig{Name: c.Name, Params: maps.Clone(c.Params)}
}

// Definition is the static description of a feature. It is fixed at registration.
type Definition struct {
	ID               string
	EnabledByDefault bool
	// HotReloadable makes instance switches re-resolve on every access
	// instead of pinning the first resolved instance.
	HotReloadable bool
	// Instances lists the swappable implementations in declaration order.
	Instances       []string
	DefaultInstance string
	Strategy        *StrategyConfig
}

// Validate checks the structural invariants of the definition.
func (d Definition) Validate() error {
	if d.ID == "" {
		return errors.Join(ErrInvalidDefinition, errors.New("feature id cannot be empty"))
	}
	seen := make(map[string]struct{}, len(d.Instances))
	for _, inst := range d.Instances {
		if inst == "" {
			return errors.Join(ErrInvalidDefinition, fmt.Errorf("feature %q declares an empty instance id", d.ID))
		}
		if _, dup := seen[inst]; dup {
			return errors.Join(ErrInvalidDefinition, fmt.Errorf("feature %q declares instance %q twice", d.ID, inst))
		}
		seen[inst] = struct{}{}
	}
	if d.DefaultInstance != "" {
		if _, ok := seen[d.DefaultInstance]; !ok {
			return fmt.Errorf("%w: default instance %q of feature %q", ErrDanglingInstance, d.DefaultInstance, d.ID)
		}
	}
	return nil
}

// Declares reports whether instance is one of the declared instances.
func (d Definition) Declares(instance string) bool {
	return slices.Contains(d.Instances, instance)
}

// Clone returns a deep copy of the definition.
func (d Definition) Clone() Definition {
	out := d
	out.Instances = slices.Clone(d.Instances)
	if d.Strategy != nil {
		s := d.Strategy.Clone()
		out.Strategy = &s
	}
	return out
}

// Override is the dynamic configuration of one feature taken from a Source.
// Unset fields leave the static definition in charge.
type Override struct {
	Enabled         *bool
	CurrentInstance string
	Strategy        *StrategyConfig
}

// Clone returns a deep copy of the override.
func (o Override) Clone() Override {
	out := o
	if o.Enabled != nil {
		v := *o.Enabled
		out.Enabled = &v
	}
	if o.Strategy != nil {
		s := o.Strategy.Clone()
		out.Strategy = &s
	}
	return out
}

// Bool returns a pointer to v, handy for Override.Enabled literals.
func Bool(v bool) *bool {
	return &v
}

// Snapshot is one immutable generation of overrides fetched from a Source.
type Snapshot struct {
	ID        uuid.UUID
	FetchedAt time.Time
	Overrides map[string]Override
}

// Lookup returns the override for the feature, if any.
func (s *Snapshot) Lookup(featureID string) (Override, bool) {
	if s == nil {
		return Override{}, false
	}
	o, ok := s.Overrides[featureID]
	return o, ok
}

func cloneOverrides(in map[string]Override) map[string]Override {
	out := make(map[string]Override, len(in))
	for id, o := range in {
		out[id] = o.Clone()
	}
	return out
}
