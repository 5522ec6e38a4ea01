package featurefile

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/magiconair/properties"

	"github.com/dmitrymomot/togglekit/pkg/feature"
)

const propertiesPrefix = "feature."

// decodeProperties reads feature.<id>.<property> keys from a Java
// properties document. Feature ids cannot contain dots. Keys outside the
// feature namespace are ignored. Entries are returned in order of first
// appearance; a repeated key replaces the earlier value.
func decodeProperties(r io.Reader) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	loader := properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	props, err := loader.LoadBytes(data)
	if err != nil {
		return nil, err
	}

	var order []string
	byID := make(map[string]*Entry)
	for _, key := range props.Keys() {
		rest, ok := strings.CutPrefix(key, propertiesPrefix)
		if !ok {
			continue
		}
		id, prop, ok := strings.Cut(rest, ".")
		if !ok || id == "" || prop == "" {
			return nil, fmt.Errorf("malformed key %q", key)
		}
		e, exists := byID[id]
		if !exists {
			e = &Entry{ID: id}
			byID[id] = e
			order = append(order, id)
		}
		value, _ := props.Get(key)
		if err := setProperty(e, prop, strings.TrimSpace(value)); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
	}

	entries := make([]Entry, 0, len(order))
	for _, id := range order {
		entries = append(entries, *byID[id])
	}
	return entries, nil
}

func setProperty(e *Entry, prop, value string) error {
	switch prop {
	case "enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", prop, err)
		}
		e.Enabled = feature.Bool(b)
	case "hot-reloadable", "hotReloadable":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", prop, err)
		}
		e.HotReloadable = b
	case "featureInstances":
		e.Instances = nil
		for _, inst := range strings.Split(value, ",") {
			if inst = strings.TrimSpace(inst); inst != "" && !slices.Contains(e.Instances, inst) {
				e.Instances = append(e.Instances, inst)
			}
		}
	case "currentInstance":
		e.CurrentInstance = value
	case "defaultInstance":
		e.DefaultInstance = value
	case "strategy":
		e.strategy().Name = value
	case "featureId", "featureClass":
		// Accepted for compatibility; the id comes from the key.
	default:
		key, ok := strings.CutPrefix(prop, "strategy.")
		if !ok || key == "" {
			return fmt.Errorf("unknown property %q", prop)
		}
		s := e.strategy()
		if key == feature.ParamActive {
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("%s: %w", prop, err)
			}
			s.Active = feature.Bool(b)
			return nil
		}
		if s.Config == nil {
			s.Config = make(map[string]string)
		}
		s.Config[key] = value
	}
	return nil
}

func (e *Entry) strategy() *StrategyEntry {
	if e.Strategy == nil {
		e.Strategy = &StrategyEntry{}
	}
	return e.Strategy
}
