package feature_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/togglekit/pkg/feature"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	t.Run("RegisterAndGet", func(t *testing.T) {
		t.Parallel()
		reg, err := feature.NewRegistry(
			feature.Definition{ID: "a", EnabledByDefault: true},
			feature.Definition{ID: "b", Instances: []string{"x", "y"}, DefaultInstance: "y"},
		)
		require.NoError(t, err)
		assert.Equal(t, 2, reg.Len())
		assert.True(t, reg.Has("a"))
		assert.False(t, reg.Has("missing"))

		def, err := reg.Get("b")
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y"}, def.Instances)
		assert.Equal(t, "y", def.DefaultInstance)
	})

	t.Run("UnknownFeature", func(t *testing.T) {
		t.Parallel()
		reg, err := feature.NewRegistry()
		require.NoError(t, err)

		_, err = reg.Get("missing")
		require.ErrorIs(t, err, feature.ErrUnknownFeature)
		assert.Contains(t, err.Error(), `"missing"`)
	})

	t.Run("DuplicateFeature", func(t *testing.T) {
		t.Parallel()
		reg, err := feature.NewRegistry(feature.Definition{ID: "a"})
		require.NoError(t, err)

		err = reg.Register(feature.Definition{ID: "a", EnabledByDefault: true})
		require.ErrorIs(t, err, feature.ErrDuplicateFeature)

		def, err := reg.Get("a")
		require.NoError(t, err)
		assert.False(t, def.EnabledByDefault, "original definition must survive")
	})

	t.Run("DuplicateWithinBatchAddsNothing", func(t *testing.T) {
		t.Parallel()
		reg, err := feature.NewRegistry()
		require.NoError(t, err)

		err = reg.Register(
			feature.Definition{ID: "new"},
			feature.Definition{ID: "other"},
			feature.Definition{ID: "new"},
		)
		require.ErrorIs(t, err, feature.ErrDuplicateFeature)
		assert.Equal(t, 0, reg.Len())
	})

	t.Run("InvalidDefinitions", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			name string
			def  feature.Definition
			err  error
		}{
			{"EmptyID", feature.Definition{}, feature.ErrInvalidDefinition},
			{"EmptyInstance", feature.Definition{ID: "f", Instances: []string{"a", ""}}, feature.ErrInvalidDefinition},
			{"RepeatedInstance", feature.Definition{ID: "f", Instances: []string{"a", "a"}}, feature.ErrInvalidDefinition},
			{"UndeclaredDefault", feature.Definition{ID: "f", Instances: []string{"a"}, DefaultInstance: "b"}, feature.ErrDanglingInstance},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				_, err := feature.NewRegistry(tt.def)
				require.ErrorIs(t, err, tt.err)
			})
		}
	})

	t.Run("DefinitionsKeepRegistrationOrder", func(t *testing.T) {
		t.Parallel()
		reg, err := feature.NewRegistry(
			feature.Definition{ID: "zeta"},
			feature.Definition{ID: "alpha"},
		)
		require.NoError(t, err)
		reg.MustRegister(feature.Definition{ID: "mid"})

		var ids []string
		for _, def := range reg.Definitions() {
			ids = append(ids, def.ID)
		}
		assert.Equal(t, []string{"zeta", "alpha", "mid"}, ids)
	})

	t.Run("ReturnsCopies", func(t *testing.T) {
		t.Parallel()
		input := feature.Definition{
			ID:        "f",
			Instances: []string{"a", "b"},
			Strategy:  &feature.StrategyConfig{Name: "S", Params: map[string]string{"k": "v"}},
		}
		reg, err := feature.NewRegistry(input)
		require.NoError(t, err)

		input.Instances[0] = "changed"
		input.Strategy.Params["k"] = "changed"

		def, err := reg.Get("f")
		require.NoError(t, err)
		assert.Equal(t, "a", def.Instances[0])
		assert.Equal(t, "v", def.Strategy.Params["k"])

		def.Instances[1] = "changed"
		again, err := reg.Get("f")
		require.NoError(t, err)
		assert.Equal(t, "b", again.Instances[1])
	})

	t.Run("MustRegisterPanics", func(t *testing.T) {
		t.Parallel()
		reg, err := feature.NewRegistry(feature.Definition{ID: "a"})
		require.NoError(t, err)
		assert.Panics(t, func() { reg.MustRegister(feature.Definition{ID: "a"}) })
	})
}

func TestStrategyRegistry(t *testing.T) {
	t.Parallel()

	noop := feature.StrategyFunc(func(context.Context, feature.StrategyConfig, any) (bool, error) {
		return true, nil
	})

	t.Run("RegisterAndResolve", func(t *testing.T) {
		t.Parallel()
		reg := feature.NewStrategyRegistry()
		require.NoError(t, reg.Register("noop", noop))

		s, ok := reg.Resolve("noop")
		require.True(t, ok)
		allowed, err := s.Check(context.Background(), feature.StrategyConfig{})
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("UnknownNameResolvesToNothing", func(t *testing.T) {
		t.Parallel()
		reg := feature.NewStrategyRegistry()
		s, ok := reg.Resolve("Unregistered")
		assert.False(t, ok)
		assert.Nil(t, s)

		var nilReg *feature.StrategyRegistry
		_, ok = nilReg.Resolve("anything")
		assert.False(t, ok)
	})

	t.Run("Duplicate", func(t *testing.T) {
		t.Parallel()
		reg := feature.NewStrategyRegistry().MustRegister("noop", noop)
		err := reg.Register("noop", noop)
		require.ErrorIs(t, err, feature.ErrDuplicateStrategy)
	})

	t.Run("Invalid", func(t *testing.T) {
		t.Parallel()
		reg := feature.NewStrategyRegistry()
		require.ErrorIs(t, reg.Register("", noop), feature.ErrInvalidStrategy)
		require.ErrorIs(t, reg.Register("nil", nil), feature.ErrInvalidStrategy)
	})

	t.Run("DefaultStrategies", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, []string{
			feature.StrategyAllowList,
			feature.StrategyAllowValues,
			feature.StrategyAlways,
			feature.StrategyEnvironment,
			feature.StrategyOS,
			feature.StrategyPercentage,
			feature.StrategyTargeted,
		}, feature.DefaultStrategies().Names())
	})
}
