package feature_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/togglekit/pkg/feature"
)

func TestEngine_Describe(t *testing.T) {
	t.Parallel()
	f := newEngine(t, 0, feature.DefaultStrategies(),
		feature.Definition{
			ID:               "storage",
			EnabledByDefault: true,
			HotReloadable:    true,
			Instances:        []string{"local", "s3"},
			DefaultInstance:  "local",
			Strategy: &feature.StrategyConfig{
				Name:   feature.StrategyAllowValues,
				Params: map[string]string{feature.ParamAllowValues: "yes"},
			},
		},
		feature.Definition{ID: "plain"},
	)
	ctx := context.Background()

	t.Run("WithoutOverride", func(t *testing.T) {
		d, err := f.engine.Describe(ctx, "plain")
		require.NoError(t, err)
		assert.Nil(t, d.Override)
		assert.Equal(t, d.Initial, d.Active)
		assert.NotEmpty(t, d.SnapshotID)
	})

	require.NoError(t, f.source.Set("storage", feature.Override{
		CurrentInstance: "s3",
		Strategy:        &feature.StrategyConfig{Name: "Custom"},
	}))

	t.Run("WithOverride", func(t *testing.T) {
		d, err := f.engine.Describe(ctx, "storage")
		require.NoError(t, err)

		assert.Equal(t, "local", d.Initial.CurrentInstance)
		require.NotNil(t, d.Initial.Strategy)
		assert.Equal(t, feature.StrategyAllowValues, d.Initial.Strategy.Name)
		assert.True(t, d.Initial.Strategy.Registered)

		require.NotNil(t, d.Override)
		assert.Nil(t, d.Override.Enabled)
		assert.Equal(t, "s3", d.Override.CurrentInstance)

		assert.Equal(t, "s3", d.Active.CurrentInstance)
		assert.True(t, d.Active.Enabled, "unregistered strategy falls back to the enabled flag")
		require.NotNil(t, d.Active.Strategy)
		assert.Equal(t, "Custom", d.Active.Strategy.Name)
		assert.False(t, d.Active.Strategy.Registered)

		raw, err := json.Marshal(d)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"activeConfiguration"`)
		assert.Contains(t, string(raw), `"featureInstances":["local","s3"]`)
	})

	t.Run("List", func(t *testing.T) {
		infos := f.engine.List(ctx)
		require.Len(t, infos, 2)
		assert.Equal(t, "storage", infos[0].ID)
		assert.Equal(t, "s3", infos[0].CurrentInstance)
		assert.Equal(t, "plain", infos[1].ID)
		assert.False(t, infos[1].Enabled)
	})
}
