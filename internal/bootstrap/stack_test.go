package bootstrap_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/togglekit/internal/bootstrap"
	"github.com/dmitrymomot/togglekit/pkg/feature"
	"github.com/dmitrymomot/togglekit/pkg/requestid"
)

const definitionsYAML = `
- featureId: new-ui
  enabled: true
- featureId: storage
  enabled: true
  hotReloadable: true
  featureInstances: [local, s3]
  defaultInstance: local
- featureId: prod-only
  enabled: true
  strategy:
    name: Environment
    config:
      environments: production
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func fileConfig(t *testing.T, overrides string) bootstrap.Config {
	t.Helper()
	dir := t.TempDir()
	defs := filepath.Join(dir, "definitions.yaml")
	src := filepath.Join(dir, "overrides.json")
	writeFile(t, defs, definitionsYAML)
	writeFile(t, src, overrides)

	return bootstrap.Config{
		SourceType:    bootstrap.SourceFile,
		Source:        src,
		RefreshPeriod: time.Hour,
		Definitions:   defs,
		Env:           "development",
	}
}

func TestNew_FileSource(t *testing.T) {
	t.Parallel()
	cfg := fileConfig(t, `[{"featureId": "storage", "currentInstance": "s3"}, {"featureId": "new-ui", "enabled": false}]`)

	stack, err := bootstrap.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stack.Close() })
	assert.Nil(t, stack.Publisher, "file source is read-only")

	ctx := stack.Context(context.Background())

	enabled, err := stack.Engine.IsEnabled(ctx, "new-ui")
	require.NoError(t, err)
	assert.False(t, enabled)

	inst, err := stack.Engine.SelectInstance(ctx, "storage")
	require.NoError(t, err)
	assert.Equal(t, "s3", inst)

	enabled, err = stack.Engine.IsEnabled(ctx, "prod-only")
	require.NoError(t, err)
	assert.False(t, enabled, "development is not listed")

	require.NoError(t, stack.Ready(ctx))
}

func TestNew_EnvironmentReachesStrategies(t *testing.T) {
	t.Parallel()
	cfg := fileConfig(t, `[]`)
	cfg.Env = "prod"

	stack, err := bootstrap.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stack.Close() })

	enabled, err := stack.Engine.IsEnabled(stack.Context(context.Background()), "prod-only")
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestNew_ExtraDefinitionsAndSource(t *testing.T) {
	t.Parallel()
	src := feature.NewMemorySource(map[string]feature.Override{"extra": {Enabled: feature.Bool(true)}})

	stack, err := bootstrap.New(context.Background(), bootstrap.Config{},
		nil,
		bootstrap.WithDefinitions(feature.Definition{ID: "extra"}),
		bootstrap.WithSource(src),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stack.Close() })

	enabled, err := stack.Engine.IsEnabled(context.Background(), "extra")
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	t.Run("MissingDefinitions", func(t *testing.T) {
		t.Parallel()
		cfg := bootstrap.Config{Definitions: filepath.Join(t.TempDir(), "missing.yaml")}
		_, err := bootstrap.New(context.Background(), cfg, nil)
		require.Error(t, err)
	})

	t.Run("DuplicateDefinitions", func(t *testing.T) {
		t.Parallel()
		_, err := bootstrap.New(context.Background(), bootstrap.Config{}, nil,
			bootstrap.WithDefinitions(feature.Definition{ID: "a"}, feature.Definition{ID: "a"}))
		require.ErrorIs(t, err, feature.ErrDuplicateFeature)
	})

	t.Run("UnknownSourceType", func(t *testing.T) {
		t.Parallel()
		_, err := bootstrap.New(context.Background(), bootstrap.Config{SourceType: "etcd"}, nil)
		require.ErrorIs(t, err, bootstrap.ErrInvalidConfig)
	})
}

func TestNew_WatchInvalidatesCache(t *testing.T) {
	t.Parallel()
	cfg := fileConfig(t, `[]`)
	cfg.Watch = true

	stack, err := bootstrap.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stack.Close() })

	ctx := context.Background()
	inst, err := stack.Engine.SelectInstance(ctx, "storage")
	require.NoError(t, err)
	require.Equal(t, "local", inst)

	writeFile(t, cfg.Source, `[{"featureId": "storage", "currentInstance": "s3"}]`)

	require.Eventually(t, func() bool {
		inst, err := stack.Engine.SelectInstance(ctx, "storage")
		return err == nil && inst == "s3"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestStack_Handler(t *testing.T) {
	t.Parallel()
	stack, err := bootstrap.New(context.Background(), fileConfig(t, `[]`), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stack.Close() })

	srv := httptest.NewServer(stack.Handler())
	t.Cleanup(srv.Close)

	body := func(path string) (int, string) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(b)
	}

	code, out := body("/v1/features/new-ui/enabled")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"featureId":"new-ui","enabled":true}`, out)

	code, out = body("/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ALIVE", out)

	code, out = body("/readyz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "READY", out)

	code, out = body("/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, out, `togglekit_feature_resolutions_total{feature="new-ui",result="true"} 1`)
	assert.Contains(t, out, "go_goroutines")

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(requestid.Header, "probe-1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "probe-1", resp.Header.Get(requestid.Header))
}

func TestStack_ContextCarriesRequestID(t *testing.T) {
	t.Parallel()
	stack, err := bootstrap.New(context.Background(), fileConfig(t, `[]`), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stack.Close() })

	ctx := stack.Context(context.Background())
	assert.NotEmpty(t, requestid.FromContext(ctx))
}

func TestStack_CloseIsIdempotent(t *testing.T) {
	t.Parallel()
	cfg := fileConfig(t, `[]`)
	cfg.Watch = true
	stack, err := bootstrap.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.NoError(t, stack.Close())
	require.NoError(t, stack.Close())
}
