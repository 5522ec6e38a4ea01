package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/togglekit/pkg/config"
)

type refreshConfig struct {
	SourceType string        `env:"SOURCE_TYPE" envDefault:"none"`
	Refresh    time.Duration `env:"REFRESH_PERIOD" envDefault:"60s"`
	Watch      bool          `env:"WATCH"`
}

type requiredConfig struct {
	Required string `env:"CFGTEST_REQUIRED_VALUE,required"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg refreshConfig
	err := config.Load(&cfg, config.WithEnvFiles(), config.WithPrefix("CFGTEST_DEFAULTS_"))
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.SourceType)
	assert.Equal(t, time.Minute, cfg.Refresh)
	assert.False(t, cfg.Watch)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("CFGTEST_ENV_SOURCE_TYPE", "redis")
	t.Setenv("CFGTEST_ENV_REFRESH_PERIOD", "2s")
	t.Setenv("CFGTEST_ENV_WATCH", "true")

	var cfg refreshConfig
	err := config.Load(&cfg, config.WithEnvFiles(), config.WithPrefix("CFGTEST_ENV_"))
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.SourceType)
	assert.Equal(t, 2*time.Second, cfg.Refresh)
	assert.True(t, cfg.Watch)

	t.Setenv("CFGTEST_ENV_SOURCE_TYPE", "mongo")
	require.NoError(t, config.Load(&cfg, config.WithEnvFiles(), config.WithPrefix("CFGTEST_ENV_")))
	assert.Equal(t, "mongo", cfg.SourceType, "every load reads the environment again")
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(file, []byte("CFGTEST_FILE_SOURCE_TYPE=postgres\nCFGTEST_FILE_REFRESH_PERIOD=5s\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("CFGTEST_FILE_SOURCE_TYPE")
		_ = os.Unsetenv("CFGTEST_FILE_REFRESH_PERIOD")
	})
	t.Setenv("CFGTEST_FILE_REFRESH_PERIOD", "9s")

	var cfg refreshConfig
	err := config.Load(&cfg,
		config.WithEnvFiles(filepath.Join(dir, "missing.env"), file),
		config.WithPrefix("CFGTEST_FILE_"),
	)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.SourceType)
	assert.Equal(t, 9*time.Second, cfg.Refresh, "existing variables win over the file")
}

func TestLoad_Errors(t *testing.T) {
	t.Run("nil pointer", func(t *testing.T) {
		var cfg *refreshConfig
		require.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
	})

	t.Run("missing required", func(t *testing.T) {
		var cfg requiredConfig
		err := config.Load(&cfg, config.WithEnvFiles())
		require.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("invalid duration", func(t *testing.T) {
		t.Setenv("CFGTEST_BAD_REFRESH_PERIOD", "soon")
		var cfg refreshConfig
		err := config.Load(&cfg, config.WithEnvFiles(), config.WithPrefix("CFGTEST_BAD_"))
		require.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("must load panics", func(t *testing.T) {
		var cfg requiredConfig
		assert.Panics(t, func() { config.MustLoad(&cfg, config.WithEnvFiles()) })
	})
}
