package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrymomot/togglekit/pkg/config"
	"github.com/dmitrymomot/togglekit/pkg/featurefile"
	"github.com/dmitrymomot/togglekit/pkg/httpserver"
	"github.com/dmitrymomot/togglekit/pkg/mongo"
	"github.com/dmitrymomot/togglekit/pkg/pg"
	"github.com/dmitrymomot/togglekit/pkg/redis"
)

// SourceType names where overrides come from.
type SourceType string

const (
	SourceNone     SourceType = "none"
	SourceFile     SourceType = "file"
	SourceS3       SourceType = "s3"
	SourceRedis    SourceType = "redis"
	SourcePostgres SourceType = "postgres"
	SourceMongo    SourceType = "mongo"
)

// Config is the process configuration, read from the environment.
type Config struct {
	SourceType       SourceType    `env:"FEATURES_CONFIG_SOURCE_TYPE" envDefault:"none"`
	Source           string        `env:"FEATURES_CONFIG_SOURCE"`     // file path, or bucket/key for s3
	Format           string        `env:"FEATURES_CONFIG_TYPE"`       // json, yaml or properties; derived from the extension when empty
	RefreshPeriod    time.Duration `env:"FEATURES_REFRESH_PERIOD" envDefault:"60s"`
	Watch            bool          `env:"FEATURES_WATCH" envDefault:"false"`
	Definitions      string        `env:"FEATURES_DEFINITIONS"`
	MetricsNamespace string        `env:"FEATURES_METRICS_NAMESPACE" envDefault:"togglekit"`
	Env              string        `env:"APP_ENV" envDefault:"development"`
	LogLevel         string        `env:"LOG_LEVEL"`

	Redis    redis.Config
	Postgres pg.Config
	Mongo    mongo.Config
	S3       featurefile.S3Config
	HTTP     httpserver.Config
}

// LoadConfig reads Config from the environment and the given .env files.
// Callers apply their own overrides and then call Validate.
func LoadConfig(envFiles ...string) (Config, error) {
	var opts []config.Option
	if len(envFiles) > 0 {
		opts = append(opts, config.WithEnvFiles(envFiles...))
	}

	var cfg Config
	if err := config.Load(&cfg, opts...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the source selection.
func (c Config) Validate() error {
	switch c.SourceType {
	case SourceNone, SourceRedis, SourcePostgres, SourceMongo:
	case SourceFile:
		if c.Source == "" {
			return fmt.Errorf("%w: FEATURES_CONFIG_SOURCE is required for the file source", ErrInvalidConfig)
		}
	case SourceS3:
		if c.S3.Bucket == "" && !strings.Contains(c.Source, "/") {
			return fmt.Errorf("%w: s3 source needs FEATURES_S3_BUCKET or FEATURES_CONFIG_SOURCE=bucket/key", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown source type %q", ErrInvalidConfig, c.SourceType)
	}
	if c.Format != "" {
		if _, err := featurefile.ParseFormat(c.Format); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	if c.RefreshPeriod < 0 {
		return fmt.Errorf("%w: negative refresh period", ErrInvalidConfig)
	}
	return nil
}

// s3Config completes the S3 location from FEATURES_CONFIG_SOURCE when the
// dedicated variables are unset.
func (c Config) s3Config() featurefile.S3Config {
	s3 := c.S3
	if s3.Bucket == "" {
		if bucket, key, ok := strings.Cut(c.Source, "/"); ok {
			s3.Bucket, s3.Key = bucket, key
		}
	}
	if s3.Key == "" {
		s3.Key = c.Source
	}
	if s3.Format == "" && c.Format != "" {
		s3.Format = featurefile.Format(c.Format)
	}
	return s3
}
