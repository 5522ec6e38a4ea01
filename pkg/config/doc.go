// Package config loads configuration structs from environment variables.
//
// It wraps github.com/joho/godotenv, which merges .env files into the process
// environment without overriding variables that are already set, and
// github.com/caarlos0/env/v11, which parses the environment into a struct
// using field tags:
//
//	type Config struct {
//		SourceType string        `env:"FEATURES_CONFIG_SOURCE_TYPE" envDefault:"none"`
//		Refresh    time.Duration `env:"FEATURES_REFRESH_PERIOD" envDefault:"60s"`
//		RedisURL   string        `env:"REDIS_URL,required"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg, config.WithEnvFiles(".env", ".env.local")); err != nil {
//		log.Fatal(err)
//	}
//
// Every call parses the environment again, so flags or tests that change
// variables between calls are observed.
//
// Errors are wrapped with ErrParsingConfig or ErrLoadingEnvFile and can be
// checked with errors.Is.
package config
