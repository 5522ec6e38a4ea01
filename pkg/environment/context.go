package environment

import (
	"context"
	"strings"
)

// Environment represents application environment.
type Environment string

const (
	// Development for development environment.
	Development Environment = "development"
	// Production for production environment.
	Production Environment = "production"
	// Staging for staging environment.
	Staging Environment = "staging"
)

// Parse normalizes raw into an Environment. The short aliases
// "dev", "stage" and "prod" map to their full names; anything else is kept
// lower-cased as a custom environment.
func Parse(raw string) Environment {
	switch env := strings.ToLower(strings.TrimSpace(raw)); env {
	case "dev":
		return Development
	case "stage":
		return Staging
	case "prod":
		return Production
	default:
		return Environment(env)
	}
}

type contextKey struct{}

// WithContext adds environment to context
func WithContext(ctx context.Context, env Environment) context.Context {
	return context.WithValue(ctx, contextKey{}, env)
}

// FromContext retrieves environment from context.
// It matches the feature.EnvironmentExtractor signature.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	env, _ := ctx.Value(contextKey{}).(Environment)
	return string(env)
}

// IsProduction checks if the environment from context is production
func IsProduction(ctx context.Context) bool {
	return Parse(FromContext(ctx)) == Production
}

// IsDevelopment checks if the environment from context is development
func IsDevelopment(ctx context.Context) bool {
	return Parse(FromContext(ctx)) == Development
}

// IsStaging checks if the environment from context is staging
func IsStaging(ctx context.Context) bool {
	return Parse(FromContext(ctx)) == Staging
}
