package environment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/togglekit/pkg/environment"
)

func TestWithContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		env  environment.Environment
		want string
	}{
		{"development environment", environment.Development, "development"},
		{"production environment", environment.Production, "production"},
		{"custom environment", environment.Environment("qa"), "qa"},
		{"empty environment", environment.Environment(""), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := environment.WithContext(context.Background(), tt.env)
			assert.Equal(t, tt.want, environment.FromContext(ctx))
		})
	}

	t.Run("context without environment", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, environment.FromContext(context.Background()))
	})
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want environment.Environment
	}{
		{"dev", environment.Development},
		{" Production ", environment.Production},
		{"prod", environment.Production},
		{"stage", environment.Staging},
		{"QA", environment.Environment("qa")},
		{"", environment.Environment("")},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, environment.Parse(tt.raw))
		})
	}
}

func TestPredicates(t *testing.T) {
	t.Parallel()

	ctx := environment.WithContext(context.Background(), environment.Environment("prod"))
	assert.True(t, environment.IsProduction(ctx))
	assert.False(t, environment.IsDevelopment(ctx))
	assert.False(t, environment.IsStaging(ctx))

	ctx = environment.WithContext(context.Background(), environment.Staging)
	assert.True(t, environment.IsStaging(ctx))
	assert.False(t, environment.IsProduction(context.Background()))
}
