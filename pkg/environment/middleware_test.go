package environment_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/togglekit/pkg/environment"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()

	var got string
	handler := environment.Middleware(environment.Staging)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = environment.FromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "staging", got)
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extractor := environment.LoggerExtractor()

	t.Run("with environment", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx := environment.WithContext(req.Context(), environment.Production)
		attr, ok := extractor(ctx)
		assert.True(t, ok)
		assert.Equal(t, "env", attr.Key)
		assert.Equal(t, "production", attr.Value.String())
	})

	t.Run("without environment", func(t *testing.T) {
		t.Parallel()
		attr, ok := extractor(httptest.NewRequest(http.MethodGet, "/", nil).Context())
		assert.False(t, ok)
		assert.Equal(t, slog.Attr{}, attr)
	})
}
