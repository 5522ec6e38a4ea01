package requestid_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/togglekit/pkg/logger"
	"github.com/dmitrymomot/togglekit/pkg/requestid"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()

	serve := func(t *testing.T, header string) (seen string, echoed string) {
		t.Helper()
		h := requestid.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			seen = requestid.FromContext(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/v1/features", nil)
		if header != "" {
			req.Header.Set(requestid.Header, header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return seen, rec.Header().Get(requestid.Header)
	}

	t.Run("ReusesValidHeader", func(t *testing.T) {
		t.Parallel()
		seen, echoed := serve(t, "deploy-42_a")
		assert.Equal(t, "deploy-42_a", seen)
		assert.Equal(t, seen, echoed)
	})

	tests := []struct {
		name   string
		header string
	}{
		{"Missing", ""},
		{"InvalidCharacters", "id with spaces"},
		{"TooLong", strings.Repeat("a", 129)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			seen, echoed := serve(t, tt.header)
			_, err := uuid.Parse(seen)
			require.NoError(t, err)
			assert.Equal(t, seen, echoed)
		})
	}
}

func TestEnsure(t *testing.T) {
	t.Parallel()

	ctx := requestid.Ensure(context.Background())
	id := requestid.FromContext(ctx)
	require.NotEmpty(t, id)
	assert.Equal(t, id, requestid.FromContext(requestid.Ensure(ctx)))

	assert.Equal(t, "fixed", requestid.FromContext(requestid.Ensure(requestid.WithContext(context.Background(), "fixed"))))
	assert.Empty(t, requestid.FromContext(context.Background()))
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithFormat(logger.FormatJSON),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)

	log.InfoContext(context.Background(), "without id")
	assert.NotContains(t, buf.String(), "request_id")

	log.InfoContext(requestid.WithContext(context.Background(), "abc"), "with id")
	assert.Contains(t, buf.String(), `"request_id":"abc"`)
}
