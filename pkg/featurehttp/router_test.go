package featurehttp_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/togglekit/pkg/feature"
	"github.com/dmitrymomot/togglekit/pkg/featurehttp"
)

func newRouter(t *testing.T, src feature.Source) http.Handler {
	t.Helper()
	registry, err := feature.NewRegistry(
		feature.Definition{ID: "new-ui", EnabledByDefault: true},
		feature.Definition{ID: "legacy-export"},
		feature.Definition{
			ID:               "beta-search",
			EnabledByDefault: true,
			Strategy: &feature.StrategyConfig{
				Name:   feature.StrategyAllowValues,
				Params: map[string]string{feature.ParamAllowValues: "alice,bob"},
			},
		},
		feature.Definition{ID: "storage", EnabledByDefault: true, Instances: []string{"local", "s3"}},
		feature.Definition{ID: "no-instances", EnabledByDefault: true},
	)
	require.NoError(t, err)

	cache := feature.NewCache(src)
	engine := feature.NewEngine(registry, feature.DefaultStrategies(), cache)
	return featurehttp.Router(engine)
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func ids(infos []feature.Info) []string {
	out := make([]string, 0, len(infos))
	for _, i := range infos {
		out = append(out, i.ID)
	}
	return out
}

func TestRouter_List(t *testing.T) {
	t.Parallel()
	h := newRouter(t, feature.NewMemorySource(map[string]feature.Override{
		"new-ui": {Enabled: feature.Bool(false)},
	}))

	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{"All", "/", []string{"new-ui", "legacy-export", "beta-search", "storage", "no-instances"}},
		{"Enabled", "/?enabled=true", []string{"storage", "no-instances"}},
		{"Disabled", "/?enabled=false", []string{"new-ui", "legacy-export", "beta-search"}},
		{"IDSubstringIgnoresCase", "/?id=SEARCH", []string{"beta-search"}},
		{"Combined", "/?enabled=false&id=e", []string{"new-ui", "legacy-export", "beta-search"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := get(t, h, tt.target)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.want, ids(decode[[]feature.Info](t, rec)))
		})
	}

	t.Run("InvalidEnabledFilter", func(t *testing.T) {
		t.Parallel()
		rec := get(t, h, "/?enabled=maybe")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRouter_Describe(t *testing.T) {
	t.Parallel()
	h := newRouter(t, feature.NewMemorySource(map[string]feature.Override{
		"storage": {CurrentInstance: "s3"},
	}))

	rec := get(t, h, "/storage")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	initial := body["initialConfiguration"].(map[string]any)
	active := body["activeConfiguration"].(map[string]any)
	override := body["configurationOverride"].(map[string]any)
	assert.Equal(t, "local", initial["currentInstance"])
	assert.Equal(t, "s3", active["currentInstance"])
	assert.Equal(t, "s3", override["currentInstance"])
	assert.NotEmpty(t, body["snapshotId"])

	rec = get(t, h, "/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "unknown feature")
}

func TestRouter_Enabled(t *testing.T) {
	t.Parallel()
	h := newRouter(t, feature.NopSource{})

	type response struct {
		ID      string `json:"featureId"`
		Enabled bool   `json:"enabled"`
	}

	tests := []struct {
		target string
		want   bool
	}{
		{"/new-ui/enabled", true},
		{"/legacy-export/enabled", false},
		{"/beta-search/enabled", false},
		{"/beta-search/enabled?subject=alice", true},
		{"/beta-search/enabled?subject=mallory", false},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			t.Parallel()
			rec := get(t, h, tt.target)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, decode[response](t, rec).Enabled)
		})
	}

	t.Run("Unknown", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, http.StatusNotFound, get(t, h, "/missing/enabled").Code)
	})
}

func TestRouter_Instance(t *testing.T) {
	t.Parallel()
	h := newRouter(t, feature.NewMemorySource(map[string]feature.Override{
		"storage": {CurrentInstance: "gcs"},
	}))

	rec := get(t, h, "/storage/instance")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "local", decode[map[string]string](t, rec)["currentInstance"], "undeclared override is ignored")

	assert.Equal(t, http.StatusConflict, get(t, h, "/no-instances/instance").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/missing/instance").Code)
}

func TestRouter_Refresh(t *testing.T) {
	t.Parallel()

	t.Run("Success", func(t *testing.T) {
		t.Parallel()
		h := newRouter(t, feature.NopSource{})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/refresh", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("SourceDown", func(t *testing.T) {
		t.Parallel()
		h := newRouter(t, feature.SourceFunc(func(context.Context) (map[string]feature.Override, error) {
			return nil, errors.New("dial tcp: connection refused")
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/refresh", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
