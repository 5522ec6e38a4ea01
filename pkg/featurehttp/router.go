package featurehttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/togglekit/pkg/feature"
	"github.com/dmitrymomot/togglekit/pkg/logger"
)

type handler struct {
	engine *feature.Engine
	log    *slog.Logger
}

// Option configures the router.
type Option func(*handler)

// WithLogger sets the logger used for server-side failures.
func WithLogger(l *slog.Logger) Option {
	return func(h *handler) {
		if l != nil {
			h.log = l
		}
	}
}

// Router exposes read-only views of the engine:
//
//	GET  /                      list features, filtered by ?enabled= and ?id=
//	GET  /{featureID}           initial, override and active configuration
//	GET  /{featureID}/enabled   enablement check, ?subject= is passed to strategies
//	GET  /{featureID}/instance  currently selected instance
//	POST /refresh               force an override refresh
//
// Mount it under a prefix of your choice:
//
//	r.Mount("/v1/features", featurehttp.Router(engine))
func Router(engine *feature.Engine, opts ...Option) chi.Router {
	h := &handler{engine: engine, log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(h)
	}

	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/refresh", h.refresh)
	r.Route("/{featureID}", func(r chi.Router) {
		r.Get("/", h.describe)
		r.Get("/enabled", h.enabled)
		r.Get("/instance", h.instance)
	})
	return r
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	var enabledFilter *bool
	if raw := r.URL.Query().Get("enabled"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "enabled must be true or false")
			return
		}
		enabledFilter = &v
	}
	idFilter := strings.ToLower(r.URL.Query().Get("id"))

	infos := h.engine.List(r.Context())
	out := make([]feature.Info, 0, len(infos))
	for _, info := range infos {
		if enabledFilter != nil && info.Enabled != *enabledFilter {
			continue
		}
		if idFilter != "" && !strings.Contains(strings.ToLower(info.ID), idFilter) {
			continue
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) describe(w http.ResponseWriter, r *http.Request) {
	d, err := h.engine.Describe(r.Context(), chi.URLParam(r, "featureID"))
	if err != nil {
		h.fail(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type enabledResponse struct {
	ID      string `json:"featureId"`
	Enabled bool   `json:"enabled"`
}

func (h *handler) enabled(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "featureID")

	var (
		enabled bool
		err     error
	)
	if q := r.URL.Query(); q.Has("subject") {
		enabled, err = h.engine.IsEnabledFor(r.Context(), id, q.Get("subject"))
	} else {
		enabled, err = h.engine.IsEnabled(r.Context(), id)
	}
	if err != nil {
		h.fail(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, enabledResponse{ID: id, Enabled: enabled})
}

type instanceResponse struct {
	ID       string `json:"featureId"`
	Instance string `json:"currentInstance"`
}

func (h *handler) instance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "featureID")
	inst, err := h.engine.SelectInstance(r.Context(), id)
	if err != nil {
		h.fail(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, instanceResponse{ID: id, Instance: inst})
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Cache().Refresh(r.Context()); err != nil {
		h.fail(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) fail(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, feature.ErrUnknownFeature):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, feature.ErrNoInstanceAvailable):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, feature.ErrSourceUnavailable):
		h.log.ErrorContext(ctx, "override refresh failed", logger.Error(err))
		writeError(w, http.StatusServiceUnavailable, "configuration source unavailable")
	default:
		h.log.ErrorContext(ctx, "feature request failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
