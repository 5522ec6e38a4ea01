package bootstrap

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/togglekit/pkg/environment"
	"github.com/dmitrymomot/togglekit/pkg/featurehttp"
	"github.com/dmitrymomot/togglekit/pkg/httpserver"
	"github.com/dmitrymomot/togglekit/pkg/requestid"
)

// Handler exposes the engine under /v1/features together with /metrics,
// /healthz and /readyz.
func (s *Stack) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(environment.Middleware(environment.Parse(s.Config.Env)))

	r.Get("/healthz", httpserver.HealthCheckHandler(s.Log))
	r.Get("/readyz", httpserver.HealthCheckHandler(s.Log, s.Ready))
	r.Handle("/metrics", promhttp.HandlerFor(s.Metrics, promhttp.HandlerOpts{}))
	r.Mount("/v1/features", featurehttp.Router(s.Engine, featurehttp.WithLogger(s.Log)))
	return r
}
