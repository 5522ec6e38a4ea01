package bootstrap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrymomot/togglekit/pkg/environment"
	"github.com/dmitrymomot/togglekit/pkg/feature"
	"github.com/dmitrymomot/togglekit/pkg/featurefile"
	"github.com/dmitrymomot/togglekit/pkg/featuremetrics"
	"github.com/dmitrymomot/togglekit/pkg/logger"
	"github.com/dmitrymomot/togglekit/pkg/requestid"
)

// Stack is a wired engine with the source, cache and metrics behind it.
type Stack struct {
	Config  Config
	Log     *slog.Logger
	Engine  *feature.Engine
	Cache   *feature.Cache
	Metrics *prometheus.Registry
	// Publisher is nil when the source is read-only.
	Publisher Publisher

	checks  []func(context.Context) error
	closers []func() error
}

// Option customizes New.
type Option func(*options)

type options struct {
	definitions []feature.Definition
	strategies  *feature.StrategyRegistry
	source      feature.Source
}

// WithDefinitions registers definitions in addition to FEATURES_DEFINITIONS.
func WithDefinitions(defs ...feature.Definition) Option {
	return func(o *options) {
		o.definitions = append(o.definitions, defs...)
	}
}

// WithStrategies replaces the built-in strategies.
func WithStrategies(r *feature.StrategyRegistry) Option {
	return func(o *options) {
		if r != nil {
			o.strategies = r
		}
	}
}

// WithSource bypasses the configured source type.
func WithSource(src feature.Source) Option {
	return func(o *options) {
		o.source = src
	}
}

// NewLogger builds the process logger for cfg.
func NewLogger(cfg Config, w io.Writer) *slog.Logger {
	opts := []logger.Option{
		logger.WithEnvironment(environment.Parse(cfg.Env), "featurectl"),
		logger.WithOutput(w),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	}
	if cfg.LogLevel != "" {
		opts = append(opts, logger.WithLevelName(cfg.LogLevel))
	}
	return logger.New(opts...)
}

// New loads the definitions, opens the source and wires the engine.
// The caller must Close the stack.
func New(ctx context.Context, cfg Config, log *slog.Logger, opts ...Option) (*Stack, error) {
	o := options{strategies: feature.DefaultStrategies()}
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	defs := slices.Clone(o.definitions)
	if cfg.Definitions != "" {
		loaded, err := featurefile.LoadDefinitions(cfg.Definitions, "")
		if err != nil {
			return nil, err
		}
		defs = append(defs, loaded...)
	}
	registry, err := feature.NewRegistry(defs...)
	if err != nil {
		return nil, err
	}

	s := &Stack{Config: cfg, Log: log, Metrics: prometheus.NewRegistry()}
	s.Metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := featuremetrics.New(s.Metrics, cfg.MetricsNamespace)

	opened := &openedSource{source: o.source}
	if o.source == nil {
		opened, err = openSource(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
	}
	s.Publisher = opened.publisher
	if opened.check != nil {
		s.checks = append(s.checks, opened.check)
	}
	if opened.close != nil {
		s.closers = append(s.closers, opened.close)
	}

	s.Cache = feature.NewCache(opened.source,
		feature.WithRefreshPeriod(cfg.RefreshPeriod),
		feature.WithCacheLogger(log),
		feature.WithCacheObserver(metrics),
	)
	s.Engine = feature.NewEngine(registry, o.strategies, s.Cache,
		feature.WithLogger(log),
		feature.WithObserver(metrics),
	)

	if cfg.Watch {
		if err := s.watch(ctx, opened.path); err != nil {
			return nil, errors.Join(err, s.Close())
		}
	}

	log.DebugContext(ctx, "feature engine ready",
		slog.Int("features", registry.Len()),
		logger.Source(string(cfg.SourceType)),
		logger.Duration(cfg.RefreshPeriod))
	return s, nil
}

func (s *Stack) watch(ctx context.Context, path string) error {
	if path == "" {
		s.Log.WarnContext(ctx, "FEATURES_WATCH only applies to the file source, ignoring it")
		return nil
	}
	w, err := featurefile.NewWatcher(path, s.Cache.Invalidate,
		featurefile.WithWatcherLogger(s.Log))
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		_ = w.Close()
		return err
	}
	s.closers = append(s.closers, w.Close)
	return nil
}

// Context returns ctx carrying the configured environment and a request id,
// both read by the logger; the environment also drives the Environment strategy.
func (s *Stack) Context(ctx context.Context) context.Context {
	return requestid.Ensure(environment.WithContext(ctx, environment.Parse(s.Config.Env)))
}

// Ready reports whether the source can be reached.
func (s *Stack) Ready(ctx context.Context) error {
	for _, check := range s.checks {
		if err := check(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the watcher and source connections in reverse order.
func (s *Stack) Close() error {
	var errs []error
	for _, c := range slices.Backward(s.closers) {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
