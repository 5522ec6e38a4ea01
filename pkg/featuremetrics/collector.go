package featuremetrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dmitrymomot/togglekit/pkg/feature"
)

// DefaultNamespace prefixes every metric unless New is given another one.
const DefaultNamespace = "togglekit"

// Collector records engine and cache events as Prometheus metrics.
// It implements both feature.Observer and feature.CacheObserver.
type Collector struct {
	resolutions      *prometheus.CounterVec
	selections       *prometheus.CounterVec
	strategyFailures *prometheus.CounterVec
	dangling         *prometheus.CounterVec
	refreshes        *prometheus.CounterVec
	refreshDuration  prometheus.Histogram
	overrides        prometheus.Gauge
}

var (
	_ feature.Observer      = (*Collector)(nil)
	_ feature.CacheObserver = (*Collector)(nil)
)

// New registers the feature metrics with reg.
// It panics if the metrics are already registered, like promauto does.
func New(reg prometheus.Registerer, namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(reg)

	return &Collector{
		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feature_resolutions_total",
			Help:      "Feature enablement checks by feature and outcome.",
		}, []string{"feature", "result"}),
		selections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feature_instance_selections_total",
			Help:      "Instance selections by feature and selected instance.",
		}, []string{"feature", "instance"}),
		strategyFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feature_strategy_failures_total",
			Help:      "Strategy evaluations that errored or panicked and were treated as deny.",
		}, []string{"feature", "strategy"}),
		dangling: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feature_dangling_instances_total",
			Help:      "Overrides naming an undeclared instance.",
		}, []string{"feature"}),
		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feature_refresh_total",
			Help:      "Override snapshot refreshes by result.",
		}, []string{"result"}),
		refreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feature_refresh_duration_seconds",
			Help:      "Time spent fetching the override snapshot.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		overrides: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feature_overrides",
			Help:      "Number of overrides in the current snapshot.",
		}),
	}
}

func (c *Collector) FeatureResolved(featureID string, enabled bool) {
	c.resolutions.WithLabelValues(featureID, strconv.FormatBool(enabled)).Inc()
}

func (c *Collector) InstanceSelected(featureID, instance string) {
	c.selections.WithLabelValues(featureID, instance).Inc()
}

func (c *Collector) StrategyFailed(featureID, strategy string, _ error) {
	c.strategyFailures.WithLabelValues(featureID, strategy).Inc()
}

func (c *Collector) DanglingInstance(featureID, _ string) {
	c.dangling.WithLabelValues(featureID).Inc()
}

func (c *Collector) RefreshSucceeded(took time.Duration, overrides int) {
	c.refreshes.WithLabelValues("success").Inc()
	c.refreshDuration.Observe(took.Seconds())
	c.overrides.Set(float64(overrides))
}

// RefreshFailed keeps the override gauge since the previous snapshot stays in use.
func (c *Collector) RefreshFailed(took time.Duration, _ error) {
	c.refreshes.WithLabelValues("failure").Inc()
	c.refreshDuration.Observe(took.Seconds())
}
