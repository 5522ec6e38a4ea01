// Package featuremetrics exports feature resolution and cache refresh events
// as Prometheus metrics.
//
//	collector := featuremetrics.New(prometheus.DefaultRegisterer, "")
//	cache := feature.NewCache(source, feature.WithCacheObserver(collector))
//	engine := feature.NewEngine(registry, strategies, cache, feature.WithObserver(collector))
package featuremetrics
