// Package feature resolves feature toggles from three layers: static
// definitions registered at startup, dynamic overrides fetched from a Source,
// and pluggable strategies that refine an enabled verdict.
//
// # Architecture
//
// The package is built around four pieces:
//
//  1. Registry - static Definitions keyed by feature id
//  2. Cache - a time-bounded memo of the override snapshot served by a Source
//  3. StrategyRegistry - named Strategy implementations
//  4. Engine - combines the three to answer queries
//
// Resolution of a feature happens against exactly one Snapshot. The override's
// enabled flag, when set, replaces the static default. A disabled feature is
// never passed to a strategy. An enabled feature with an active strategy config
// is allowed only if the strategy agrees; an unregistered strategy name leaves
// the enabled flag as the answer, while a strategy that fails or panics denies.
//
// # Usage
//
//	registry, err := feature.NewRegistry(
//		feature.Definition{ID: "new-ui", EnabledByDefault: true},
//		feature.Definition{
//			ID:              "storage",
//			EnabledByDefault: true,
//			HotReloadable:   true,
//			Instances:       []string{"local", "s3"},
//			DefaultInstance: "local",
//		},
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	cache := feature.NewCache(source, feature.WithRefreshPeriod(time.Minute))
//	engine := feature.NewEngine(registry, feature.DefaultStrategies(), cache)
//
//	enabled, err := engine.IsEnabled(ctx, "new-ui")
//	if errors.Is(err, feature.ErrUnknownFeature) {
//		// Feature was never registered
//	}
//
//	instance, err := engine.SelectInstance(ctx, "storage")
//
// # Strategies
//
// DefaultStrategies registers the built-in strategies under their names:
// Always, AllowValues, AllowList, OS, Percentage, Targeted and Environment.
// Every strategy honors the "active" parameter: "false" switches the strategy
// off without removing its configuration.
//
// Strategies that implement SubjectStrategy receive the subject passed to
// Engine.IsEnabledFor. Everything else they need comes from the context, via
// extractor functions:
//
//	strategy := feature.NewTargetedStrategy(
//		feature.WithUserIDExtractor(getUserID),
//	)
//
// # Instances
//
// A Switch binds the declared instances of a feature to implementations:
//
//	sw, err := feature.NewSwitch(engine, "storage", map[string]Storage{
//		"local": localStorage,
//		"s3":    s3Storage,
//	})
//	storage, err := sw.Current(ctx)
//
// Hot-reloadable features re-resolve on every Current call; the rest keep the
// first resolved implementation.
package feature
