package feature

import "errors"

// Predefined errors for the feature package.
var (
	// ErrUnknownFeature indicates that the requested feature was never registered.
	ErrUnknownFeature = errors.New("unknown feature")

	// ErrDuplicateFeature indicates that a feature with the same id is already registered.
	ErrDuplicateFeature = errors.New("feature already registered")

	// ErrDuplicateStrategy indicates that a strategy with the same name is already registered.
	ErrDuplicateStrategy = errors.New("strategy already registered")

	// ErrInvalidDefinition indicates that the provided feature definition is malformed.
	ErrInvalidDefinition = errors.New("invalid feature definition")

	// ErrInvalidStrategy indicates an issue with a strategy or its configuration.
	ErrInvalidStrategy = errors.New("invalid feature strategy")

	// ErrStrategyPanic indicates that a strategy panicked during evaluation.
	ErrStrategyPanic = errors.New("feature strategy panicked")

	// ErrSourceUnavailable indicates that the override source could not be read.
	ErrSourceUnavailable = errors.New("feature configuration source unavailable")

	// ErrDanglingInstance indicates an instance reference that is not among the declared instances.
	ErrDanglingInstance = errors.New("instance is not declared for feature")

	// ErrNoInstanceAvailable indicates that a feature has no instance to select.
	ErrNoInstanceAvailable = errors.New("no instance available for feature")
)
