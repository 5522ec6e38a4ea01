package feature

import "time"

// Observer receives resolution events from an Engine.
// Implementations must be safe for concurrent use and must not block.
type Observer interface {
	FeatureResolved(featureID string, enabled bool)
	InstanceSelected(featureID, instance string)
	StrategyFailed(featureID, strategy string, err error)
	DanglingInstance(featureID, instance string)
}

// CacheObserver receives refresh events from a Cache.
type CacheObserver interface {
	RefreshSucceeded(elapsed time.Duration, overrides int)
	RefreshFailed(elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) FeatureResolved(string, bool) {}
func (nopObserver) InstanceSelected(string, string) {}
func (nopObserver) StrategyFailed(string, string, error) {}
func (nopObserver) DanglingInstance(string, string) {}
func (nopObserver) RefreshSucceeded(time.Duration, int) {}
func (nopObserver) RefreshFailed(time.Duration, error) {}
