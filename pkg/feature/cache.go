package feature

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/togglekit/pkg/logger"
)

const refreshKey = "refresh"

// Cache memoizes the snapshot of a Source for a refresh period.
//
// A refresh happens lazily on access once the period has elapsed since the
// last fetch attempt. A zero period re-fetches on every access. Concurrent
// callers that hit an expired cache share a single fetch. A failed fetch keeps
// the previous snapshot and is reported, never returned to the reader.
type Cache struct {
	source   Source
	period   time.Duration
	now      func() time.Time
	log      *slog.Logger
	onError  func(ctx context.Context, err error)
	observer CacheObserver

	current     atomic.Pointer[Snapshot]
	lastAttempt atomic.Int64
	invalidated atomic.Bool
	group       singleflight.Group

	errMu   sync.Mutex
	lastErr error
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithRefreshPeriod sets how long a fetched snapshot is served before the
// next access re-fetches. Zero or negative disables caching.
func WithRefreshPeriod(d time.Duration) CacheOption {
	return func(c *Cache) {
		c.period = max(d, 0)
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCacheLogger sets the logger used for refresh events.
func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

// WithErrorHandler registers a callback receiving refresh failures.
func WithErrorHandler(fn func(ctx context.Context, err error)) CacheOption {
	return func(c *Cache) {
		c.onError = fn
	}
}

// WithCacheObserver registers an observer for refresh outcomes.
func WithCacheObserver(o CacheObserver) CacheOption {
	return func(c *Cache) {
		if o != nil {
			c.observer = o
		}
	}
}

// NewCache wraps src with time-bounded memoization. A nil src behaves like NopSource.
func NewCache(src Source, opts ...CacheOption) *Cache {
	if src == nil {
		src = NopSource{}
	}
	c := &Cache{
		source:   src,
		now:      time.Now,
		log:      slog.New(slog.DiscardHandler),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.current.Store(&Snapshot{Overrides: map[string]Override{}})
	return c
}

// Snapshot returns the current override snapshot, refreshing it first when
// the refresh period has elapsed. It never returns nil.
func (c *Cache) Snapshot(ctx context.Context) *Snapshot {
	if !c.stale() {
		return c.current.Load()
	}

	// The error matters only to a Refresh caller sharing this call.
	v, _, _ := c.group.Do(refreshKey, func() (any, error) {
		// Another caller may have refreshed while we were waiting to get here.
		if !c.stale() {
			return c.current.Load(), c.LastError()
		}
		err := c.refresh(ctx)
		return c.current.Load(), err
	})
	return v.(*Snapshot)
}

// Lookup returns the override for the feature from the current snapshot.
func (c *Cache) Lookup(ctx context.Context, featureID string) (Override, bool) {
	return c.Snapshot(ctx).Lookup(featureID)
}

// Refresh fetches a new snapshot regardless of the refresh period.
// On failure the previous snapshot stays in place and the error is returned.
func (c *Cache) Refresh(ctx context.Context) error {
	_, err, _ := c.group.Do(refreshKey, func() (any, error) {
		err := c.refresh(ctx)
		return c.current.Load(), err
	})
	return err
}

// Invalidate makes the next access re-fetch.
func (c *Cache) Invalidate() {
	c.invalidated.Store(true)
}

// LastError returns the error of the most recent refresh, or nil if it succeeded.
func (c *Cache) LastError() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.lastErr
}

// RefreshPeriod returns the configured refresh period.
func (c *Cache) RefreshPeriod() time.Duration {
	return c.period
}

func (c *Cache) stale() bool {
	last := c.lastAttempt.Load()
	if last == 0 || c.period == 0 || c.invalidated.Load() {
		return true
	}
	return c.now().Sub(time.Unix(0, last)) >= c.period
}

func (c *Cache) refresh(ctx context.Context) error {
	// Callers waiting on the shared fetch must not fail because the first
	// caller's request was cancelled.
	ctx = context.WithoutCancel(ctx)

	start := c.now()
	c.invalidated.Store(false)
	overrides, err := c.fetch(ctx)
	c.lastAttempt.Store(start.UnixNano())
	elapsed := c.now().Sub(start)

	if err != nil {
		if !errors.Is(err, ErrSourceUnavailable) {
			err = errors.Join(ErrSourceUnavailable, err)
		}
		c.setLastErr(err)
		c.observer.RefreshFailed(elapsed, err)
		c.log.WarnContext(ctx, "feature configuration refresh failed, keeping previous snapshot",
			logger.Component("feature.cache"),
			logger.Snapshot(c.current.Load().ID.String()),
			logger.Error(err),
		)
		if c.onError != nil {
			c.onError(ctx, err)
		}
		return err
	}

	snap := &Snapshot{
		ID:        uuid.New(),
		FetchedAt: start,
		Overrides: cloneOverrides(overrides),
	}
	c.current.Store(snap)
	c.setLastErr(nil)
	c.observer.RefreshSucceeded(elapsed, len(snap.Overrides))
	c.log.DebugContext(ctx, "feature configuration refreshed",
		logger.Component("feature.cache"),
		logger.Snapshot(snap.ID.String()),
		slog.Int("overrides", len(snap.Overrides)),
	)
	return nil
}

// fetch calls the source, turning a panic into an error so a broken source
// cannot take the reader down with it.
func (c *Cache) fetch(ctx context.Context) (overrides map[string]Override, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Join(ErrSourceUnavailable, fmt.Errorf("source panicked: %v", r))
		}
	}()
	return c.source.Fetch(ctx)
}

func (c *Cache) setLastErr(err error) {
	c.errMu.Lock()
	c.lastErr = err
	c.errMu.Unlock()
}
