package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/togglekit/pkg/feature"
	"github.com/dmitrymomot/togglekit/pkg/featurefile"
)

// DefaultFeaturesKey is the hash read by Source unless WithKey says otherwise.
const DefaultFeaturesKey = "features"

// HashClient is the subset of redis.UniversalClient used by Source.
type HashClient interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
}

// Source serves overrides stored in a Redis hash: one field per feature id,
// each value a JSON document entry.
type Source struct {
	client HashClient
	key    string
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithKey sets the hash key.
func WithKey(key string) SourceOption {
	return func(s *Source) {
		if key != "" {
			s.key = key
		}
	}
}

// NewSource creates a Redis override source.
func NewSource(client HashClient, opts ...SourceOption) *Source {
	s := &Source{client: client, key: DefaultFeaturesKey}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch implements feature.Source. A single undecodable field fails the whole
// fetch so a half-written snapshot is never served.
func (s *Source) Fetch(ctx context.Context) (map[string]feature.Override, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, errors.Join(feature.ErrSourceUnavailable, fmt.Errorf("hgetall %s: %w", s.key, err))
	}

	out := make(map[string]feature.Override, len(fields))
	for id, raw := range fields {
		var e featurefile.Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, errors.Join(feature.ErrSourceUnavailable, ErrInvalidOverride, fmt.Errorf("field %q: %w", id, err))
		}
		out[id] = e.Override()
	}
	return out, nil
}

// Publish stores the override for a feature, replacing any previous one.
func (s *Source) Publish(ctx context.Context, featureID string, o feature.Override) error {
	if featureID == "" {
		return fmt.Errorf("%w: empty feature id", ErrInvalidOverride)
	}
	data, err := json.Marshal(featurefile.EntryFromOverride(featureID, o))
	if err != nil {
		return errors.Join(ErrInvalidOverride, err)
	}
	return s.client.HSet(ctx, s.key, featureID, string(data)).Err()
}

// Remove deletes the override for a feature.
func (s *Source) Remove(ctx context.Context, featureID string) error {
	return s.client.HDel(ctx, s.key, featureID).Err()
}
