package mongo

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/togglekit/pkg/feature"
)

// Collection is the subset of *mongo.Collection used by Source.
type Collection interface {
	Find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) (*mongo.Cursor, error)
	ReplaceOne(ctx context.Context, filter any, replacement any, opts ...options.Lister[options.ReplaceOptions]) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter any, opts ...options.Lister[options.DeleteOneOptions]) (*mongo.DeleteResult, error)
}

type strategyDoc struct {
	Name   string            `bson:"name"`
	Params map[string]string `bson:"params,omitempty"`
}

// overrideDoc is the stored shape of one override. The feature id is the _id.
type overrideDoc struct {
	ID              string       `bson:"_id"`
	Enabled         *bool        `bson:"enabled,omitempty"`
	CurrentInstance string       `bson:"currentInstance,omitempty"`
	Strategy        *strategyDoc `bson:"strategy,omitempty"`
}

func (d overrideDoc) override() feature.Override {
	o := feature.Override{Enabled: d.Enabled, CurrentInstance: d.CurrentInstance}
	if d.Strategy != nil && d.Strategy.Name != "" {
		o.Strategy = &feature.StrategyConfig{Name: d.Strategy.Name, Params: maps.Clone(d.Strategy.Params)}
	}
	return o
}

func docFromOverride(featureID string, o feature.Override) overrideDoc {
	d := overrideDoc{ID: featureID, Enabled: o.Enabled, CurrentInstance: o.CurrentInstance}
	if o.Strategy != nil {
		d.Strategy = &strategyDoc{Name: o.Strategy.Name, Params: maps.Clone(o.Strategy.Params)}
	}
	return d
}

// Source serves overrides stored as documents of a MongoDB collection.
type Source struct {
	coll Collection
}

// NewSource creates a MongoDB override source.
func NewSource(coll Collection) *Source {
	return &Source{coll: coll}
}

// Fetch implements feature.Source.
func (s *Source) Fetch(ctx context.Context) (map[string]feature.Override, error) {
	cursor, err := s.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, errors.Join(feature.ErrSourceUnavailable, fmt.Errorf("find overrides: %w", err))
	}

	var docs []overrideDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Join(feature.ErrSourceUnavailable, ErrInvalidOverride, err)
	}

	out := make(map[string]feature.Override, len(docs))
	for _, d := range docs {
		out[d.ID] = d.override()
	}
	return out, nil
}

// Publish upserts the override document of a feature.
func (s *Source) Publish(ctx context.Context, featureID string, o feature.Override) error {
	if featureID == "" {
		return fmt.Errorf("%w: empty feature id", ErrInvalidOverride)
	}
	_, err := s.coll.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: featureID}},
		docFromOverride(featureID, o),
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("replace override %q: %w", featureID, err)
	}
	return nil
}

// Remove deletes the override document of a feature.
func (s *Source) Remove(ctx context.Context, featureID string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: featureID}}); err != nil {
		return fmt.Errorf("delete override %q: %w", featureID, err)
	}
	return nil
}
