package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/togglekit/pkg/feature"
	"github.com/dmitrymomot/togglekit/pkg/featurefile"
	"github.com/dmitrymomot/togglekit/pkg/logger"
	"github.com/dmitrymomot/togglekit/pkg/mongo"
	"github.com/dmitrymomot/togglekit/pkg/pg"
	"github.com/dmitrymomot/togglekit/pkg/redis"
)

// Publisher is implemented by sources that accept writes.
type Publisher interface {
	Publish(ctx context.Context, featureID string, o feature.Override) error
	Remove(ctx context.Context, featureID string) error
}

// openedSource is a connected source with what is needed to probe and release it.
type openedSource struct {
	source    feature.Source
	publisher Publisher
	check     func(context.Context) error
	close     func() error
	path      string // local document, watchable
}

// openSource connects the source selected by cfg.SourceType.
func openSource(ctx context.Context, cfg Config, log *slog.Logger) (*openedSource, error) {
	log = log.With(logger.Source(string(cfg.SourceType)))

	switch cfg.SourceType {
	case SourceNone, "":
		return &openedSource{source: feature.NopSource{}}, nil

	case SourceFile:
		src, err := featurefile.NewLocalSource(cfg.Source, featurefile.Format(cfg.Format))
		if err != nil {
			return nil, err
		}
		return &openedSource{source: src, path: src.Path()}, nil

	case SourceS3:
		src, err := featurefile.NewS3Source(ctx, cfg.s3Config())
		if err != nil {
			return nil, err
		}
		return &openedSource{source: src}, nil

	case SourceRedis:
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		log.DebugContext(ctx, "connected to redis")
		src := redis.NewSource(client, redis.WithKey(cfg.Redis.FeaturesKey))
		return &openedSource{
			source:    src,
			publisher: src,
			check:     redis.Healthcheck(client),
			close:     client.Close,
		}, nil

	case SourcePostgres:
		pool, err := pg.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx, pool, cfg.Postgres, log); err != nil {
			pool.Close()
			return nil, err
		}
		log.DebugContext(ctx, "connected to postgres")
		src := pg.NewSource(pool)
		return &openedSource{
			source:    src,
			publisher: src,
			check:     pg.Healthcheck(pool),
			close: func() error {
				pool.Close()
				return nil
			},
		}, nil

	case SourceMongo:
		client, err := mongo.New(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		log.DebugContext(ctx, "connected to mongo")
		src := mongo.NewSource(client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection))
		return &openedSource{
			source:    src,
			publisher: src,
			check:     mongo.Healthcheck(client),
			close: func() error {
				return client.Disconnect(context.WithoutCancel(ctx))
			},
		}, nil
	}

	return nil, fmt.Errorf("%w: unknown source type %q", ErrInvalidConfig, cfg.SourceType)
}
