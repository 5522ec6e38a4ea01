// Package redis connects to Redis with go-redis and serves feature overrides
// stored in a Redis hash.
//
// Every field of the hash (default key "features") is a feature id and its
// value is a JSON entry in the featurefile document format:
//
//	HSET features storage '{"featureId":"storage","currentInstance":"s3"}'
//
// Source implements feature.Source with one HGETALL per fetch. Publish and
// Remove let operators change overrides; the engine observes them after the
// cache refresh period.
//
// # Usage
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	cache := feature.NewCache(redis.NewSource(client, redis.WithKey(cfg.FeaturesKey)))
//
// Healthcheck returns a ping probe suitable for readiness endpoints.
package redis
