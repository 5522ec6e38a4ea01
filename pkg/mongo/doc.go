// Package mongo stores feature overrides in a MongoDB collection.
//
// Every document is keyed by the feature id:
//
//	{"_id": "storage", "enabled": true, "currentInstance": "s3",
//	 "strategy": {"name": "AllowList", "params": {"users": "alice"}}}
//
// Missing fields leave the static definition in charge.
//
// # Usage
//
//	client, err := mongo.New(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	source := mongo.NewSource(client.Database(cfg.Database).Collection(cfg.Collection))
//
// Connection settings come from MONGODB_* environment variables, see Config.
package mongo
