// Package pg stores feature overrides in PostgreSQL.
//
// Connect opens a pgx pool with retries and Migrate creates the overrides
// table from the embedded goose migrations:
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//		return err
//	}
//	source := pg.NewSource(pool)
//
// Each row of the feature_overrides table is one override. A NULL enabled column leaves the
// static default in charge, and an empty strategy_name means no strategy.
// Healthcheck returns a ping probe for readiness endpoints.
package pg
