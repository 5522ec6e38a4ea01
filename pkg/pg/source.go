package pg

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/togglekit/pkg/feature"
)

// OverridesTable is the table created by Migrate and read by Source.
// Use search_path in the connection URL to place it in another schema.
const OverridesTable = "feature_overrides"

// Querier is the subset of *pgxpool.Pool used by Source.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// overrideRow mirrors one row of the overrides table.
type overrideRow struct {
	FeatureID       string            `db:"feature_id"`
	Enabled         *bool             `db:"enabled"`
	CurrentInstance string            `db:"current_instance"`
	StrategyName    string            `db:"strategy_name"`
	StrategyParams  map[string]string `db:"strategy_params"`
}

func (r overrideRow) override() feature.Override {
	o := feature.Override{Enabled: r.Enabled, CurrentInstance: r.CurrentInstance}
	if r.StrategyName != "" {
		o.Strategy = &feature.StrategyConfig{Name: r.StrategyName, Params: maps.Clone(r.StrategyParams)}
	}
	return o
}

func rowFromOverride(featureID string, o feature.Override) overrideRow {
	r := overrideRow{FeatureID: featureID, Enabled: o.Enabled, CurrentInstance: o.CurrentInstance}
	if o.Strategy != nil {
		r.StrategyName = o.Strategy.Name
		r.StrategyParams = maps.Clone(o.Strategy.Params)
	}
	if r.StrategyParams == nil {
		r.StrategyParams = map[string]string{}
	}
	return r
}

// Source serves overrides stored in a PostgreSQL table.
type Source struct {
	db    Querier
	table string
}

// NewSource creates a PostgreSQL override source reading OverridesTable.
func NewSource(db Querier) *Source {
	return &Source{db: db, table: pgx.Identifier{OverridesTable}.Sanitize()}
}

// Fetch implements feature.Source.
func (s *Source) Fetch(ctx context.Context) (map[string]feature.Override, error) {
	rows, err := s.db.Query(ctx, "SELECT feature_id, enabled, current_instance, strategy_name, strategy_params FROM "+s.table)
	if err != nil {
		return nil, errors.Join(feature.ErrSourceUnavailable, fmt.Errorf("query %s: %w", s.table, err))
	}

	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[overrideRow])
	if err != nil {
		return nil, errors.Join(feature.ErrSourceUnavailable, ErrInvalidOverride, err)
	}

	out := make(map[string]feature.Override, len(records))
	for _, r := range records {
		out[r.FeatureID] = r.override()
	}
	return out, nil
}

// Publish inserts or replaces the override row of a feature.
func (s *Source) Publish(ctx context.Context, featureID string, o feature.Override) error {
	if featureID == "" {
		return fmt.Errorf("%w: empty feature id", ErrInvalidOverride)
	}
	r := rowFromOverride(featureID, o)
	_, err := s.db.Exec(ctx,
		"INSERT INTO "+s.table+` (feature_id, enabled, current_instance, strategy_name, strategy_params)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (feature_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			current_instance = EXCLUDED.current_instance,
			strategy_name = EXCLUDED.strategy_name,
			strategy_params = EXCLUDED.strategy_params,
			updated_at = now()`,
		r.FeatureID, r.Enabled, r.CurrentInstance, r.StrategyName, r.StrategyParams,
	)
	if err != nil {
		return fmt.Errorf("upsert override %q: %w", featureID, err)
	}
	return nil
}

// Remove deletes the override row of a feature.
func (s *Source) Remove(ctx context.Context, featureID string) error {
	if _, err := s.db.Exec(ctx, "DELETE FROM "+s.table+" WHERE feature_id = $1", featureID); err != nil {
		return fmt.Errorf("delete override %q: %w", featureID, err)
	}
	return nil
}
