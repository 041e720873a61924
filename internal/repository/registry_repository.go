package repository

import (
	"context"

	"strategy-desk/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RegistryRepository reads signal_registry and strategy_signal_weights.
type RegistryRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewRegistryRepository(pool PgxPool, tracer trace.Tracer) *RegistryRepository {
	return &RegistryRepository{pool: pool, tracer: tracer}
}

func (r *RegistryRepository) GetRegistryEntries(ctx context.Context, keys []string) (map[string]domain.SignalRegistryEntry, error) {
	out := make(map[string]domain.SignalRegistryEntry, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	ctx, span := r.tracer.Start(ctx, "registry-repo.get-entries")
	defer span.End()
	span.SetAttributes(attribute.Int("keys", len(keys)))

	rows, err := r.pool.Query(ctx,
		`SELECT key, category, default_weight, min_weight, max_weight, direction_hint, is_enabled
		 FROM signal_registry
		 WHERE key = ANY($1)`,
		keys,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var e domain.SignalRegistryEntry
		var hint string
		if err := rows.Scan(&e.Key, &e.Category, &e.DefaultWeight, &e.MinWeight, &e.MaxWeight, &hint, &e.IsEnabled); err != nil {
			return nil, err
		}
		e.DirectionHint = domain.DirectionHint(hint)
		out[e.Key] = e
	}
	return out, rows.Err()
}

func (r *RegistryRepository) GetStrategyWeights(ctx context.Context, strategyID string, keys []string) (map[string]domain.StrategySignalWeight, error) {
	out := make(map[string]domain.StrategySignalWeight, len(keys))
	if strategyID == "" || len(keys) == 0 {
		return out, nil
	}

	ctx, span := r.tracer.Start(ctx, "registry-repo.get-strategy-weights")
	defer span.End()
	span.SetAttributes(attribute.String("strategy_id", strategyID))

	rows, err := r.pool.Query(ctx,
		`SELECT strategy_id::text, signal_key, weight, is_enabled
		 FROM strategy_signal_weights
		 WHERE strategy_id = $1 AND signal_key = ANY($2)`,
		strategyID, keys,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var w domain.StrategySignalWeight
		if err := rows.Scan(&w.StrategyID, &w.SignalKey, &w.Weight, &w.IsEnabled); err != nil {
			return nil, err
		}
		out[w.SignalKey] = w
	}
	return out, rows.Err()
}

// ListRegistry returns every registry entry ordered by key.
func (r *RegistryRepository) ListRegistry(ctx context.Context) ([]domain.SignalRegistryEntry, error) {
	ctx, span := r.tracer.Start(ctx, "registry-repo.list")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT key, category, default_weight, min_weight, max_weight, direction_hint, is_enabled
		 FROM signal_registry
		 ORDER BY key ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.SignalRegistryEntry
	for rows.Next() {
		var e domain.SignalRegistryEntry
		var hint string
		if err := rows.Scan(&e.Key, &e.Category, &e.DefaultWeight, &e.MinWeight, &e.MaxWeight, &hint, &e.IsEnabled); err != nil {
			return nil, err
		}
		e.DirectionHint = domain.DirectionHint(hint)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
