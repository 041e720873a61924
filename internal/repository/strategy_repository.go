package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type StrategyRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewStrategyRepository(pool PgxPool, tracer trace.Tracer) *StrategyRepository {
	return &StrategyRepository{pool: pool, tracer: tracer}
}

// GetExecutionTarget returns the strategy's execution_target in upper case,
// or "" when the strategy does not exist.
func (r *StrategyRepository) GetExecutionTarget(ctx context.Context, strategyID string) (string, error) {
	ctx, span := r.tracer.Start(ctx, "strategy-repo.get-execution-target")
	defer span.End()
	span.SetAttributes(attribute.String("strategy_id", strategyID))

	var target string
	err := r.pool.QueryRow(ctx,
		`SELECT execution_target FROM strategies WHERE id = $1`,
		strategyID,
	).Scan(&target)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.ToUpper(strings.TrimSpace(target)), nil
}
