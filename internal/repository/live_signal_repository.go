package repository

import (
	"context"
	"time"

	"strategy-desk/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type LiveSignalRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewLiveSignalRepository(pool PgxPool, tracer trace.Tracer) *LiveSignalRepository {
	return &LiveSignalRepository{pool: pool, tracer: tracer}
}

// ListSignalsSince returns signals for symbol and for the wildcard symbol
// newer than cutoff, newest first.
func (r *LiveSignalRepository) ListSignalsSince(ctx context.Context, symbol string, cutoff time.Time) ([]domain.Signal, error) {
	ctx, span := r.tracer.Start(ctx, "live-signal-repo.list-since")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	rows, err := r.pool.Query(ctx,
		`SELECT id, symbol, signal_type, source, signal_strength, timestamp
		 FROM live_signals
		 WHERE symbol IN ($1, $2) AND timestamp >= $3
		 ORDER BY timestamp DESC`,
		domain.NormalizeSymbol(symbol), domain.WildcardSymbol, cutoff.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []domain.Signal
	for rows.Next() {
		var s domain.Signal
		if err := rows.Scan(&s.ID, &s.Symbol, &s.SignalType, &s.Source, &s.Strength, &s.Timestamp); err != nil {
			return nil, err
		}
		s.Timestamp = s.Timestamp.UTC()
		signals = append(signals, s)
	}
	return signals, rows.Err()
}
