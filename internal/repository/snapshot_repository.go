package repository

import (
	"context"
	"errors"

	"strategy-desk/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type SnapshotRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewSnapshotRepository(pool PgxPool, tracer trace.Tracer) *SnapshotRepository {
	return &SnapshotRepository{pool: pool, tracer: tracer}
}

func (r *SnapshotRepository) InsertSnapshots(ctx context.Context, snapshots []domain.PriceSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	ctx, span := r.tracer.Start(ctx, "snapshot-repo.insert-snapshots")
	defer span.End()
	span.SetAttributes(attribute.Int("count", len(snapshots)))

	batch := &pgx.Batch{}
	for _, s := range snapshots {
		batch.Queue(
			`INSERT INTO price_snapshots (symbol, price, bid, ask, volume, timestamp)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			s.Symbol, s.Price, s.Bid, s.Ask, s.Volume, s.Timestamp.UTC(),
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range snapshots {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LatestSnapshot returns the newest snapshot for symbol, or nil when none exists.
func (r *SnapshotRepository) LatestSnapshot(ctx context.Context, symbol string) (*domain.PriceSnapshot, error) {
	ctx, span := r.tracer.Start(ctx, "snapshot-repo.latest")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	var s domain.PriceSnapshot
	err := r.pool.QueryRow(ctx,
		`SELECT id, symbol, price, bid, ask, volume, timestamp
		 FROM price_snapshots
		 WHERE symbol = $1
		 ORDER BY timestamp DESC
		 LIMIT 1`,
		domain.NormalizeSymbol(symbol),
	).Scan(&s.ID, &s.Symbol, &s.Price, &s.Bid, &s.Ask, &s.Volume, &s.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.Timestamp = s.Timestamp.UTC()
	return &s, nil
}
