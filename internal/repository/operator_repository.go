package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Operator is a desk user allowed to open a terminal session. Username is the
// identity checked against a strategy owner when classifying trades.
type Operator struct {
	ID          int64
	Username    string
	DisplayName string
	Fingerprint string
	LastLoginAt *time.Time
}

type OperatorRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewOperatorRepository(pool PgxPool, tracer trace.Tracer) *OperatorRepository {
	return &OperatorRepository{pool: pool, tracer: tracer}
}

// FindByFingerprint returns the active operator owning the key, or nil.
func (r *OperatorRepository) FindByFingerprint(ctx context.Context, fingerprint string) (*Operator, error) {
	ctx, span := r.tracer.Start(ctx, "operator-repo.find-by-fingerprint")
	defer span.End()

	row := r.pool.QueryRow(ctx,
		`SELECT id, username, display_name, fingerprint, last_login_at
		 FROM desk_operators
		 WHERE fingerprint = $1 AND is_active = TRUE`,
		fingerprint,
	)

	var op Operator
	err := row.Scan(&op.ID, &op.Username, &op.DisplayName, &op.Fingerprint, &op.LastLoginAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("operator.username", op.Username))
	return &op, nil
}

func (r *OperatorRepository) TouchLogin(ctx context.Context, operatorID int64) error {
	ctx, span := r.tracer.Start(ctx, "operator-repo.touch-login")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`UPDATE desk_operators SET last_login_at = NOW() WHERE id = $1`,
		operatorID,
	)
	return err
}
