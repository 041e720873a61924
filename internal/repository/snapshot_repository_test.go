package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"strategy-desk/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

func TestInsertSnapshotsBatchesStatements(t *testing.T) {
	pool := &stubPool{}
	repo := NewSnapshotRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	bid := 99.5
	snaps := []domain.PriceSnapshot{
		{Symbol: "BTC-EUR", Price: 100, Bid: &bid, Timestamp: time.Unix(0, 0)},
		{Symbol: "ETH-EUR", Price: 10, Timestamp: time.Unix(60, 0)},
	}
	if err := repo.InsertSnapshots(context.Background(), snaps); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.queuedBatch == nil || pool.queuedBatch.Len() != len(snaps) {
		t.Fatalf("expected batch of size %d", len(snaps))
	}
	if pool.batchResults.execCalls != len(snaps) {
		t.Fatalf("expected %d Exec calls, got %d", len(snaps), pool.batchResults.execCalls)
	}
}

func TestInsertSnapshotsEmptyIsNoop(t *testing.T) {
	pool := &stubPool{}
	repo := NewSnapshotRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	if err := repo.InsertSnapshots(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.queuedBatch != nil {
		t.Fatal("expected no batch for empty input")
	}
}

func TestInsertSnapshotsBatchError(t *testing.T) {
	pool := &stubPool{batchResults: &stubBatchResults{execErr: errors.New("constraint")}}
	repo := NewSnapshotRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	err := repo.InsertSnapshots(context.Background(), []domain.PriceSnapshot{{Symbol: "BTC-EUR", Price: 1}})
	if err == nil {
		t.Fatal("expected batch error")
	}
}

func TestLatestSnapshot(t *testing.T) {
	ts := time.Date(2025, 3, 1, 11, 59, 0, 0, time.UTC)
	ask := 101.0
	pool := &stubPool{row: []any{int64(9), "BTC-EUR", 100.5, nil, &ask, nil, ts}}
	repo := NewSnapshotRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	snap, err := repo.LatestSnapshot(context.Background(), "btc-eur")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap == nil || snap.ID != 9 || snap.Price != 100.5 || snap.Bid != nil || snap.Ask == nil || *snap.Ask != 101 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if pool.lastArgs[0] != "BTC-EUR" {
		t.Fatalf("expected normalized symbol arg, got %v", pool.lastArgs[0])
	}
}

func TestLatestSnapshotMissing(t *testing.T) {
	repo := NewSnapshotRepository(&stubPool{}, trace.NewNoopTracerProvider().Tracer("test"))

	snap, err := repo.LatestSnapshot(context.Background(), "BTC-EUR")
	if err != nil || snap != nil {
		t.Fatalf("expected nil snapshot and nil error, got %+v (%v)", snap, err)
	}
}

func TestRunMigrationsExecutesSchema(t *testing.T) {
	pool := &stubPool{}
	if err := RunMigrations(context.Background(), pool); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pool.execSQL) != len(schema) {
		t.Fatalf("expected %d statements, got %d", len(schema), len(pool.execSQL))
	}

	pool = &stubPool{execErr: errors.New("permission denied")}
	if err := RunMigrations(context.Background(), pool); err == nil {
		t.Fatal("expected migration error")
	}
}
