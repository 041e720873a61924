package job

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// refreshTimeout bounds one refresh round, including ticker retries.
const refreshTimeout = 5 * time.Second

type SnapshotService interface {
	RefreshSnapshots(ctx context.Context, symbols []string) (int, error)
}

// SnapshotRefresher periodically persists live prices as fallback snapshots.
type SnapshotRefresher struct {
	tracer   trace.Tracer
	service  SnapshotService
	symbols  []string
	interval time.Duration
	timeout  time.Duration
}

func NewSnapshotRefresher(tracer trace.Tracer, service SnapshotService, symbols []string, pollSecs int) *SnapshotRefresher {
	if pollSecs <= 0 {
		pollSecs = 60
	}
	return &SnapshotRefresher{
		tracer:   tracer,
		service:  service,
		symbols:  symbols,
		interval: time.Duration(pollSecs) * time.Second,
		timeout:  refreshTimeout,
	}
}

// Start refreshes immediately and then on every tick. Blocks until ctx is cancelled.
func (r *SnapshotRefresher) Start(ctx context.Context) {
	if r.service == nil {
		log.Info().Msg("Snapshot refresher disabled: no price service")
		<-ctx.Done()
		return
	}

	log.Info().Dur("interval", r.interval).Int("symbols", len(r.symbols)).Msg("Snapshot refresher starting")
	r.refreshOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Snapshot refresher stopped")
			return
		case <-ticker.C:
			r.refreshOnce(ctx)
		}
	}
}

func (r *SnapshotRefresher) refreshOnce(ctx context.Context) {
	ctx, span := r.tracer.Start(ctx, "snapshot-refresher.refresh")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	n, err := r.service.RefreshSnapshots(ctx, r.symbols)
	span.SetAttributes(attribute.Int("persisted", n))
	if err != nil {
		log.Warn().Err(err).Msg("snapshot refresh failed")
		return
	}
	log.Debug().Int("persisted", n).Msg("snapshot refresh complete")
}
