package pricebus

import (
	"context"
	"errors"

	"strategy-desk/internal/domain"

	"github.com/rs/zerolog/log"
)

// LayeredSnapshots asks each reader in order and returns the first snapshot
// found. A failing layer is skipped; the errors are returned only when no
// layer produced a snapshot.
type LayeredSnapshots []SnapshotReader

func (l LayeredSnapshots) LatestSnapshot(ctx context.Context, symbol string) (*domain.PriceSnapshot, error) {
	var errs []error
	for i, reader := range l {
		if reader == nil {
			continue
		}
		snap, err := reader.LatestSnapshot(ctx, symbol)
		if err != nil {
			log.Warn().Err(err).Int("layer", i).Str("symbol", symbol).Msg("pricebus: snapshot layer failed")
			errs = append(errs, err)
			continue
		}
		if snap != nil {
			return snap, nil
		}
	}
	return nil, errors.Join(errs...)
}
