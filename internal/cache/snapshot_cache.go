package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"strategy-desk/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	snapshotKeyPrefix  = "price:snapshot:"
	DefaultSnapshotTTL = 6 * time.Hour
)

// SnapshotCache keeps the latest price snapshot per symbol in redis so every
// process can fall back to it without a database round trip.
type SnapshotCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewSnapshotCache(client redis.Cmdable, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &SnapshotCache{client: client, ttl: ttl}
}

func snapshotKey(symbol string) string {
	return snapshotKeyPrefix + domain.NormalizeSymbol(symbol)
}

func (c *SnapshotCache) Put(ctx context.Context, snap domain.PriceSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, snapshotKey(snap.Symbol), payload, c.ttl).Err()
}

// LatestSnapshot returns nil when redis holds nothing for symbol.
func (c *SnapshotCache) LatestSnapshot(ctx context.Context, symbol string) (*domain.PriceSnapshot, error) {
	raw, err := c.client.Get(ctx, snapshotKey(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap domain.PriceSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", symbol, err)
	}
	return &snap, nil
}
