package service

import (
	"context"
	"fmt"

	"strategy-desk/internal/domain"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const maxSymbolsPerRequest = 25

type PriceBus interface {
	GetPrices(ctx context.Context, symbols []string) map[string]domain.Quote
	GetCached(symbol string) (domain.Quote, bool)
	Invalidate(symbol string)
	Flush()
}

type SnapshotWriter interface {
	InsertSnapshots(ctx context.Context, snapshots []domain.PriceSnapshot) error
}

type SnapshotCacheWriter interface {
	Put(ctx context.Context, snap domain.PriceSnapshot) error
}

// PriceResult lists the symbols that resolved and those that did not.
type PriceResult struct {
	Prices  map[string]domain.Quote `json:"prices"`
	Missing []string                `json:"missing"`
}

type PriceService struct {
	tracer         trace.Tracer
	bus            PriceBus
	snapshots      SnapshotWriter
	snapshotCache  SnapshotCacheWriter
	defaultSymbols []string
}

// NewPriceService wires the bus with optional snapshot persistence. snapshots
// and snapshotCache may be nil. Unsupported default symbols are dropped.
func NewPriceService(tracer trace.Tracer, bus PriceBus, snapshots SnapshotWriter, snapshotCache SnapshotCacheWriter, defaultSymbols []string) *PriceService {
	defaultSymbols = supportedOnly(normalizeSymbols(defaultSymbols))
	if len(defaultSymbols) == 0 {
		defaultSymbols = domain.SupportedSymbols
	}
	return &PriceService{
		tracer:         tracer,
		bus:            bus,
		snapshots:      snapshots,
		snapshotCache:  snapshotCache,
		defaultSymbols: defaultSymbols,
	}
}

func (s *PriceService) DefaultSymbols() []string {
	return append([]string(nil), s.defaultSymbols...)
}

// GetPrices resolves symbols, defaulting to the configured list when empty.
func (s *PriceService) GetPrices(ctx context.Context, symbols []string) (PriceResult, error) {
	ctx, span := s.tracer.Start(ctx, "price-service.get-prices")
	defer span.End()

	symbols = normalizeSymbols(symbols)
	if len(symbols) == 0 {
		symbols = s.DefaultSymbols()
	}
	if len(symbols) > maxSymbolsPerRequest {
		return PriceResult{}, fmt.Errorf("%w: at most %d symbols per request", ErrInvalidInput, maxSymbolsPerRequest)
	}
	if err := checkSupported(symbols); err != nil {
		return PriceResult{}, err
	}
	span.SetAttributes(attribute.StringSlice("symbols", symbols))

	prices := s.bus.GetPrices(ctx, symbols)
	missing := make([]string, 0)
	for _, symbol := range symbols {
		if _, ok := prices[symbol]; !ok {
			missing = append(missing, symbol)
		}
	}
	span.SetAttributes(attribute.Int("missing", len(missing)))
	return PriceResult{Prices: prices, Missing: missing}, nil
}

// GetCached never reaches the bus for symbols outside the supported set.
func (s *PriceService) GetCached(symbol string) (domain.Quote, bool) {
	symbol = domain.NormalizeSymbol(symbol)
	if !domain.IsSupportedSymbol(symbol) {
		return domain.Quote{}, false
	}
	return s.bus.GetCached(symbol)
}

// Invalidate drops the cached quote for one supported symbol.
func (s *PriceService) Invalidate(symbol string) error {
	symbol = domain.NormalizeSymbol(symbol)
	if err := checkSupported([]string{symbol}); err != nil {
		return err
	}
	s.bus.Invalidate(symbol)
	log.Info().Str("symbol", symbol).Msg("price cache entry invalidated")
	return nil
}

// Flush empties the price cache.
func (s *PriceService) Flush() {
	s.bus.Flush()
	log.Info().Msg("price cache flushed")
}

// RefreshSnapshots fetches symbols and persists every live reading to
// Postgres and the redis snapshot cache. Quotes served from the in-memory
// cache or from a stored snapshot are skipped. It returns how many were persisted.
func (s *PriceService) RefreshSnapshots(ctx context.Context, symbols []string) (int, error) {
	ctx, span := s.tracer.Start(ctx, "price-service.refresh-snapshots")
	defer span.End()

	symbols = normalizeSymbols(symbols)
	if len(symbols) == 0 {
		symbols = s.DefaultSymbols()
	}
	symbols = supportedOnly(symbols)

	prices := s.bus.GetPrices(ctx, symbols)
	snaps := make([]domain.PriceSnapshot, 0, len(prices))
	for _, symbol := range symbols {
		q, ok := prices[symbol]
		if !ok || q.Source != domain.QuoteSourceLive {
			continue
		}
		snaps = append(snaps, domain.PriceSnapshot{
			Symbol:    symbol,
			Price:     q.Price,
			Bid:       q.Bid,
			Ask:       q.Ask,
			Volume:    q.Volume,
			Timestamp: q.Timestamp,
		})
	}
	span.SetAttributes(attribute.Int("snapshots", len(snaps)))
	if len(snaps) == 0 {
		return 0, nil
	}

	if s.snapshotCache != nil {
		for _, snap := range snaps {
			if err := s.snapshotCache.Put(ctx, snap); err != nil {
				log.Warn().Err(err).Str("symbol", snap.Symbol).Msg("snapshot cache write failed")
			}
		}
	}
	if s.snapshots != nil {
		if err := s.snapshots.InsertSnapshots(ctx, snaps); err != nil {
			return 0, fmt.Errorf("persist snapshots: %w", err)
		}
	}
	return len(snaps), nil
}

func normalizeSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		s = domain.NormalizeSymbol(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func checkSupported(symbols []string) error {
	for _, symbol := range symbols {
		if !domain.IsSupportedSymbol(symbol) {
			return fmt.Errorf("%w: unsupported symbol %q", ErrInvalidInput, symbol)
		}
	}
	return nil
}

func supportedOnly(symbols []string) []string {
	out := symbols[:0:0]
	for _, symbol := range symbols {
		if !domain.IsSupportedSymbol(symbol) {
			log.Warn().Str("symbol", symbol).Msg("skipping unsupported symbol")
			continue
		}
		out = append(out, symbol)
	}
	return out
}
