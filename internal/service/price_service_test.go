package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"strategy-desk/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

func TestPriceServiceGetPricesReportsMissing(t *testing.T) {
	bus := &stubPriceBus{quotes: map[string]domain.Quote{
		"BTC-EUR": {Symbol: "BTC-EUR", Price: 64000, Source: domain.QuoteSourceLive},
	}}
	svc := NewPriceService(trace.NewNoopTracerProvider().Tracer("test"), bus, nil, nil, nil)

	got, err := svc.GetPrices(context.Background(), []string{"btc-eur", "ETH-EUR", "BTC-EUR"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(bus.lastSymbols, []string{"BTC-EUR", "ETH-EUR"}) {
		t.Fatalf("expected deduplicated symbols, got %v", bus.lastSymbols)
	}
	if len(got.Prices) != 1 || !reflect.DeepEqual(got.Missing, []string{"ETH-EUR"}) {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestPriceServiceGetPricesDefaultsAndLimits(t *testing.T) {
	bus := &stubPriceBus{}
	svc := NewPriceService(trace.NewNoopTracerProvider().Tracer("test"), bus, nil, nil, []string{"SOL-EUR"})

	if _, err := svc.GetPrices(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(bus.lastSymbols, []string{"SOL-EUR"}) {
		t.Fatalf("expected default symbols, got %v", bus.lastSymbols)
	}

	many := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		many = append(many, fmt.Sprintf("SYM%d-EUR", i))
	}
	if _, err := svc.GetPrices(context.Background(), many); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for too many symbols, got %v", err)
	}
}

func TestPriceServiceRefreshSnapshotsPersistsLiveQuotes(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	bid := 63990.0
	bus := &stubPriceBus{quotes: map[string]domain.Quote{
		"BTC-EUR": {Symbol: "BTC-EUR", Price: 64000, Bid: &bid, Timestamp: ts, Source: domain.QuoteSourceLive},
		"ETH-EUR": {Symbol: "ETH-EUR", Price: 2500, Timestamp: ts, Source: domain.QuoteSourceCache},
		"SOL-EUR": {Symbol: "SOL-EUR", Price: 130, Timestamp: ts, Source: domain.QuoteSourceSnapshot},
	}}
	writer := &stubSnapshotWriter{}
	cacheWriter := &stubSnapshotCacheWriter{err: errors.New("redis down")}
	svc := NewPriceService(trace.NewNoopTracerProvider().Tracer("test"), bus, writer, cacheWriter, nil)

	n, err := svc.RefreshSnapshots(context.Background(), []string{"BTC-EUR", "ETH-EUR", "SOL-EUR", "ADA-EUR", "JUNK-EUR"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 || len(writer.inserted) != 1 {
		t.Fatalf("expected only the live quote persisted, got n=%d inserted=%d", n, len(writer.inserted))
	}
	if !reflect.DeepEqual(bus.lastSymbols, []string{"BTC-EUR", "ETH-EUR", "SOL-EUR", "ADA-EUR"}) {
		t.Fatalf("expected unsupported symbols dropped before the bus, got %v", bus.lastSymbols)
	}
	if writer.inserted[0].Symbol != "BTC-EUR" || writer.inserted[0].Bid == nil || !writer.inserted[0].Timestamp.Equal(ts) {
		t.Fatalf("unexpected snapshot: %+v", writer.inserted[0])
	}
	if cacheWriter.calls != 1 {
		t.Fatalf("expected one cache write despite errors, got %d", cacheWriter.calls)
	}
}

func TestPriceServiceRefreshSnapshotsPersistError(t *testing.T) {
	bus := &stubPriceBus{quotes: map[string]domain.Quote{"BTC-EUR": {Symbol: "BTC-EUR", Price: 1, Source: domain.QuoteSourceLive}}}
	svc := NewPriceService(trace.NewNoopTracerProvider().Tracer("test"), bus, &stubSnapshotWriter{err: errors.New("db down")}, nil, nil)

	if _, err := svc.RefreshSnapshots(context.Background(), []string{"BTC-EUR"}); err == nil {
		t.Fatal("expected persist error")
	}
}

func TestPriceServiceGetCachedNormalizes(t *testing.T) {
	bus := &stubPriceBus{cached: map[string]domain.Quote{"BTC-EUR": {Price: 5}}}
	svc := NewPriceService(trace.NewNoopTracerProvider().Tracer("test"), bus, nil, nil, nil)

	if q, ok := svc.GetCached(" btc-eur"); !ok || q.Price != 5 {
		t.Fatalf("expected cached quote, got %+v %v", q, ok)
	}
}

func TestPriceServiceRejectsUnsupportedSymbols(t *testing.T) {
	bus := &stubPriceBus{cached: map[string]domain.Quote{"JUNK1-EUR": {Price: 1}}}
	svc := NewPriceService(trace.NewNoopTracerProvider().Tracer("test"), bus, nil, nil, nil)

	if _, err := svc.GetPrices(context.Background(), []string{"BTC-EUR", "junk1-eur"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if bus.lastSymbols != nil {
		t.Fatalf("expected bus untouched, got %v", bus.lastSymbols)
	}
	if _, ok := svc.GetCached("JUNK1-EUR"); ok {
		t.Fatal("expected unsupported symbol to miss the cache")
	}
	if bus.cachedLookups != 0 {
		t.Fatalf("expected no cache lookups, got %d", bus.cachedLookups)
	}
}

func TestPriceServiceInvalidateAndFlush(t *testing.T) {
	bus := &stubPriceBus{}
	svc := NewPriceService(trace.NewNoopTracerProvider().Tracer("test"), bus, nil, nil, nil)

	if err := svc.Invalidate(" eth-eur "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(bus.invalidated, []string{"ETH-EUR"}) {
		t.Fatalf("expected ETH-EUR invalidated, got %v", bus.invalidated)
	}
	if err := svc.Invalidate("JUNK-EUR"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(bus.invalidated) != 1 {
		t.Fatalf("expected unsupported symbol not forwarded, got %v", bus.invalidated)
	}

	svc.Flush()
	if bus.flushes != 1 {
		t.Fatalf("expected one flush, got %d", bus.flushes)
	}
}

type stubPriceBus struct {
	quotes        map[string]domain.Quote
	cached        map[string]domain.Quote
	lastSymbols   []string
	cachedLookups int
	invalidated   []string
	flushes       int
}

func (s *stubPriceBus) GetPrices(ctx context.Context, symbols []string) map[string]domain.Quote {
	s.lastSymbols = symbols
	out := make(map[string]domain.Quote)
	for _, sym := range symbols {
		if q, ok := s.quotes[sym]; ok {
			out[sym] = q
		}
	}
	return out
}

func (s *stubPriceBus) GetCached(symbol string) (domain.Quote, bool) {
	s.cachedLookups++
	q, ok := s.cached[symbol]
	return q, ok
}

func (s *stubPriceBus) Invalidate(symbol string) { s.invalidated = append(s.invalidated, symbol) }

func (s *stubPriceBus) Flush() { s.flushes++ }

type stubSnapshotWriter struct {
	inserted []domain.PriceSnapshot
	err      error
}

func (s *stubSnapshotWriter) InsertSnapshots(ctx context.Context, snapshots []domain.PriceSnapshot) error {
	if s.err != nil {
		return s.err
	}
	s.inserted = append(s.inserted, snapshots...)
	return nil
}

type stubSnapshotCacheWriter struct {
	calls int
	err   error
}

func (s *stubSnapshotCacheWriter) Put(ctx context.Context, snap domain.PriceSnapshot) error {
	s.calls++
	return s.err
}
