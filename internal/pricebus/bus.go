// Package pricebus fronts the external ticker endpoint with a short-lived
// cache, per-symbol request coalescing, a global concurrency cap, per-symbol
// pacing, 429 backoff and a persisted-snapshot fallback.
package pricebus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"strategy-desk/internal/domain"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	DefaultTTL           = 10 * time.Second
	DefaultSymbolSpacing = 1200 * time.Millisecond
	DefaultMaxConcurrent = 2
	DefaultMaxAttempts   = 3
	DefaultBackoffBase   = 2 * time.Second
	DefaultBackoffMax    = 10 * time.Second
)

// ErrUnavailable is returned when neither the ticker nor a snapshot had a price.
var ErrUnavailable = errors.New("price unavailable")

type TickerFetcher interface {
	FetchTicker(ctx context.Context, symbol string) (Ticker, error)
}

// SnapshotReader returns the latest persisted reading, or nil when there is none.
type SnapshotReader interface {
	LatestSnapshot(ctx context.Context, symbol string) (*domain.PriceSnapshot, error)
}

type Metrics interface {
	CacheHit(symbol string)
	CacheMiss(symbol string)
	Coalesced(symbol string)
	UpstreamRequest(status string, seconds float64)
	RateLimited(symbol string)
	SnapshotFallback(symbol string)
	Omitted(symbol string)
}

type Options struct {
	TTL           time.Duration
	SymbolSpacing time.Duration
	MaxConcurrent int64
	MaxAttempts   int
	BackoffBase   time.Duration
	BackoffMax    time.Duration
	Metrics       Metrics
	Now           func() time.Time
}

func DefaultOptions() Options {
	return Options{
		TTL:           DefaultTTL,
		SymbolSpacing: DefaultSymbolSpacing,
		MaxConcurrent: DefaultMaxConcurrent,
		MaxAttempts:   DefaultMaxAttempts,
		BackoffBase:   DefaultBackoffBase,
		BackoffMax:    DefaultBackoffMax,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TTL <= 0 {
		o.TTL = d.TTL
	}
	if o.SymbolSpacing < 0 {
		o.SymbolSpacing = 0
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = d.MaxConcurrent
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = d.BackoffBase
	}
	if o.BackoffMax < o.BackoffBase {
		o.BackoffMax = o.BackoffBase
	}
	if o.Metrics == nil {
		o.Metrics = noopMetrics{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Bus is safe for concurrent use. Construct one per process and share it.
type Bus struct {
	fetcher  TickerFetcher
	fallback SnapshotReader
	opts     Options

	mu       sync.Mutex
	cache    map[string]domain.Quote
	limiters map[string]*rate.Limiter

	group singleflight.Group
	sem   *semaphore.Weighted
}

// New builds a Bus. fallback may be nil.
func New(fetcher TickerFetcher, fallback SnapshotReader, opts Options) *Bus {
	opts = opts.withDefaults()
	return &Bus{
		fetcher:  fetcher,
		fallback: fallback,
		opts:     opts,
		cache:    make(map[string]domain.Quote),
		limiters: make(map[string]*rate.Limiter),
		sem:      semaphore.NewWeighted(opts.MaxConcurrent),
	}
}

// GetPrices resolves every distinct symbol concurrently. Symbols with no live
// price and no snapshot are left out of the result.
func (b *Bus) GetPrices(ctx context.Context, symbols []string) map[string]domain.Quote {
	unique := make([]string, 0, len(symbols))
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
		unique = append(unique, s)
	}

	out := make(map[string]domain.Quote, len(unique))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, symbol := range unique {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			q, err := b.Get(ctx, symbol)
			if err != nil {
				b.opts.Metrics.Omitted(symbol)
				log.Warn().Err(err).Str("symbol", symbol).Msg("pricebus: omitting symbol")
				return
			}
			mu.Lock()
			out[symbol] = q
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()
	return out
}

// Get returns one symbol's price from cache, a live fetch, or the snapshot fallback.
// Concurrent callers for the same symbol share a single upstream request.
func (b *Bus) Get(ctx context.Context, symbol string) (domain.Quote, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if q, ok := b.GetCached(symbol); ok {
		b.opts.Metrics.CacheHit(symbol)
		q.Source = domain.QuoteSourceCache
		return q, nil
	}
	b.opts.Metrics.CacheMiss(symbol)

	// The shared load must not die with whichever caller started it.
	loadCtx := context.WithoutCancel(ctx)
	ch := b.group.DoChan(symbol, func() (any, error) {
		return b.load(loadCtx, symbol)
	})

	select {
	case <-ctx.Done():
		return domain.Quote{}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			b.opts.Metrics.Coalesced(symbol)
		}
		if res.Err != nil {
			return domain.Quote{}, res.Err
		}
		return res.Val.(domain.Quote), nil
	}
}

// GetCached returns a cached quote only while it is younger than the TTL.
func (b *Bus) GetCached(symbol string) (domain.Quote, bool) {
	symbol = domain.NormalizeSymbol(symbol)
	b.mu.Lock()
	defer b.mu.Unlock()

	q, ok := b.cache[symbol]
	if !ok {
		return domain.Quote{}, false
	}
	if b.opts.Now().Sub(q.CachedAt) >= b.opts.TTL {
		delete(b.cache, symbol)
		return domain.Quote{}, false
	}
	return q, true
}

// Invalidate drops one symbol from the cache.
func (b *Bus) Invalidate(symbol string) {
	b.mu.Lock()
	delete(b.cache, domain.NormalizeSymbol(symbol))
	b.mu.Unlock()
}

// Flush empties the cache.
func (b *Bus) Flush() {
	b.mu.Lock()
	b.cache = make(map[string]domain.Quote)
	b.mu.Unlock()
}

func (b *Bus) load(ctx context.Context, symbol string) (domain.Quote, error) {
	// A flight that finished just before this one may have filled the cache.
	if q, ok := b.GetCached(symbol); ok {
		q.Source = domain.QuoteSourceCache
		return q, nil
	}

	t, err := b.fetchLive(ctx, symbol)
	if err == nil {
		now := b.opts.Now()
		q := domain.Quote{
			Symbol:    symbol,
			Price:     t.Price.InexactFloat64(),
			Bid:       toFloat(t.Bid),
			Ask:       toFloat(t.Ask),
			Volume:    toFloat(t.Volume),
			Timestamp: t.Time,
			CachedAt:  now,
			Source:    domain.QuoteSourceLive,
		}
		b.mu.Lock()
		b.cache[symbol] = q
		b.mu.Unlock()
		return q, nil
	}

	log.Warn().Err(err).Str("symbol", symbol).Msg("pricebus: live fetch failed, trying snapshot")
	if b.fallback == nil {
		return domain.Quote{}, fmt.Errorf("%w: %s: %w", ErrUnavailable, symbol, err)
	}
	snap, snapErr := b.fallback.LatestSnapshot(ctx, symbol)
	if snapErr != nil {
		return domain.Quote{}, fmt.Errorf("%w: %s: %w", ErrUnavailable, symbol, errors.Join(err, snapErr))
	}
	if snap == nil {
		return domain.Quote{}, fmt.Errorf("%w: %s: no snapshot: %w", ErrUnavailable, symbol, err)
	}
	b.opts.Metrics.SnapshotFallback(symbol)
	return domain.Quote{
		Symbol:    symbol,
		Price:     snap.Price,
		Timestamp: snap.Timestamp,
		CachedAt:  b.opts.Now(),
		Source:    domain.QuoteSourceSnapshot,
	}, nil
}

// fetchLive retries only ErrRateLimited, with exponential backoff and no jitter.
func (b *Bus) fetchLive(ctx context.Context, symbol string) (Ticker, error) {
	policy := &backoff.ExponentialBackOff{
		InitialInterval:     b.opts.BackoffBase,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         b.opts.BackoffMax,
	}

	op := func() (Ticker, error) {
		t, err := b.attempt(ctx, symbol)
		if err == nil {
			return t, nil
		}
		if errors.Is(err, ErrRateLimited) {
			b.opts.Metrics.RateLimited(symbol)
			return Ticker{}, err
		}
		return Ticker{}, backoff.Permanent(err)
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(b.opts.MaxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			log.Debug().Err(err).Str("symbol", symbol).Dur("wait", wait).Msg("pricebus: backing off")
		}),
	)
}

// attempt performs one paced upstream request while holding a concurrency slot.
func (b *Bus) attempt(ctx context.Context, symbol string) (Ticker, error) {
	if err := b.limiter(symbol).Wait(ctx); err != nil {
		return Ticker{}, err
	}
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return Ticker{}, err
	}
	defer b.sem.Release(1)

	start := time.Now()
	t, err := b.fetcher.FetchTicker(ctx, symbol)
	b.opts.Metrics.UpstreamRequest(statusLabel(err), time.Since(start).Seconds())
	return t, err
}

func (b *Bus) limiter(symbol string) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.limiters[symbol]
	if !ok {
		limit := rate.Inf
		if b.opts.SymbolSpacing > 0 {
			limit = rate.Every(b.opts.SymbolSpacing)
		}
		l = rate.NewLimiter(limit, 1)
		b.limiters[symbol] = l
	}
	return l
}

func toFloat(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

func statusLabel(err error) string {
	var se *StatusError
	switch {
	case err == nil:
		return strconv.Itoa(http.StatusOK)
	case errors.Is(err, ErrRateLimited):
		return strconv.Itoa(http.StatusTooManyRequests)
	case errors.As(err, &se):
		return strconv.Itoa(se.Code)
	case errors.Is(err, ErrNoPrice):
		return "no_price"
	default:
		return "error"
	}
}

type noopMetrics struct{}

func (noopMetrics) CacheHit(string)                 {}
func (noopMetrics) CacheMiss(string)                {}
func (noopMetrics) Coalesced(string)                {}
func (noopMetrics) UpstreamRequest(string, float64) {}
func (noopMetrics) RateLimited(string)              {}
func (noopMetrics) SnapshotFallback(string)         {}
func (noopMetrics) Omitted(string)                  {}
