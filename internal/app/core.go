// Package app assembles the price bus, fusion engine and execution classifier
// with their storage backends so every binary serves the same service graph.
package app

import (
	"net/http"

	"strategy-desk/internal/cache"
	"strategy-desk/internal/config"
	"strategy-desk/internal/fusion"
	"strategy-desk/internal/metrics"
	"strategy-desk/internal/pricebus"
	"strategy-desk/internal/repository"
	"strategy-desk/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

type Core struct {
	Bus       *pricebus.Bus
	Prices    *service.PriceService
	Fusion    *service.FusionService
	Execution *service.ExecutionService
	Metrics   *metrics.Recorder
}

// NewCore wires the services. pool and rdb may be nil, in which case fusion
// lookups fail soft, strategy targets are never loaded and the price bus runs
// without a snapshot fallback.
func NewCore(cfg *config.Config, tracer trace.Tracer, pool repository.PgxPool, rdb redis.Cmdable, reg prometheus.Registerer) *Core {
	recorder := metrics.New(reg)

	var (
		signalSource    fusion.SignalSource
		registrySource  fusion.RegistrySource
		registryLister  service.RegistryLister
		strategyTargets service.StrategyTargetReader
		snapshotWriter  service.SnapshotWriter
		snapshotCache   service.SnapshotCacheWriter
		fallback        pricebus.LayeredSnapshots
	)

	// Redis is read before Postgres: it is shared and cheaper.
	if rdb != nil {
		sc := cache.NewSnapshotCache(rdb, 0)
		snapshotCache = sc
		fallback = append(fallback, sc)
	}
	if pool != nil {
		registry := repository.NewRegistryRepository(pool, tracer)
		snapshots := repository.NewSnapshotRepository(pool, tracer)

		signalSource = repository.NewLiveSignalRepository(pool, tracer)
		registrySource = registry
		registryLister = registry
		strategyTargets = repository.NewStrategyRepository(pool, tracer)
		snapshotWriter = snapshots
		fallback = append(fallback, snapshots)
	} else {
		log.Warn().Msg("no database pool, fusion lookups will be degraded")
	}

	ticker := pricebus.NewTickerClient(cfg.TickerBaseURL, &http.Client{}, cfg.PriceRequestTimeout)
	bus := pricebus.New(ticker, fallback, pricebus.Options{
		TTL:           cfg.PriceCacheTTL,
		SymbolSpacing: cfg.PriceSymbolSpacing,
		MaxConcurrent: int64(cfg.PriceMaxConcurrent),
		MaxAttempts:   cfg.PriceMaxAttempts,
		BackoffBase:   cfg.PriceBackoffBase,
		BackoffMax:    cfg.PriceBackoffMax,
		Metrics:       recorder,
	})

	engine := fusion.NewEngine(signalSource, registrySource, cfg.FusionScoreScale)

	return &Core{
		Bus:       bus,
		Prices:    service.NewPriceService(tracer, bus, snapshotWriter, snapshotCache, cfg.SnapshotSymbols),
		Fusion:    service.NewFusionService(tracer, engine, registryLister, recorder),
		Execution: service.NewExecutionService(tracer, strategyTargets),
		Metrics:   recorder,
	}
}
