package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"strategy-desk/internal/app"
	"strategy-desk/internal/bot"
	"strategy-desk/internal/cache"
	"strategy-desk/internal/config"
	"strategy-desk/internal/db"
	"strategy-desk/internal/handler"
	"strategy-desk/internal/job"
	"strategy-desk/internal/logger"
	"strategy-desk/internal/repository"
	"strategy-desk/pkg/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "strategy-desk/docs"
)

var (
	loadEnvFunc         = godotenv.Load
	loadConfigFunc      = config.Load
	setupLoggerFunc     = logger.Setup
	initPostgresFunc    = db.InitPostgres
	initRedisFunc       = cache.InitRedis
	initTracerFunc      = tracing.InitTracer
	runMigrationsFunc   = repository.RunMigrations
	metricsRegistryFunc = func() (prometheus.Registerer, prometheus.Gatherer) {
		return prometheus.DefaultRegisterer, prometheus.DefaultGatherer
	}
	newCoreFunc              = app.NewCore
	newSnapshotRefresherFunc = job.NewSnapshotRefresher
	startRefresherFunc       = func(r *job.SnapshotRefresher, ctx context.Context) { go r.Start(ctx) }
	startTelegramBotFunc     = bot.StartTelegramBot
	newScoreAlertPollerFunc  = job.NewScoreAlertPoller
	startAlertPollerFunc     = func(p *job.ScoreAlertPoller, ctx context.Context) { go p.Start(ctx) }
	newHandlerFunc           = handler.New
	newRouterFunc            = gin.Default
	setupSignalNotify        = ossignal.Notify
	waitForSignalFunc        = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc      = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc   = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Strategy Desk API
// @version         1.0
// @description     Live prices, fused signal scores and execution routing for crypto strategies.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()
	setupLoggerFunc(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	var pool repository.PgxPool
	if db.Pool != nil {
		pool = db.Pool
		if err := runMigrationsFunc(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}
	var rdb redis.Cmdable
	if cache.Client != nil {
		rdb = cache.Client
	}

	reg, gatherer := metricsRegistryFunc()
	core := newCoreFunc(cfg, tracer, pool, rdb, reg)

	// Background jobs stop on ctx cancel.
	refresher := newSnapshotRefresherFunc(tracer, core.Prices, cfg.SnapshotSymbols, cfg.SnapshotPollSecs)
	startRefresherFunc(refresher, ctx)

	if alerts := startTelegramBotFunc(cfg.TelegramBotToken, core.Prices, core.Fusion); alerts != nil {
		poller := newScoreAlertPollerFunc(tracer, core.Fusion, alerts, job.ScoreAlertConfig{
			Symbols:    cfg.SnapshotSymbols,
			StrategyID: cfg.AlertStrategyID,
			Horizon:    cfg.AlertHorizon,
			Threshold:  cfg.AlertScoreThreshold,
			PollSecs:   cfg.AlertPollSecs,
		})
		startAlertPollerFunc(poller, ctx)
	}

	h := newHandlerFunc(tracer, core.Prices, core.Fusion, core.Execution)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("strategy-desk"))
	r.Use(cors.Default())

	h.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := startHTTPServerFunc(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info().Msg("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
