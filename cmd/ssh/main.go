package main

import (
	"context"
	"errors"
	"net"
	"os"
	ossignal "os/signal"
	"strconv"
	"syscall"
	"time"

	"strategy-desk/internal/app"
	"strategy-desk/internal/cache"
	"strategy-desk/internal/config"
	"strategy-desk/internal/db"
	"strategy-desk/internal/logger"
	"strategy-desk/internal/repository"
	"strategy-desk/internal/tui"
	"strategy-desk/pkg/tracing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
	gossh "golang.org/x/crypto/ssh"
)

type operatorCtxKey struct{}

// operatorDirectory resolves public key fingerprints to desk operators.
type operatorDirectory interface {
	FindByFingerprint(ctx context.Context, fingerprint string) (*repository.Operator, error)
	TouchLogin(ctx context.Context, operatorID int64) error
}

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	setupLoggerFunc  = logger.Setup
	initPostgresFunc = db.InitPostgres
	initRedisFunc    = cache.InitRedis
	initTracerFunc   = tracing.InitTracer
	newRegistryFunc  = func() prometheus.Registerer { return prometheus.DefaultRegisterer }
	newCoreFunc      = app.NewCore
	newOperatorsFunc = func(pool repository.PgxPool, tracer trace.Tracer) operatorDirectory {
		return repository.NewOperatorRepository(pool, tracer)
	}
	newSSHServerFunc = func(addr, hostKeyPath string, auth ssh.PublicKeyHandler, handler bubbletea.Handler) (*ssh.Server, error) {
		return wish.NewServer(
			wish.WithAddress(addr),
			wish.WithHostKeyPath(hostKeyPath),
			wish.WithPublicKeyAuth(auth),
			wish.WithMiddleware(
				bubbletea.Middleware(handler),
				activeterm.Middleware(),
				logging.Middleware(),
			),
		)
	}
	startSSHServerFunc    = func(srv *ssh.Server) error { return srv.ListenAndServe() }
	shutdownSSHServerFunc = func(srv *ssh.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	setupSignalNotify     = ossignal.Notify
	waitForSignalFunc     = func(quit <-chan os.Signal) { <-quit }
)

func main() {
	loadEnvFunc()
	cfg := loadConfigFunc()
	setupLoggerFunc(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	var (
		pool      repository.PgxPool
		operators operatorDirectory
	)
	if db.Pool != nil {
		pool = db.Pool
		operators = newOperatorsFunc(pool, tracer)
	} else {
		log.Warn().Msg("no database pool, any SSH key is accepted and the SSH username becomes the operator")
	}
	var rdb redis.Cmdable
	if cache.Client != nil {
		rdb = cache.Client
	}
	core := newCoreFunc(cfg, tracer, pool, rdb, newRegistryFunc())

	services := tui.Services{
		Prices:    core.Prices,
		Scores:    core.Fusion,
		Execution: core.Execution,
		Symbols:   cfg.SnapshotSymbols,
		Horizon:   cfg.AlertHorizon,
	}

	addr := net.JoinHostPort(cfg.SSHBind, strconv.Itoa(cfg.SSHPort))
	srv, err := newSSHServerFunc(addr, cfg.SSHHostKeyPath, publicKeyHandler(operators), sessionHandler(services))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create SSH server")
	}

	go func() {
		log.Info().Str("addr", addr).Msg("SSH server listening")
		if err := startSSHServerFunc(srv); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ssh listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info().Msg("Shutting down SSH server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := shutdownSSHServerFunc(srv, shutdownCtx); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
		log.Fatal().Err(err).Msg("SSH server forced to shutdown")
	}
}

func publicKeyHandler(operators operatorDirectory) ssh.PublicKeyHandler {
	return func(ctx ssh.Context, key ssh.PublicKey) bool {
		username, ok := authorize(ctx, operators, gossh.FingerprintSHA256(key), ctx.User())
		if ok {
			ctx.SetValue(operatorCtxKey{}, username)
		}
		return ok
	}
}

// authorize returns the operator username for a key fingerprint. Without a
// directory every key is accepted under the SSH login name.
func authorize(ctx context.Context, operators operatorDirectory, fingerprint, sshUser string) (string, bool) {
	if operators == nil {
		return sshUser, true
	}
	op, err := operators.FindByFingerprint(ctx, fingerprint)
	if err != nil {
		log.Error().Err(err).Str("fingerprint", fingerprint).Msg("operator lookup failed")
		return "", false
	}
	if op == nil {
		log.Warn().Str("fingerprint", fingerprint).Str("user", sshUser).Msg("rejected unknown SSH key")
		return "", false
	}
	if err := operators.TouchLogin(ctx, op.ID); err != nil {
		log.Warn().Err(err).Int64("operator_id", op.ID).Msg("failed to record login")
	}
	return op.Username, true
}

func sessionHandler(base tui.Services) bubbletea.Handler {
	return func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
		svc := base
		if op, ok := s.Context().Value(operatorCtxKey{}).(string); ok {
			svc.Operator = op
		}
		return tui.NewAppModel(svc), []tea.ProgramOption{tea.WithAltScreen()}
	}
}
