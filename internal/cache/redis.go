package cache

import (
	"context"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const defaultRedisAddr = "localhost:6379"

var Client *redis.Client

// InitRedis connects Client from REDIS_URL, which may be a redis:// URL or a
// bare host:port.
func InitRedis(ctx context.Context) {
	opts, err := redisOptions(os.Getenv("REDIS_URL"))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid REDIS_URL")
	}
	Client = redis.NewClient(opts)
	if err := Client.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", opts.Addr).Msg("failed to connect to Redis")
	}
	log.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("Connected to Redis")
}

func redisOptions(raw string) (*redis.Options, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return &redis.Options{Addr: defaultRedisAddr}, nil
	case strings.HasPrefix(raw, "redis://"), strings.HasPrefix(raw, "rediss://"):
		return redis.ParseURL(raw)
	default:
		return &redis.Options{Addr: raw}, nil
	}
}
