package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"strategy-desk/internal/domain"

	"github.com/rs/zerolog/log"
)

type Config struct {
	TelegramBotToken string
	DatabaseURL      string
	RedisURL         string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string

	TickerBaseURL       string
	PriceCacheTTL       time.Duration
	PriceSymbolSpacing  time.Duration
	PriceMaxConcurrent  int
	PriceMaxAttempts    int
	PriceBackoffBase    time.Duration
	PriceBackoffMax     time.Duration
	PriceRequestTimeout time.Duration

	SnapshotPollSecs int
	SnapshotSymbols  []string

	FusionScoreScale    float64
	AlertScoreThreshold float64
	AlertStrategyID     string
	AlertHorizon        domain.Horizon
	AlertPollSecs       int

	MCPTransport          string
	MCPHTTPEnabled        bool
	MCPHTTPBind           string
	MCPHTTPPort           int
	MCPAuthToken          string
	MCPRequestTimeoutSecs int
	MCPRateLimitPerMin    int

	SSHBind        string
	SSHPort        int
	SSHHostKeyPath string

	OTLPEndpoint string
}

func Load() *Config {
	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		MCPAuthToken:     os.Getenv("MCP_AUTH_TOKEN"),
		AlertStrategyID:  strings.TrimSpace(os.Getenv("ALERT_STRATEGY_ID")),
		OTLPEndpoint:     strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
	}

	if cfg.TelegramBotToken == "" {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN not set")
	}
	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Warn().Msg("REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}

	cfg.HTTPAddr = httpAddr(os.Getenv("PORT"))

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT")))
	if cfg.LogFormat != "console" {
		cfg.LogFormat = "json"
	}

	cfg.TickerBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("TICKER_BASE_URL")), "/")
	if cfg.TickerBaseURL == "" {
		cfg.TickerBaseURL = "https://api.exchange.coinbase.com"
	}

	cfg.PriceCacheTTL = envMillis("PRICE_CACHE_TTL_MS", 10*time.Second)
	cfg.PriceSymbolSpacing = envMillis("PRICE_SYMBOL_SPACING_MS", 1200*time.Millisecond)
	cfg.PriceMaxConcurrent = envPositiveInt("PRICE_MAX_CONCURRENT", 2)
	cfg.PriceMaxAttempts = envPositiveInt("PRICE_MAX_ATTEMPTS", 3)
	cfg.PriceBackoffBase = envMillis("PRICE_BACKOFF_BASE_MS", 2*time.Second)
	cfg.PriceBackoffMax = envMillis("PRICE_BACKOFF_MAX_MS", 10*time.Second)
	cfg.PriceRequestTimeout = envMillis("PRICE_REQUEST_TIMEOUT_MS", 5*time.Second)
	if cfg.PriceBackoffMax < cfg.PriceBackoffBase {
		log.Warn().
			Dur("base", cfg.PriceBackoffBase).
			Dur("max", cfg.PriceBackoffMax).
			Msg("PRICE_BACKOFF_MAX_MS below base, using base as cap")
		cfg.PriceBackoffMax = cfg.PriceBackoffBase
	}

	cfg.SnapshotPollSecs = envPositiveInt("SNAPSHOT_POLL_SECS", 60)
	cfg.SnapshotSymbols = parseSymbols(os.Getenv("SNAPSHOT_SYMBOLS"))

	cfg.FusionScoreScale = 20
	if v := strings.TrimSpace(os.Getenv("FUSION_SCORE_SCALE")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			cfg.FusionScoreScale = n
		}
	}

	cfg.AlertScoreThreshold = 60
	if v := strings.TrimSpace(os.Getenv("ALERT_SCORE_THRESHOLD")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 && n <= 100 {
			cfg.AlertScoreThreshold = n
		}
	}

	cfg.AlertHorizon = domain.Horizon(strings.TrimSpace(os.Getenv("ALERT_HORIZON")))
	if !cfg.AlertHorizon.IsValid() {
		cfg.AlertHorizon = domain.Horizon1h
	}
	cfg.AlertPollSecs = envPositiveInt("ALERT_POLL_SECS", 300)

	cfg.MCPTransport = strings.ToLower(strings.TrimSpace(os.Getenv("MCP_TRANSPORT")))
	if cfg.MCPTransport == "" {
		cfg.MCPTransport = "stdio"
	}
	if cfg.MCPTransport != "stdio" && cfg.MCPTransport != "http" {
		log.Warn().Str("transport", cfg.MCPTransport).Msg("unsupported MCP_TRANSPORT, defaulting to stdio")
		cfg.MCPTransport = "stdio"
	}

	cfg.MCPHTTPEnabled = strings.EqualFold(strings.TrimSpace(os.Getenv("MCP_HTTP_ENABLED")), "true")

	cfg.MCPHTTPBind = strings.TrimSpace(os.Getenv("MCP_HTTP_BIND"))
	if cfg.MCPHTTPBind == "" {
		cfg.MCPHTTPBind = "127.0.0.1"
	}
	cfg.MCPHTTPPort = envPositiveInt("MCP_HTTP_PORT", 8090)
	cfg.MCPRequestTimeoutSecs = envPositiveInt("MCP_REQUEST_TIMEOUT_SECS", 5)
	cfg.MCPRateLimitPerMin = envPositiveInt("MCP_RATE_LIMIT_PER_MIN", 60)

	cfg.SSHBind = strings.TrimSpace(os.Getenv("SSH_BIND"))
	if cfg.SSHBind == "" {
		cfg.SSHBind = "0.0.0.0"
	}
	cfg.SSHPort = envPositiveInt("SSH_PORT", 2222)
	cfg.SSHHostKeyPath = strings.TrimSpace(os.Getenv("SSH_HOST_KEY_PATH"))
	if cfg.SSHHostKeyPath == "" {
		cfg.SSHHostKeyPath = ".ssh/id_ed25519"
	}

	return cfg
}

func httpAddr(port string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		return ":8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func envPositiveInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid integer, using default")
		return fallback
	}
	return n
}

func envMillis(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid millisecond value, using default")
		return fallback
	}
	return time.Duration(n) * time.Millisecond
}

func parseSymbols(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return append([]string(nil), domain.SupportedSymbols...)
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		symbol := domain.NormalizeSymbol(part)
		if symbol == "" {
			continue
		}
		if _, ok := seen[symbol]; ok {
			continue
		}
		seen[symbol] = struct{}{}
		out = append(out, symbol)
	}
	if len(out) == 0 {
		return append([]string(nil), domain.SupportedSymbols...)
	}
	return out
}
