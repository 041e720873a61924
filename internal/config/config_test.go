package config

import (
	"reflect"
	"testing"
	"time"

	"strategy-desk/internal/domain"
)

var configKeys = []string{
	"TELEGRAM_BOT_TOKEN", "DATABASE_URL", "REDIS_URL", "PORT", "LOG_LEVEL", "LOG_FORMAT",
	"TICKER_BASE_URL", "PRICE_CACHE_TTL_MS", "PRICE_SYMBOL_SPACING_MS", "PRICE_MAX_CONCURRENT",
	"PRICE_MAX_ATTEMPTS", "PRICE_BACKOFF_BASE_MS", "PRICE_BACKOFF_MAX_MS", "PRICE_REQUEST_TIMEOUT_MS",
	"SNAPSHOT_POLL_SECS", "SNAPSHOT_SYMBOLS", "FUSION_SCORE_SCALE", "ALERT_SCORE_THRESHOLD",
	"ALERT_STRATEGY_ID", "ALERT_HORIZON", "ALERT_POLL_SECS",
	"MCP_TRANSPORT", "MCP_HTTP_ENABLED", "MCP_HTTP_BIND", "MCP_HTTP_PORT", "MCP_AUTH_TOKEN",
	"MCP_REQUEST_TIMEOUT_SECS", "MCP_RATE_LIMIT_PER_MIN",
	"SSH_BIND", "SSH_PORT", "SSH_HOST_KEY_PATH", "OTEL_EXPORTER_OTLP_ENDPOINT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	if cfg.RedisURL != "localhost:6379" {
		t.Fatalf("expected default redis url, got %s", cfg.RedisURL)
	}
	if cfg.HTTPAddr != ":8080" || cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Fatalf("unexpected server defaults: %+v", cfg)
	}
	if cfg.TickerBaseURL != "https://api.exchange.coinbase.com" {
		t.Fatalf("unexpected ticker url: %s", cfg.TickerBaseURL)
	}
	if cfg.PriceCacheTTL != 10*time.Second || cfg.PriceSymbolSpacing != 1200*time.Millisecond {
		t.Fatalf("unexpected price cache defaults: ttl=%s spacing=%s", cfg.PriceCacheTTL, cfg.PriceSymbolSpacing)
	}
	if cfg.PriceMaxConcurrent != 2 || cfg.PriceMaxAttempts != 3 {
		t.Fatalf("unexpected price concurrency defaults: %+v", cfg)
	}
	if cfg.PriceBackoffBase != 2*time.Second || cfg.PriceBackoffMax != 10*time.Second || cfg.PriceRequestTimeout != 5*time.Second {
		t.Fatalf("unexpected price backoff defaults: %+v", cfg)
	}
	if cfg.SnapshotPollSecs != 60 || !reflect.DeepEqual(cfg.SnapshotSymbols, domain.SupportedSymbols) {
		t.Fatalf("unexpected snapshot defaults: %+v", cfg)
	}
	if cfg.FusionScoreScale != 20 || cfg.AlertScoreThreshold != 60 || cfg.AlertHorizon != domain.Horizon1h || cfg.AlertPollSecs != 300 {
		t.Fatalf("unexpected fusion defaults: %+v", cfg)
	}
	if cfg.MCPTransport != "stdio" {
		t.Fatalf("expected default MCP transport stdio, got %s", cfg.MCPTransport)
	}
	if cfg.MCPHTTPBind != "127.0.0.1" || cfg.MCPHTTPPort != 8090 {
		t.Fatalf("unexpected MCP http defaults: %s:%d", cfg.MCPHTTPBind, cfg.MCPHTTPPort)
	}
	if cfg.MCPRequestTimeoutSecs != 5 || cfg.MCPRateLimitPerMin != 60 {
		t.Fatalf("unexpected MCP defaults: timeout=%d rate=%d", cfg.MCPRequestTimeoutSecs, cfg.MCPRateLimitPerMin)
	}
	if cfg.SSHBind != "0.0.0.0" || cfg.SSHPort != 2222 || cfg.SSHHostKeyPath != ".ssh/id_ed25519" {
		t.Fatalf("unexpected SSH defaults: %+v", cfg)
	}
}

func TestLoadWithEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis:6379")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("TICKER_BASE_URL", "http://ticker.local/")
	t.Setenv("PRICE_CACHE_TTL_MS", "500")
	t.Setenv("PRICE_SYMBOL_SPACING_MS", "50")
	t.Setenv("PRICE_MAX_CONCURRENT", "4")
	t.Setenv("PRICE_MAX_ATTEMPTS", "5")
	t.Setenv("PRICE_BACKOFF_BASE_MS", "100")
	t.Setenv("PRICE_BACKOFF_MAX_MS", "400")
	t.Setenv("SNAPSHOT_SYMBOLS", "btc-eur, eth-eur,BTC-EUR,")
	t.Setenv("FUSION_SCORE_SCALE", "25")
	t.Setenv("ALERT_SCORE_THRESHOLD", "40")
	t.Setenv("ALERT_HORIZON", "4h")
	t.Setenv("MCP_TRANSPORT", "http")
	t.Setenv("MCP_HTTP_ENABLED", "true")
	t.Setenv("MCP_HTTP_PORT", "9191")
	t.Setenv("MCP_AUTH_TOKEN", "secret")

	cfg := Load()
	if cfg.TelegramBotToken != "token" || cfg.DatabaseURL != "postgres://example" || cfg.RedisURL != "redis:6379" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.HTTPAddr != ":9090" || cfg.LogFormat != "console" {
		t.Fatalf("unexpected server config: %+v", cfg)
	}
	if cfg.TickerBaseURL != "http://ticker.local" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.TickerBaseURL)
	}
	if cfg.PriceCacheTTL != 500*time.Millisecond || cfg.PriceSymbolSpacing != 50*time.Millisecond {
		t.Fatalf("unexpected price timings: %+v", cfg)
	}
	if cfg.PriceMaxConcurrent != 4 || cfg.PriceMaxAttempts != 5 || cfg.PriceBackoffBase != 100*time.Millisecond || cfg.PriceBackoffMax != 400*time.Millisecond {
		t.Fatalf("unexpected price retry config: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.SnapshotSymbols, []string{"BTC-EUR", "ETH-EUR"}) {
		t.Fatalf("unexpected snapshot symbols: %+v", cfg.SnapshotSymbols)
	}
	if cfg.FusionScoreScale != 25 || cfg.AlertScoreThreshold != 40 || cfg.AlertHorizon != domain.Horizon4h {
		t.Fatalf("unexpected fusion config: %+v", cfg)
	}
	if cfg.MCPTransport != "http" || !cfg.MCPHTTPEnabled || cfg.MCPHTTPPort != 9191 || cfg.MCPAuthToken != "secret" {
		t.Fatalf("unexpected MCP config: %+v", cfg)
	}

	t.Setenv("PRICE_CACHE_TTL_MS", "bad")
	t.Setenv("PRICE_MAX_CONCURRENT", "-1")
	t.Setenv("PRICE_BACKOFF_MAX_MS", "10")
	t.Setenv("FUSION_SCORE_SCALE", "bad")
	t.Setenv("ALERT_SCORE_THRESHOLD", "500")
	t.Setenv("ALERT_HORIZON", "2h")
	t.Setenv("MCP_TRANSPORT", "grpc")
	t.Setenv("MCP_HTTP_PORT", "bad")
	cfg = Load()
	if cfg.PriceCacheTTL != 10*time.Second || cfg.PriceMaxConcurrent != 2 {
		t.Fatalf("invalid price values should fall back to defaults: %+v", cfg)
	}
	if cfg.PriceBackoffMax != cfg.PriceBackoffBase {
		t.Fatalf("expected backoff cap raised to base, got base=%s max=%s", cfg.PriceBackoffBase, cfg.PriceBackoffMax)
	}
	if cfg.FusionScoreScale != 20 || cfg.AlertScoreThreshold != 60 || cfg.AlertHorizon != domain.Horizon1h {
		t.Fatalf("invalid fusion values should fall back to defaults: %+v", cfg)
	}
	if cfg.MCPTransport != "stdio" || cfg.MCPHTTPPort != 8090 {
		t.Fatalf("invalid MCP values should fall back to defaults: %+v", cfg)
	}
}

func TestHTTPAddr(t *testing.T) {
	cases := map[string]string{"": ":8080", "9090": ":9090", ":7070": ":7070"}
	for in, want := range cases {
		if got := httpAddr(in); got != want {
			t.Fatalf("httpAddr(%q): expected %s, got %s", in, want, got)
		}
	}
}
