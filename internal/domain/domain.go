package domain

import (
	"fmt"
	"strings"
	"time"
)

// WildcardSymbol marks signals that apply to every symbol.
const WildcardSymbol = "ALL"

var SupportedSymbols = []string{
	"BTC-EUR", "ETH-EUR", "SOL-EUR", "XRP-EUR", "ADA-EUR",
	"AVAX-EUR", "DOT-EUR", "LINK-EUR", "LTC-EUR", "BCH-EUR",
}

var supportedSymbolSet = func() map[string]struct{} {
	out := make(map[string]struct{}, len(SupportedSymbols))
	for _, s := range SupportedSymbols {
		out[s] = struct{}{}
	}
	return out
}()

// NormalizeSymbol upper-cases and trims a trading pair.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func IsSupportedSymbol(symbol string) bool {
	_, ok := supportedSymbolSet[NormalizeSymbol(symbol)]
	return ok
}

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// ParseSide accepts buy/sell in any case. An empty string yields an empty side.
func ParseSide(raw string) (Side, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	side := Side(strings.ToUpper(raw))
	if !side.IsValid() {
		return "", fmt.Errorf("invalid side %q", raw)
	}
	return side, nil
}

type Horizon string

const (
	Horizon15m Horizon = "15m"
	Horizon1h  Horizon = "1h"
	Horizon4h  Horizon = "4h"
	Horizon24h Horizon = "24h"
)

var SupportedHorizons = []Horizon{Horizon15m, Horizon1h, Horizon4h, Horizon24h}

// Lookback is the signal window scanned for a horizon. Unknown horizons use the 1h window.
func (h Horizon) Lookback() time.Duration {
	switch h {
	case Horizon15m:
		return 30 * time.Minute
	case Horizon4h:
		return 8 * time.Hour
	case Horizon24h:
		return 48 * time.Hour
	default:
		return 2 * time.Hour
	}
}

func (h Horizon) IsValid() bool {
	for _, supported := range SupportedHorizons {
		if h == supported {
			return true
		}
	}
	return false
}

// ParseHorizon defaults an empty value to 1h and rejects anything unsupported.
func ParseHorizon(raw string) (Horizon, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return Horizon1h, nil
	}
	h := Horizon(raw)
	if !h.IsValid() {
		return "", fmt.Errorf("invalid horizon %q", raw)
	}
	return h, nil
}

type DirectionHint string

const (
	DirectionBullish    DirectionHint = "bullish"
	DirectionBearish    DirectionHint = "bearish"
	DirectionSymmetric  DirectionHint = "symmetric"
	DirectionContextual DirectionHint = "contextual"
)

// Multiplier is -1 for bearish signals and +1 otherwise. Symmetric and contextual
// signals carry their sign in the strength itself.
func (d DirectionHint) Multiplier() float64 {
	if d == DirectionBearish {
		return -1
	}
	return 1
}

// Signal is an immutable market observation written by an external collector.
type Signal struct {
	ID         int64     `json:"id"`
	Symbol     string    `json:"symbol"`
	SignalType string    `json:"signal_type"`
	Source     string    `json:"source"`
	Strength   float64   `json:"signal_strength"`
	Timestamp  time.Time `json:"timestamp"`
}

type SignalRegistryEntry struct {
	Key           string        `json:"key"`
	Category      string        `json:"category"`
	DefaultWeight float64       `json:"default_weight"`
	MinWeight     float64       `json:"min_weight"`
	MaxWeight     float64       `json:"max_weight"`
	DirectionHint DirectionHint `json:"direction_hint"`
	IsEnabled     bool          `json:"is_enabled"`
}

// StrategySignalWeight overrides the registry default for one strategy.
// A nil Weight keeps the registry default.
type StrategySignalWeight struct {
	StrategyID string   `json:"strategy_id"`
	SignalKey  string   `json:"signal_key"`
	Weight     *float64 `json:"weight,omitempty"`
	IsEnabled  bool     `json:"is_enabled"`
}

type SignalDetail struct {
	SignalID           int64         `json:"signal_id"`
	SignalType         string        `json:"signal_type"`
	Source             string        `json:"source"`
	RawStrength        float64       `json:"raw_strength"`
	NormalizedStrength float64       `json:"normalized_strength"`
	Weight             float64       `json:"weight"`
	DirectionHint      DirectionHint `json:"direction_hint"`
	Contribution       float64       `json:"contribution"`
	Timestamp          time.Time     `json:"timestamp"`
}

// FusedSignalResult is derived on demand and never persisted.
type FusedSignalResult struct {
	Symbol         string         `json:"symbol"`
	StrategyID     string         `json:"strategy_id"`
	Side           Side           `json:"side,omitempty"`
	Horizon        Horizon        `json:"horizon"`
	FusedScore     float64        `json:"fused_score"`
	Details        []SignalDetail `json:"details"`
	TotalSignals   int            `json:"total_signals"`
	EnabledSignals int            `json:"enabled_signals"`
	ComputedAt     time.Time      `json:"computed_at"`
}

// QuoteSource tells where a price came from.
type QuoteSource string

const (
	QuoteSourceLive     QuoteSource = "live"
	QuoteSourceCache    QuoteSource = "cache"
	QuoteSourceSnapshot QuoteSource = "snapshot"
)

// Quote is a resolved price. Bid, Ask and Volume are set only for live readings.
type Quote struct {
	Symbol    string      `json:"symbol"`
	Price     float64     `json:"price"`
	Bid       *float64    `json:"bid,omitempty"`
	Ask       *float64    `json:"ask,omitempty"`
	Volume    *float64    `json:"volume,omitempty"`
	Timestamp time.Time   `json:"ts"`
	CachedAt  time.Time   `json:"cached_at"`
	Source    QuoteSource `json:"source"`
}

// PriceSnapshot is a persisted ticker reading used as the price fallback.
type PriceSnapshot struct {
	ID        int64     `json:"id"`
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Bid       *float64  `json:"bid,omitempty"`
	Ask       *float64  `json:"ask,omitempty"`
	Volume    *float64  `json:"volume,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
