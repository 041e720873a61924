// Package fusion combines time-windowed signal records into one bounded
// directional score per symbol and strategy.
package fusion

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"strategy-desk/internal/domain"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultScale maps summed contributions (weights in [0,3], strengths in [0,1]) onto the score range.
	DefaultScale = 20.0
	MaxScore     = 100.0
	MinScore     = -100.0
)

// ErrLookupFailed marks a result that was zeroed because a lookup failed,
// as opposed to a window that genuinely had no signals.
var ErrLookupFailed = errors.New("fusion lookup failed")

type SignalSource interface {
	// ListSignalsSince returns signals for symbol or the wildcard symbol newer than cutoff, newest first.
	ListSignalsSince(ctx context.Context, symbol string, cutoff time.Time) ([]domain.Signal, error)
}

type RegistrySource interface {
	GetRegistryEntries(ctx context.Context, keys []string) (map[string]domain.SignalRegistryEntry, error)
	GetStrategyWeights(ctx context.Context, strategyID string, keys []string) (map[string]domain.StrategySignalWeight, error)
}

type Request struct {
	Symbol     string
	StrategyID string
	Side       domain.Side
	Horizon    domain.Horizon
	Now        time.Time
}

type Engine struct {
	signals  SignalSource
	registry RegistrySource
	scale    float64
}

func NewEngine(signals SignalSource, registry RegistrySource, scale float64) *Engine {
	if scale <= 0 {
		scale = DefaultScale
	}
	return &Engine{signals: signals, registry: registry, scale: scale}
}

// Compute always returns a usable result. The error is non-nil only when a
// lookup failed, in which case the result is the zero score for the request.
func (e *Engine) Compute(ctx context.Context, req Request) (domain.FusedSignalResult, error) {
	if req.Now.IsZero() {
		req.Now = time.Now().UTC()
	}
	result := emptyResult(req)

	if e.signals == nil || e.registry == nil {
		return result, fmt.Errorf("%w: engine not initialized", ErrLookupFailed)
	}

	cutoff := req.Now.Add(-req.Horizon.Lookback())
	signals, err := e.signals.ListSignalsSince(ctx, req.Symbol, cutoff)
	if err != nil {
		log.Warn().Err(err).Str("symbol", req.Symbol).Msg("fusion: signal fetch failed")
		return result, fmt.Errorf("%w: list signals: %w", ErrLookupFailed, err)
	}
	if len(signals) == 0 {
		return result, nil
	}

	keys := distinctTypes(signals)
	entries, err := e.registry.GetRegistryEntries(ctx, keys)
	if err != nil {
		log.Warn().Err(err).Str("symbol", req.Symbol).Msg("fusion: registry lookup failed")
		return result, fmt.Errorf("%w: registry: %w", ErrLookupFailed, err)
	}

	var overrides map[string]domain.StrategySignalWeight
	if req.StrategyID != "" {
		overrides, err = e.registry.GetStrategyWeights(ctx, req.StrategyID, keys)
		if err != nil {
			log.Warn().Err(err).
				Str("symbol", req.Symbol).
				Str("strategy_id", req.StrategyID).
				Msg("fusion: strategy weight lookup failed")
			return result, fmt.Errorf("%w: strategy weights: %w", ErrLookupFailed, err)
		}
	}

	result.TotalSignals = len(signals)
	total := 0.0
	for _, sig := range signals {
		entry, ok := entries[sig.SignalType]
		if !ok {
			log.Warn().Str("signal_type", sig.SignalType).Msg("fusion: no registry entry, skipping signal")
			continue
		}
		if !entry.IsEnabled {
			continue
		}

		weight := entry.DefaultWeight
		if override, ok := overrides[sig.SignalType]; ok {
			if !override.IsEnabled {
				continue
			}
			if override.Weight != nil {
				weight = *override.Weight
			}
		}

		strength := NormalizeStrength(sig.Strength)
		contribution := strength * weight * entry.DirectionHint.Multiplier()
		total += contribution

		result.EnabledSignals++
		result.Details = append(result.Details, domain.SignalDetail{
			SignalID:           sig.ID,
			SignalType:         sig.SignalType,
			Source:             sig.Source,
			RawStrength:        sig.Strength,
			NormalizedStrength: strength,
			Weight:             weight,
			DirectionHint:      entry.DirectionHint,
			Contribution:       contribution,
			Timestamp:          sig.Timestamp,
		})
	}

	result.FusedScore = Clamp(total*e.scale, MinScore, MaxScore)
	return result, nil
}

// NormalizeStrength maps a 0-1 or 0-100 strength onto [0,1].
func NormalizeStrength(raw float64) float64 {
	if math.IsNaN(raw) {
		return 0
	}
	if raw <= 1 {
		return Clamp(raw, 0, 1)
	}
	return Clamp(raw/100, 0, 1)
}

func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, v))
}

func emptyResult(req Request) domain.FusedSignalResult {
	return domain.FusedSignalResult{
		Symbol:     req.Symbol,
		StrategyID: req.StrategyID,
		Side:       req.Side,
		Horizon:    req.Horizon,
		Details:    []domain.SignalDetail{},
		ComputedAt: req.Now,
	}
}

func distinctTypes(signals []domain.Signal) []string {
	seen := make(map[string]struct{}, len(signals))
	keys := make([]string, 0, len(signals))
	for _, s := range signals {
		if _, ok := seen[s.SignalType]; ok {
			continue
		}
		seen[s.SignalType] = struct{}{}
		keys = append(keys, s.SignalType)
	}
	return keys
}
