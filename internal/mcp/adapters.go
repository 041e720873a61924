package mcp

import (
	"context"

	"strategy-desk/internal/domain"
	"strategy-desk/internal/service"
)

// PriceReader resolves quotes through the price bus.
type PriceReader interface {
	GetPrices(ctx context.Context, symbols []string) (service.PriceResult, error)
	GetCached(symbol string) (domain.Quote, bool)
}

// FusionScorer computes fused scores and exposes the signal registry.
type FusionScorer interface {
	Score(ctx context.Context, q service.FusionQuery) (service.FusionScore, error)
	Registry(ctx context.Context) ([]domain.SignalRegistryEntry, error)
}

// ExecutionDecider classifies trade intents.
type ExecutionDecider interface {
	Decide(ctx context.Context, intent service.TradeIntent, authUserID string) (service.Decision, error)
}

// Services groups the backends exposed over MCP. Any of them may be nil.
type Services struct {
	Prices    PriceReader
	Fusion    FusionScorer
	Execution ExecutionDecider
}
