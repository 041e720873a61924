package tui

import (
	"context"

	"strategy-desk/internal/domain"
	"strategy-desk/internal/service"
)

// PriceQuerier resolves quotes through the price bus.
type PriceQuerier interface {
	GetPrices(ctx context.Context, symbols []string) (service.PriceResult, error)
}

// ScoreQuerier computes fused signal scores.
type ScoreQuerier interface {
	Score(ctx context.Context, q service.FusionQuery) (service.FusionScore, error)
}

// TradeClassifier classifies trade intents on behalf of the session operator.
type TradeClassifier interface {
	Decide(ctx context.Context, intent service.TradeIntent, authUserID string) (service.Decision, error)
}

// Services bundles all service dependencies injected into the TUI.
type Services struct {
	Prices    PriceQuerier
	Scores    ScoreQuerier
	Execution TradeClassifier
	Symbols   []string
	Horizon   domain.Horizon
	// Operator is the authenticated desk username, used as the caller identity
	// for execution classification.
	Operator string
}

func (s Services) symbols() []string {
	if len(s.Symbols) == 0 {
		return domain.SupportedSymbols
	}
	return s.Symbols
}

func (s Services) horizon() domain.Horizon {
	if !s.Horizon.IsValid() {
		return domain.Horizon1h
	}
	return s.Horizon
}
