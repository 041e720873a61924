package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"strategy-desk/internal/domain"
	"strategy-desk/internal/fusion"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type FusionEngine interface {
	Compute(ctx context.Context, req fusion.Request) (domain.FusedSignalResult, error)
}

type RegistryLister interface {
	ListRegistry(ctx context.Context) ([]domain.SignalRegistryEntry, error)
}

type FusionRecorder interface {
	FusionComputed(outcome string)
}

// FusionQuery is the unvalidated input from HTTP, MCP, the bot and the TUI.
type FusionQuery struct {
	Symbol     string
	StrategyID string
	Side       string
	Horizon    string
}

// FusionScore is a fused result plus whether it was zeroed by a failed lookup.
type FusionScore struct {
	domain.FusedSignalResult
	Degraded bool `json:"degraded"`
}

type FusionService struct {
	tracer   trace.Tracer
	engine   FusionEngine
	registry RegistryLister
	recorder FusionRecorder
	now      func() time.Time
}

func NewFusionService(tracer trace.Tracer, engine FusionEngine, registry RegistryLister, recorder FusionRecorder) *FusionService {
	return &FusionService{
		tracer:   tracer,
		engine:   engine,
		registry: registry,
		recorder: recorder,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Score validates q and computes its fused score. Lookup failures are not
// errors: they come back as a zero score with Degraded set.
func (s *FusionService) Score(ctx context.Context, q FusionQuery) (FusionScore, error) {
	ctx, span := s.tracer.Start(ctx, "fusion-service.score")
	defer span.End()

	req, err := s.request(q)
	if err != nil {
		return FusionScore{}, err
	}
	span.SetAttributes(
		attribute.String("symbol", req.Symbol),
		attribute.String("strategy_id", req.StrategyID),
		attribute.String("horizon", string(req.Horizon)),
	)

	if s.engine == nil {
		return FusionScore{}, fmt.Errorf("fusion service is not fully initialized")
	}

	result, err := s.engine.Compute(ctx, req)
	score := FusionScore{FusedSignalResult: result}
	switch {
	case errors.Is(err, fusion.ErrLookupFailed):
		score.Degraded = true
		span.SetStatus(codes.Error, err.Error())
		log.Warn().Err(err).Str("symbol", req.Symbol).Msg("fusion score degraded")
		s.record("degraded")
	case err != nil:
		return FusionScore{}, err
	case result.TotalSignals == 0:
		s.record("empty")
	default:
		s.record("ok")
	}
	span.SetAttributes(attribute.Float64("fused_score", result.FusedScore))
	return score, nil
}

// ScoreSymbols scores each symbol independently. Invalid symbols are skipped.
func (s *FusionService) ScoreSymbols(ctx context.Context, symbols []string, strategyID string, horizon domain.Horizon) []FusionScore {
	ctx, span := s.tracer.Start(ctx, "fusion-service.score-symbols")
	defer span.End()
	span.SetAttributes(attribute.Int("symbols", len(symbols)))

	out := make([]FusionScore, 0, len(symbols))
	for _, symbol := range symbols {
		score, err := s.Score(ctx, FusionQuery{Symbol: symbol, StrategyID: strategyID, Horizon: string(horizon)})
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("skipping fusion score")
			continue
		}
		out = append(out, score)
	}
	return out
}

func (s *FusionService) Registry(ctx context.Context) ([]domain.SignalRegistryEntry, error) {
	ctx, span := s.tracer.Start(ctx, "fusion-service.registry")
	defer span.End()

	if s.registry == nil {
		return nil, fmt.Errorf("%w: signal registry is not configured", ErrUnavailable)
	}
	return s.registry.ListRegistry(ctx)
}

func (s *FusionService) request(q FusionQuery) (fusion.Request, error) {
	symbol := domain.NormalizeSymbol(q.Symbol)
	if symbol == "" || symbol == domain.WildcardSymbol {
		return fusion.Request{}, fmt.Errorf("%w: symbol is required", ErrInvalidInput)
	}
	horizon, err := domain.ParseHorizon(q.Horizon)
	if err != nil {
		return fusion.Request{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	side, err := domain.ParseSide(q.Side)
	if err != nil {
		return fusion.Request{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	strategyID, err := normalizeStrategyID(q.StrategyID)
	if err != nil {
		return fusion.Request{}, err
	}
	return fusion.Request{
		Symbol:     symbol,
		StrategyID: strategyID,
		Side:       side,
		Horizon:    horizon,
		Now:        s.now(),
	}, nil
}

func (s *FusionService) record(outcome string) {
	if s.recorder != nil {
		s.recorder.FusionComputed(outcome)
	}
}

// normalizeStrategyID accepts an empty id or any UUID form and returns the canonical string.
func normalizeStrategyID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: strategy_id must be a UUID", ErrInvalidInput)
	}
	return id.String(), nil
}
