package service

import (
	"context"
	"fmt"

	"strategy-desk/internal/execution"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type StrategyTargetReader interface {
	GetExecutionTarget(ctx context.Context, strategyID string) (string, error)
}

// TradeIntent is a trade request as submitted by a client or the strategy runner.
type TradeIntent struct {
	Source                  string             `json:"source"`
	StrategyID              string             `json:"strategy_id,omitempty"`
	UserID                  string             `json:"user_id,omitempty"`
	Metadata                execution.Metadata `json:"metadata"`
	StrategyExecutionTarget string             `json:"strategy_execution_target,omitempty"`
}

type Decision struct {
	Classification   execution.Class `json:"classification"`
	UserID           string          `json:"user_id"`
	IsSystemOperator bool            `json:"is_system_operator"`
	IsMockExecution  bool            `json:"is_mock_execution"`
	IsManualTrade    bool            `json:"is_manual_trade"`
}

type ExecutionService struct {
	tracer     trace.Tracer
	strategies StrategyTargetReader
}

// NewExecutionService builds the trade decision coordinator. strategies may be nil.
func NewExecutionService(tracer trace.Tracer, strategies StrategyTargetReader) *ExecutionService {
	return &ExecutionService{tracer: tracer, strategies: strategies}
}

// Decide classifies intent and resolves its ledger owner. The only error it
// returns besides validation is execution.ErrIdentityUnresolvable.
func (s *ExecutionService) Decide(ctx context.Context, intent TradeIntent, authUserID string) (Decision, error) {
	ctx, span := s.tracer.Start(ctx, "execution-service.decide")
	defer span.End()

	strategyID, err := normalizeStrategyID(intent.StrategyID)
	if err != nil {
		return Decision{}, err
	}

	in := execution.Input{
		Source:                  intent.Source,
		Metadata:                intent.Metadata,
		StrategyExecutionTarget: execution.ParseTarget(intent.StrategyExecutionTarget),
	}
	if in.StrategyExecutionTarget == nil && strategyID != "" {
		in.StrategyExecutionTarget = s.lookupTarget(ctx, strategyID)
	}

	class := execution.Derive(in)
	span.SetAttributes(
		attribute.String("authority", string(class.Authority)),
		attribute.String("intent", string(class.Intent)),
		attribute.String("target", string(class.Target)),
	)

	userID, err := execution.ResolveUserID(class, authUserID, intent.UserID)
	if err != nil {
		return Decision{}, fmt.Errorf("decide trade: %w", err)
	}

	return Decision{
		Classification:   class,
		UserID:           userID,
		IsSystemOperator: class.IsSystemOperator(),
		IsMockExecution:  class.IsMockExecution(),
		IsManualTrade:    class.IsManualTrade(),
	}, nil
}

// lookupTarget reads the strategy's configured target. Failures leave the
// target unset so the intent's own flags decide.
func (s *ExecutionService) lookupTarget(ctx context.Context, strategyID string) *execution.Target {
	if s.strategies == nil {
		return nil
	}
	raw, err := s.strategies.GetExecutionTarget(ctx, strategyID)
	if err != nil {
		log.Warn().Err(err).Str("strategy_id", strategyID).Msg("strategy target lookup failed")
		return nil
	}
	return execution.ParseTarget(raw)
}
