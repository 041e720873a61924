package mcp

import (
	"fmt"
	"strings"

	"strategy-desk/internal/domain"
	"strategy-desk/internal/execution"
	"strategy-desk/internal/service"
)

type pricesGetInput struct {
	Symbols []string `json:"symbols,omitempty" jsonschema:"trading pairs such as BTC-EUR; defaults to the supported list, max 25"`
}

type pricesGetOutput struct {
	Prices  map[string]domain.Quote `json:"prices"`
	Missing []string                `json:"missing"`
}

type pricesGetCachedInput struct {
	Symbol string `json:"symbol" jsonschema:"trading pair (e.g. BTC-EUR)"`
}

type pricesGetCachedOutput struct {
	Found bool          `json:"found"`
	Quote *domain.Quote `json:"quote,omitempty"`
}

type fusionScoreInput struct {
	Symbol     string `json:"symbol" jsonschema:"trading pair (e.g. BTC-EUR)"`
	StrategyID string `json:"strategy_id,omitempty" jsonschema:"optional strategy UUID for weight overrides"`
	Horizon    string `json:"horizon,omitempty" jsonschema:"15m, 1h, 4h or 24h; default 1h"`
	Side       string `json:"side,omitempty" jsonschema:"optional BUY or SELL"`
}

type fusionScoreOutput struct {
	Result   domain.FusedSignalResult `json:"result"`
	Degraded bool                     `json:"degraded"`
}

type executionClassifyInput struct {
	Source                  string  `json:"source" jsonschema:"trade source; manual marks hand-placed orders"`
	StrategyID              string  `json:"strategy_id,omitempty" jsonschema:"optional strategy UUID used to look up its execution target"`
	UserID                  string  `json:"user_id,omitempty" jsonschema:"user id the trade is placed for"`
	SystemOperatorMode      *bool   `json:"system_operator_mode,omitempty"`
	Force                   *bool   `json:"force,omitempty"`
	ExecutionWalletID       *string `json:"execution_wallet_id,omitempty"`
	IsTestMode              *bool   `json:"is_test_mode,omitempty"`
	StrategyExecutionTarget string  `json:"strategy_execution_target,omitempty" jsonschema:"optional MOCK or REAL"`
}

type executionClassifyOutput struct {
	Classification   execution.Class `json:"classification"`
	UserID           string          `json:"user_id"`
	IsSystemOperator bool            `json:"is_system_operator"`
	IsMockExecution  bool            `json:"is_mock_execution"`
	IsManualTrade    bool            `json:"is_manual_trade"`
}

type registryOutput struct {
	Entries []domain.SignalRegistryEntry `json:"entries"`
}

// normalizeSymbol accepts BASE-QUOTE pairs in any case.
func normalizeSymbol(symbol string) (string, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return "", fmt.Errorf("symbol is required")
	}
	base, quote, ok := strings.Cut(symbol, "-")
	if !ok || base == "" || quote == "" || strings.Contains(quote, "-") {
		return "", fmt.Errorf("symbol must be a BASE-QUOTE pair: %s", symbol)
	}
	return symbol, nil
}

func normalizeSymbols(symbols []string) ([]string, error) {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if strings.TrimSpace(s) == "" {
			continue
		}
		n, err := normalizeSymbol(s)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (in executionClassifyInput) intent() service.TradeIntent {
	return service.TradeIntent{
		Source:     in.Source,
		StrategyID: in.StrategyID,
		UserID:     in.UserID,
		Metadata: execution.Metadata{
			SystemOperatorMode: in.SystemOperatorMode,
			Force:              in.Force,
			ExecutionWalletID:  in.ExecutionWalletID,
			IsTestMode:         in.IsTestMode,
		},
		StrategyExecutionTarget: in.StrategyExecutionTarget,
	}
}

func decisionOutput(d service.Decision) executionClassifyOutput {
	return executionClassifyOutput{
		Classification:   d.Classification,
		UserID:           d.UserID,
		IsSystemOperator: d.IsSystemOperator,
		IsMockExecution:  d.IsMockExecution,
		IsManualTrade:    d.IsManualTrade,
	}
}
