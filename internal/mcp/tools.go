package mcp

import (
	"context"
	"fmt"

	"strategy-desk/internal/service"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerTools(server *mcp.Server, svc Services) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "prices_get",
		Description: "Get current prices for up to 25 trading pairs. Pairs with no price are listed under missing.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in pricesGetInput) (*mcp.CallToolResult, pricesGetOutput, error) {
		if svc.Prices == nil {
			return nil, pricesGetOutput{}, fmt.Errorf("price service unavailable")
		}
		symbols, err := normalizeSymbols(in.Symbols)
		if err != nil {
			return nil, pricesGetOutput{}, err
		}
		result, err := svc.Prices.GetPrices(ctx, symbols)
		if err != nil {
			return nil, pricesGetOutput{}, err
		}
		return nil, pricesGetOutput{Prices: result.Prices, Missing: result.Missing}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "prices_get_cached",
		Description: "Get the cached price for one pair without calling the exchange",
	}, func(_ context.Context, _ *mcp.CallToolRequest, in pricesGetCachedInput) (*mcp.CallToolResult, pricesGetCachedOutput, error) {
		if svc.Prices == nil {
			return nil, pricesGetCachedOutput{}, fmt.Errorf("price service unavailable")
		}
		symbol, err := normalizeSymbol(in.Symbol)
		if err != nil {
			return nil, pricesGetCachedOutput{}, err
		}
		q, ok := svc.Prices.GetCached(symbol)
		if !ok {
			return nil, pricesGetCachedOutput{Found: false}, nil
		}
		return nil, pricesGetCachedOutput{Found: true, Quote: &q}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "fusion_score",
		Description: "Combine recent live signals for a pair into one score between -100 and 100",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in fusionScoreInput) (*mcp.CallToolResult, fusionScoreOutput, error) {
		if svc.Fusion == nil {
			return nil, fusionScoreOutput{}, fmt.Errorf("fusion service unavailable")
		}
		score, err := svc.Fusion.Score(ctx, service.FusionQuery{
			Symbol:     in.Symbol,
			StrategyID: in.StrategyID,
			Side:       in.Side,
			Horizon:    in.Horizon,
		})
		if err != nil {
			return nil, fusionScoreOutput{}, err
		}
		return nil, fusionScoreOutput{Result: score.FusedSignalResult, Degraded: score.Degraded}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "execution_classify",
		Description: "Classify a trade intent into authority, intent and target and resolve its ledger user id",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in executionClassifyInput) (*mcp.CallToolResult, executionClassifyOutput, error) {
		if svc.Execution == nil {
			return nil, executionClassifyOutput{}, fmt.Errorf("execution service unavailable")
		}
		// MCP sessions carry no end-user identity.
		decision, err := svc.Execution.Decide(ctx, in.intent(), "")
		if err != nil {
			return nil, executionClassifyOutput{}, err
		}
		return nil, decisionOutput(decision), nil
	})
}
