package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"strategy-desk/internal/domain"
	"strategy-desk/internal/service"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerResources(server *mcp.Server, svc Services) {
	server.AddResource(&mcp.Resource{
		URI:         "market://supported-symbols",
		Name:        "supported-symbols",
		Description: "Trading pairs quoted by default",
		MIMEType:    "application/json",
	}, func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return jsonResource(req.Params.URI, domain.SupportedSymbols)
	})

	server.AddResource(&mcp.Resource{
		URI:         "market://horizons",
		Name:        "horizons",
		Description: "Fusion horizons and their signal lookback windows",
		MIMEType:    "application/json",
	}, func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		type horizon struct {
			Horizon  domain.Horizon `json:"horizon"`
			Lookback string         `json:"lookback"`
		}
		out := make([]horizon, 0, len(domain.SupportedHorizons))
		for _, h := range domain.SupportedHorizons {
			out = append(out, horizon{Horizon: h, Lookback: h.Lookback().String()})
		}
		return jsonResource(req.Params.URI, out)
	})

	server.AddResource(&mcp.Resource{
		URI:         "signals://registry",
		Name:        "signal-registry",
		Description: "Registered signal types with default weights, bounds and direction hints",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if svc.Fusion == nil {
			return nil, fmt.Errorf("fusion service unavailable")
		}
		entries, err := svc.Fusion.Registry(ctx)
		if err != nil {
			return nil, err
		}
		return jsonResource(req.Params.URI, registryOutput{Entries: entries})
	})

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "prices://symbol/{symbol}",
		Name:        "price-by-symbol",
		Description: "Current price for one trading pair",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if svc.Prices == nil {
			return nil, fmt.Errorf("price service unavailable")
		}

		parsed, err := url.Parse(req.Params.URI)
		if err != nil {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		if parsed.Scheme != "prices" || parsed.Host != "symbol" {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}

		symbol, err := normalizeSymbol(strings.Trim(strings.TrimSpace(parsed.Path), "/"))
		if err != nil {
			return nil, err
		}

		result, err := svc.Prices.GetPrices(ctx, []string{symbol})
		if err != nil {
			return nil, err
		}
		q, ok := result.Prices[symbol]
		if !ok {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		return jsonResource(req.Params.URI, q)
	})

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "fusion://{symbol}{?horizon,strategy_id}",
		Name:        "fusion-score",
		Description: "Fused signal score for a pair; optional horizon and strategy_id query params",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if svc.Fusion == nil {
			return nil, fmt.Errorf("fusion service unavailable")
		}

		parsed, err := url.Parse(req.Params.URI)
		if err != nil {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		if parsed.Scheme != "fusion" || parsed.Host == "" {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}

		score, err := svc.Fusion.Score(ctx, service.FusionQuery{
			Symbol:     parsed.Host,
			StrategyID: parsed.Query().Get("strategy_id"),
			Horizon:    parsed.Query().Get("horizon"),
		})
		if err != nil {
			return nil, err
		}
		return jsonResource(req.Params.URI, fusionScoreOutput{Result: score.FusedSignalResult, Degraded: score.Degraded})
	})
}

func jsonResource(uri string, payload any) (*mcp.ReadResourceResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(body),
		}},
	}, nil
}
