package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"strategy-desk/internal/domain"
	"strategy-desk/internal/service"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/trace"
)

type stubPriceService struct {
	quotes  map[string]domain.Quote
	cached  map[string]domain.Quote
	err     error
	lastReq []string
}

func (s *stubPriceService) GetPrices(ctx context.Context, symbols []string) (service.PriceResult, error) {
	s.lastReq = append([]string(nil), symbols...)
	if s.err != nil {
		return service.PriceResult{}, s.err
	}
	out := service.PriceResult{Prices: map[string]domain.Quote{}, Missing: []string{}}
	for _, sym := range symbols {
		if q, ok := s.quotes[sym]; ok {
			out.Prices[sym] = q
			continue
		}
		out.Missing = append(out.Missing, sym)
	}
	return out, nil
}

func (s *stubPriceService) GetCached(symbol string) (domain.Quote, bool) {
	q, ok := s.cached[symbol]
	return q, ok
}

type stubFusionService struct {
	score     service.FusionScore
	err       error
	entries   []domain.SignalRegistryEntry
	lastQuery service.FusionQuery
}

func (s *stubFusionService) Score(ctx context.Context, q service.FusionQuery) (service.FusionScore, error) {
	s.lastQuery = q
	return s.score, s.err
}

func (s *stubFusionService) Registry(ctx context.Context) ([]domain.SignalRegistryEntry, error) {
	return append([]domain.SignalRegistryEntry(nil), s.entries...), nil
}

func testServer() (*sdkmcp.Server, *stubPriceService, *stubFusionService) {
	return testServerWith(ServerConfig{RequestTimeout: time.Second})
}

func testServerWith(cfg ServerConfig) (*sdkmcp.Server, *stubPriceService, *stubFusionService) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	prices := &stubPriceService{
		quotes: map[string]domain.Quote{
			"BTC-EUR": {Symbol: "BTC-EUR", Price: 64000, Timestamp: ts, Source: domain.QuoteSourceLive},
		},
		cached: map[string]domain.Quote{
			"BTC-EUR": {Symbol: "BTC-EUR", Price: 63990, Timestamp: ts, Source: domain.QuoteSourceLive},
		},
	}
	fusion := &stubFusionService{
		score: service.FusionScore{FusedSignalResult: domain.FusedSignalResult{
			Symbol:         "BTC-EUR",
			Horizon:        domain.Horizon1h,
			FusedScore:     24,
			TotalSignals:   2,
			EnabledSignals: 2,
			Details:        []domain.SignalDetail{},
			ComputedAt:     ts,
		}},
		entries: []domain.SignalRegistryEntry{
			{Key: "rsi", Category: "momentum", DefaultWeight: 1, MinWeight: 0, MaxWeight: 2, DirectionHint: domain.DirectionBullish, IsEnabled: true},
		},
	}
	tracer := trace.NewNoopTracerProvider().Tracer("mcp-test")
	execution := service.NewExecutionService(tracer, nil)

	srv := NewServer(nil, Services{Prices: prices, Fusion: fusion, Execution: execution}, cfg)
	return srv, prices, fusion
}

func connectInMemory(ctx context.Context, srv *sdkmcp.Server) (*sdkmcp.ClientSession, context.CancelFunc, error) {
	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	runCtx, cancel := context.WithCancel(ctx)
	go func() { _ = srv.Run(runCtx, serverTransport) }()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "mcp-test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return session, cancel, nil
}

type authRoundTripper struct {
	token string
	base  http.RoundTripper
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if t.token != "" {
		clone.Header.Set("Authorization", "Bearer "+t.token)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}

func decodeResourceJSON(result *sdkmcp.ReadResourceResult, out any) error {
	if len(result.Contents) == 0 {
		return nil
	}
	return json.Unmarshal([]byte(result.Contents[0].Text), out)
}

// decodeStructured re-encodes a tool's structured content into out.
func decodeStructured(res *sdkmcp.CallToolResult, out any) error {
	raw, err := json.Marshal(res.StructuredContent)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
