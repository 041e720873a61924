package fusion

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"strategy-desk/internal/domain"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestComputeNoSignalsReturnsZeroResult(t *testing.T) {
	engine := NewEngine(&stubSignalSource{}, &stubRegistry{}, 0)

	got, err := engine.Compute(context.Background(), Request{Symbol: "BTC-EUR", Horizon: domain.Horizon1h, Now: testNow})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.FusedScore != 0 || got.TotalSignals != 0 || got.EnabledSignals != 0 {
		t.Fatalf("expected zero result, got %+v", got)
	}
	if got.Details == nil || len(got.Details) != 0 {
		t.Fatalf("expected empty non-nil details, got %#v", got.Details)
	}
}

func TestComputeUsesHorizonLookback(t *testing.T) {
	source := &stubSignalSource{}
	engine := NewEngine(source, &stubRegistry{}, 0)

	for _, h := range domain.SupportedHorizons {
		if _, err := engine.Compute(context.Background(), Request{Symbol: "BTC-EUR", Horizon: h, Now: testNow}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want := testNow.Add(-h.Lookback()); !source.lastCutoff.Equal(want) {
			t.Fatalf("horizon %s: expected cutoff %s, got %s", h, want, source.lastCutoff)
		}
		if source.lastSymbol != "BTC-EUR" {
			t.Fatalf("expected symbol passed through, got %s", source.lastSymbol)
		}
	}
}

func TestComputeWeightsAndDirections(t *testing.T) {
	source := &stubSignalSource{signals: []domain.Signal{
		{ID: 1, SignalType: "whale_inflow", Strength: 80},
		{ID: 2, SignalType: "fear_index", Strength: 0.5},
		{ID: 3, SignalType: "ta_momentum", Strength: 0.25},
	}}
	registry := &stubRegistry{entries: map[string]domain.SignalRegistryEntry{
		"whale_inflow": {Key: "whale_inflow", DefaultWeight: 1.5, DirectionHint: domain.DirectionBullish, IsEnabled: true},
		"fear_index":   {Key: "fear_index", DefaultWeight: 1, DirectionHint: domain.DirectionBearish, IsEnabled: true},
		"ta_momentum":  {Key: "ta_momentum", DefaultWeight: 2, DirectionHint: domain.DirectionContextual, IsEnabled: true},
	}}
	engine := NewEngine(source, registry, 0)

	got, err := engine.Compute(context.Background(), Request{Symbol: "BTC-EUR", Horizon: domain.Horizon4h, Now: testNow})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 0.8*1.5 - 0.5*1 + 0.25*2 = 1.2
	if math.Abs(got.FusedScore-24) > 1e-9 {
		t.Fatalf("expected fused score 24, got %f", got.FusedScore)
	}
	if got.TotalSignals != 3 || got.EnabledSignals != 3 || len(got.Details) != 3 {
		t.Fatalf("unexpected counts: %+v", got)
	}
	if got.Details[1].Contribution != -0.5 {
		t.Fatalf("expected bearish contribution -0.5, got %f", got.Details[1].Contribution)
	}
}

func TestComputeClampsScore(t *testing.T) {
	signals := make([]domain.Signal, 0, 10)
	for i := 0; i < 10; i++ {
		signals = append(signals, domain.Signal{ID: int64(i), SignalType: "bear", Strength: 100})
	}
	registry := &stubRegistry{entries: map[string]domain.SignalRegistryEntry{
		"bear": {Key: "bear", DefaultWeight: 3, DirectionHint: domain.DirectionBearish, IsEnabled: true},
	}}
	engine := NewEngine(&stubSignalSource{signals: signals}, registry, 0)

	got, _ := engine.Compute(context.Background(), Request{Symbol: "ETH-EUR", Horizon: domain.Horizon1h, Now: testNow})
	if got.FusedScore != MinScore {
		t.Fatalf("expected clamp to %f, got %f", MinScore, got.FusedScore)
	}
}

func TestComputeBearishNeverPositive(t *testing.T) {
	registry := &stubRegistry{entries: map[string]domain.SignalRegistryEntry{
		"bear": {Key: "bear", DefaultWeight: 0.7, DirectionHint: domain.DirectionBearish, IsEnabled: true},
	}}
	for _, strength := range []float64{0, 0.01, 0.5, 1, 1.5, 50, 100, 250} {
		engine := NewEngine(&stubSignalSource{signals: []domain.Signal{{SignalType: "bear", Strength: strength}}}, registry, 0)
		got, _ := engine.Compute(context.Background(), Request{Symbol: "BTC-EUR", Now: testNow})
		if got.Details[0].Contribution > 0 || got.FusedScore > 0 {
			t.Fatalf("strength %f: bearish signal contributed positively: %+v", strength, got)
		}
	}
}

func TestComputeSkipsUnknownAndRegistryDisabled(t *testing.T) {
	weight := 2.0
	source := &stubSignalSource{signals: []domain.Signal{
		{ID: 1, SignalType: "disabled", Strength: 1},
		{ID: 2, SignalType: "unknown", Strength: 1},
		{ID: 3, SignalType: "disabled", Strength: 0.3},
		{ID: 4, SignalType: "live", Strength: 0.5},
	}}
	registry := &stubRegistry{
		entries: map[string]domain.SignalRegistryEntry{
			"disabled": {Key: "disabled", DefaultWeight: 1, DirectionHint: domain.DirectionBullish, IsEnabled: false},
			"live":     {Key: "live", DefaultWeight: 1, DirectionHint: domain.DirectionBullish, IsEnabled: true},
		},
		// A strategy override cannot re-enable a globally disabled type.
		weights: map[string]map[string]domain.StrategySignalWeight{
			"strategy-a": {"disabled": {StrategyID: "strategy-a", SignalKey: "disabled", Weight: &weight, IsEnabled: true}},
		},
	}
	engine := NewEngine(source, registry, 0)

	got, err := engine.Compute(context.Background(), Request{Symbol: "BTC-EUR", StrategyID: "strategy-a", Now: testNow})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TotalSignals != 4 || got.EnabledSignals != 1 {
		t.Fatalf("unexpected counts: total=%d enabled=%d", got.TotalSignals, got.EnabledSignals)
	}
	for _, d := range got.Details {
		if d.SignalType != "live" {
			t.Fatalf("unexpected detail for %s", d.SignalType)
		}
	}
	if got.FusedScore != 10 {
		t.Fatalf("expected score 10, got %f", got.FusedScore)
	}
}

func TestComputeStrategyOverrideScopedToStrategy(t *testing.T) {
	halfWeight := 0.5
	source := &stubSignalSource{signals: []domain.Signal{
		{ID: 1, SignalType: "sentiment", Strength: 1},
		{ID: 2, SignalType: "whale", Strength: 1},
	}}
	registry := &stubRegistry{
		entries: map[string]domain.SignalRegistryEntry{
			"sentiment": {Key: "sentiment", DefaultWeight: 1, DirectionHint: domain.DirectionBullish, IsEnabled: true},
			"whale":     {Key: "whale", DefaultWeight: 2, DirectionHint: domain.DirectionBullish, IsEnabled: true},
		},
		weights: map[string]map[string]domain.StrategySignalWeight{
			"strategy-a": {
				"sentiment": {StrategyID: "strategy-a", SignalKey: "sentiment", IsEnabled: false},
				"whale":     {StrategyID: "strategy-a", SignalKey: "whale", Weight: &halfWeight, IsEnabled: true},
			},
		},
	}
	engine := NewEngine(source, registry, 0)

	withOverride, _ := engine.Compute(context.Background(), Request{Symbol: "BTC-EUR", StrategyID: "strategy-a", Now: testNow})
	if withOverride.EnabledSignals != 1 || withOverride.Details[0].SignalType != "whale" {
		t.Fatalf("expected only whale for strategy-a, got %+v", withOverride.Details)
	}
	if withOverride.Details[0].Weight != 0.5 || withOverride.FusedScore != 10 {
		t.Fatalf("expected override weight 0.5 and score 10, got %+v", withOverride)
	}

	other, _ := engine.Compute(context.Background(), Request{Symbol: "BTC-EUR", StrategyID: "strategy-b", Now: testNow})
	if other.EnabledSignals != 2 {
		t.Fatalf("expected both signals for strategy-b, got %d", other.EnabledSignals)
	}
	if other.FusedScore != 60 {
		t.Fatalf("expected default-weight score 60, got %f", other.FusedScore)
	}
}

func TestComputeCustomScale(t *testing.T) {
	source := &stubSignalSource{signals: []domain.Signal{{SignalType: "s", Strength: 1}}}
	registry := &stubRegistry{entries: map[string]domain.SignalRegistryEntry{
		"s": {Key: "s", DefaultWeight: 1, DirectionHint: domain.DirectionSymmetric, IsEnabled: true},
	}}
	engine := NewEngine(source, registry, 35)

	got, _ := engine.Compute(context.Background(), Request{Symbol: "BTC-EUR", Now: testNow})
	if got.FusedScore != 35 {
		t.Fatalf("expected scaled score 35, got %f", got.FusedScore)
	}
}

func TestComputeLookupFailuresAreSoft(t *testing.T) {
	cases := map[string]*Engine{
		"signals":  NewEngine(&stubSignalSource{err: errors.New("db down")}, &stubRegistry{}, 0),
		"registry": NewEngine(&stubSignalSource{signals: []domain.Signal{{SignalType: "s", Strength: 1}}}, &stubRegistry{entriesErr: errors.New("db down")}, 0),
		"weights":  NewEngine(&stubSignalSource{signals: []domain.Signal{{SignalType: "s", Strength: 1}}}, &stubRegistry{weightsErr: errors.New("db down")}, 0),
		"nil deps": NewEngine(nil, nil, 0),
	}
	for name, engine := range cases {
		got, err := engine.Compute(context.Background(), Request{Symbol: "BTC-EUR", StrategyID: "strategy-a", Now: testNow})
		if !errors.Is(err, ErrLookupFailed) {
			t.Fatalf("%s: expected ErrLookupFailed, got %v", name, err)
		}
		if got.FusedScore != 0 || got.TotalSignals != 0 || got.EnabledSignals != 0 || len(got.Details) != 0 {
			t.Fatalf("%s: expected zero result on failure, got %+v", name, got)
		}
	}
}

func TestNormalizeStrength(t *testing.T) {
	cases := map[float64]float64{
		-0.5: 0,
		0:    0,
		0.4:  0.4,
		1:    1,
		1.5:  0.015,
		42:   0.42,
		100:  1,
		400:  1,
	}
	for in, want := range cases {
		if got := NormalizeStrength(in); math.Abs(got-want) > 1e-12 {
			t.Fatalf("NormalizeStrength(%f): expected %f, got %f", in, want, got)
		}
	}
	if NormalizeStrength(math.NaN()) != 0 {
		t.Fatal("expected NaN strength to normalize to 0")
	}
}

func TestComputeInvariantsAcrossRandomInputs(t *testing.T) {
	hints := []domain.DirectionHint{domain.DirectionBullish, domain.DirectionBearish, domain.DirectionSymmetric, domain.DirectionContextual}
	entries := make(map[string]domain.SignalRegistryEntry)
	for i, h := range hints {
		key := string(h)
		entries[key] = domain.SignalRegistryEntry{Key: key, DefaultWeight: float64(i) * 0.9, DirectionHint: h, IsEnabled: i != 2}
	}
	registry := &stubRegistry{entries: entries}

	seed := uint32(7)
	next := func() float64 {
		seed = seed*1664525 + 1013904223
		return float64(seed%10000) / 50
	}
	for round := 0; round < 50; round++ {
		var signals []domain.Signal
		for i := 0; i < round%12; i++ {
			signals = append(signals, domain.Signal{SignalType: string(hints[i%len(hints)]), Strength: next()})
		}
		engine := NewEngine(&stubSignalSource{signals: signals}, registry, 0)
		got, _ := engine.Compute(context.Background(), Request{Symbol: "BTC-EUR", Now: testNow})
		if got.FusedScore < MinScore || got.FusedScore > MaxScore {
			t.Fatalf("round %d: score out of range: %f", round, got.FusedScore)
		}
		if got.EnabledSignals > got.TotalSignals {
			t.Fatalf("round %d: enabled %d > total %d", round, got.EnabledSignals, got.TotalSignals)
		}
	}
}

func TestComputeSumsContributionsAndKeepsOverrideWeightUnclamped(t *testing.T) {
	source := &stubSignalSource{signals: []domain.Signal{
		{ID: 1, SignalType: "sentiment", Strength: 1},
		{ID: 2, SignalType: "whale", Strength: 1},
	}}
	registry := &stubRegistry{entries: map[string]domain.SignalRegistryEntry{
		"sentiment": {Key: "sentiment", DefaultWeight: 1, MinWeight: 0, MaxWeight: 3, DirectionHint: domain.DirectionBullish, IsEnabled: true},
		"whale":     {Key: "whale", DefaultWeight: 1, MinWeight: 0, MaxWeight: 3, DirectionHint: domain.DirectionBullish, IsEnabled: true},
	}}
	engine := NewEngine(source, registry, 0)

	got, err := engine.Compute(context.Background(), Request{Symbol: "BTC-EUR", Now: testNow})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 1*1 + 1*1 summed, not averaged, then scaled by 20.
	if got.FusedScore != 40 {
		t.Fatalf("expected summed score 40, got %v", got.FusedScore)
	}

	heavy := 5.0
	source.signals = []domain.Signal{{ID: 3, SignalType: "whale", Strength: 0.5}}
	registry.weights = map[string]map[string]domain.StrategySignalWeight{
		"strategy-a": {"whale": {StrategyID: "strategy-a", SignalKey: "whale", Weight: &heavy, IsEnabled: true}},
	}
	got, err = engine.Compute(context.Background(), Request{Symbol: "BTC-EUR", StrategyID: "strategy-a", Now: testNow})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Details[0].Weight != 5 || got.FusedScore != 50 {
		t.Fatalf("expected override weight 5 above max and score 50, got weight=%v score=%v", got.Details[0].Weight, got.FusedScore)
	}
}

type stubSignalSource struct {
	signals    []domain.Signal
	err        error
	lastSymbol string
	lastCutoff time.Time
}

func (s *stubSignalSource) ListSignalsSince(ctx context.Context, symbol string, cutoff time.Time) ([]domain.Signal, error) {
	s.lastSymbol = symbol
	s.lastCutoff = cutoff
	if s.err != nil {
		return nil, s.err
	}
	return append([]domain.Signal(nil), s.signals...), nil
}

type stubRegistry struct {
	entries    map[string]domain.SignalRegistryEntry
	weights    map[string]map[string]domain.StrategySignalWeight
	entriesErr error
	weightsErr error
}

func (s *stubRegistry) GetRegistryEntries(ctx context.Context, keys []string) (map[string]domain.SignalRegistryEntry, error) {
	if s.entriesErr != nil {
		return nil, s.entriesErr
	}
	out := make(map[string]domain.SignalRegistryEntry, len(keys))
	for _, k := range keys {
		if e, ok := s.entries[k]; ok {
			out[k] = e
		}
	}
	return out, nil
}

func (s *stubRegistry) GetStrategyWeights(ctx context.Context, strategyID string, keys []string) (map[string]domain.StrategySignalWeight, error) {
	if s.weightsErr != nil {
		return nil, s.weightsErr
	}
	return s.weights[strategyID], nil
}
