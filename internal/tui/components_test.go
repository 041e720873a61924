package tui

import (
	"strings"
	"testing"

	"strategy-desk/internal/domain"
)

func TestFormatEUR(t *testing.T) {
	cases := map[float64]string{
		64000.5:  "€64,000.50",
		1234.999: "€1,235.00",
		12.3:     "€12.30",
		0.12345:  "€0.1235",
	}
	for in, want := range cases {
		if got := formatEUR(in); got != want {
			t.Fatalf("formatEUR(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatQuoteShowsSpreadAndSource(t *testing.T) {
	bid, ask, vol := 99.5, 100.5, 2500.0
	line := FormatQuote(domain.Quote{Symbol: "SOL-EUR", Price: 100, Bid: &bid, Ask: &ask, Volume: &vol, Source: domain.QuoteSourceLive})
	for _, want := range []string{"SOL-EUR", "€100.00", "1.00", "2.5K", "live"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}

	snap := FormatQuote(domain.Quote{Symbol: "SOL-EUR", Price: 100, Source: domain.QuoteSourceSnapshot})
	if !strings.Contains(snap, "snapshot") || strings.Contains(snap, "K") {
		t.Fatalf("unexpected snapshot line %q", snap)
	}
}

func TestRenderScoreBar(t *testing.T) {
	if got := strings.Count(RenderScoreBar(50, 10), "█"); got != 5 {
		t.Fatalf("expected 5 filled cells, got %d", got)
	}
	if got := strings.Count(RenderScoreBar(-250, 10), "█"); got != 10 {
		t.Fatalf("expected bar to clamp at width, got %d", got)
	}
	if got := strings.Count(RenderScoreBar(0, 10), "░"); got != 10 {
		t.Fatalf("expected empty bar, got %d", got)
	}
}

func TestBaseAsset(t *testing.T) {
	if baseAsset("BTC-EUR") != "BTC" || baseAsset("BTC") != "BTC" {
		t.Fatal("unexpected base asset")
	}
}
