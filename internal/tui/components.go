package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"strategy-desk/internal/domain"
	"strategy-desk/internal/service"

	"github.com/charmbracelet/lipgloss"
)

// FormatQuote renders a quote as a single line.
func FormatQuote(q domain.Quote) string {
	spread := "      -"
	if q.Bid != nil && q.Ask != nil {
		spread = fmt.Sprintf("%7.2f", *q.Ask-*q.Bid)
	}
	volume := "-"
	if q.Volume != nil {
		volume = formatAmount(*q.Volume)
	}

	return fmt.Sprintf("%-9s %14s  %s  %-8s %s",
		q.Symbol,
		formatEUR(q.Price),
		spread,
		volume,
		sourceStyle(q.Source).Render(string(q.Source)),
	)
}

// FormatScore renders a fused score as a single line.
func FormatScore(s service.FusionScore) string {
	line := fmt.Sprintf("%-9s %-4s %s %s  %d/%d signals",
		s.Symbol,
		s.Horizon,
		biasStyle(s.FusedScore).Render(fmt.Sprintf("%+6.1f", s.FusedScore)),
		RenderScoreBar(s.FusedScore, 20),
		s.EnabledSignals,
		s.TotalSignals,
	)
	if s.Degraded {
		line += " " + WarnStyle.Render("degraded")
	}
	return line
}

// FormatDetail renders one signal contribution as a table row.
func FormatDetail(d domain.SignalDetail) string {
	return fmt.Sprintf("%-18s %-11s %6.2f  x %4.2f  %s  %s",
		truncate(d.SignalType, 18),
		d.DirectionHint,
		d.NormalizedStrength,
		d.Weight,
		biasStyle(d.Contribution).Render(fmt.Sprintf("%+6.2f", d.Contribution)),
		d.Timestamp.Format(time.RFC822),
	)
}

// RenderScoreBar draws |score|/100 as a bar coloured by the score's sign.
func RenderScoreBar(score float64, barWidth int) string {
	if barWidth <= 0 {
		barWidth = 20
	}
	filled := int(math.Round(math.Abs(score) / 100 * float64(barWidth)))
	if filled > barWidth {
		filled = barWidth
	}
	empty := barWidth - filled
	return biasStyle(score).Render(strings.Repeat("█", filled)) + SubtextStyle.Render(strings.Repeat("░", empty))
}

// RenderHeatMap renders a colored grid with one cell per symbol, shaded by fused score.
func RenderHeatMap(scores []service.FusionScore, width int) string {
	if len(scores) == 0 {
		return SubtextStyle.Render("No scores")
	}

	cellWidth := 10
	cols := width / cellWidth
	if cols < 1 {
		cols = 1
	}

	var rows []string
	var row []string
	for i, s := range scores {
		bg := HeatNeutral
		if s.FusedScore > 0 {
			bg = heatColorScale(s.FusedScore, 100, HeatGreen)
		} else if s.FusedScore < 0 {
			bg = heatColorScale(-s.FusedScore, 100, HeatRed)
		}

		cell := lipgloss.NewStyle().
			Background(bg).
			Foreground(lipgloss.Color("#000000")).
			Bold(true).
			Width(cellWidth - 1).
			Align(lipgloss.Center).
			Render(baseAsset(s.Symbol))

		row = append(row, cell)
		if (i+1)%cols == 0 || i == len(scores)-1 {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}

	return strings.Join(rows, "\n")
}

// heatColorScale produces a color scaled by magnitude.
func heatColorScale(magnitude, maxMagnitude float64, baseColor lipgloss.Color) lipgloss.Color {
	intensity := magnitude / maxMagnitude
	if intensity > 1 {
		intensity = 1
	}
	if intensity < 0.1 {
		return HeatNeutral
	}
	return baseColor
}

func sourceStyle(src domain.QuoteSource) lipgloss.Style {
	switch src {
	case domain.QuoteSourceLive:
		return SourceLiveStyle
	case domain.QuoteSourceSnapshot:
		return SourceSnapshotStyle
	default:
		return SourceCacheStyle
	}
}

func biasStyle(v float64) lipgloss.Style {
	switch {
	case v > 0:
		return BullishStyle
	case v < 0:
		return BearishStyle
	default:
		return NeutralStyle
	}
}

func baseAsset(symbol string) string {
	if base, _, ok := strings.Cut(symbol, "-"); ok {
		return base
	}
	return symbol
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func formatEUR(v float64) string {
	if v >= 1000 {
		whole, frac, _ := strings.Cut(fmt.Sprintf("%.2f", v), ".")
		return "€" + addCommas(whole) + "." + frac
	}
	if v >= 1 {
		return fmt.Sprintf("€%.2f", v)
	}
	return fmt.Sprintf("€%.4f", v)
}

func addCommas(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var result strings.Builder
	for i, ch := range s {
		if i > 0 && (n-i)%3 == 0 {
			result.WriteByte(',')
		}
		result.WriteRune(ch)
	}
	return result.String()
}

func formatAmount(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
