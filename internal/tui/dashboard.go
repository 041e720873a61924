package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"strategy-desk/internal/domain"
	"strategy-desk/internal/service"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	refreshInterval = 10 * time.Second
	fetchTimeout    = 8 * time.Second
)

// Dashboard message types.
type pricesMsg service.PriceResult
type pricesErrMsg struct{ err error }
type scoresMsg []service.FusionScore
type dashTickMsg time.Time

// DashboardModel shows live quotes for the desk symbols next to a fused score heat map.
type DashboardModel struct {
	services Services
	quotes   []domain.Quote
	missing  []string
	scores   []service.FusionScore
	loading  bool
	err      error
	width    int
	height   int
}

// NewDashboardModel creates a new dashboard model.
func NewDashboardModel(svc Services) DashboardModel {
	return DashboardModel{
		services: svc,
		loading:  true,
	}
}

// Init fires initial data fetch commands.
func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(
		m.fetchPricesCmd(),
		m.fetchScoresCmd(),
		m.tickCmd(),
	)
}

// Update handles incoming messages.
func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case pricesMsg:
		m.quotes = sortedQuotes(msg.Prices)
		m.missing = msg.Missing
		m.loading = false
		m.err = nil
		return m, nil

	case pricesErrMsg:
		m.err = msg.err
		m.loading = false
		return m, nil

	case scoresMsg:
		m.scores = []service.FusionScore(msg)
		return m, nil

	case dashTickMsg:
		return m, tea.Batch(
			m.fetchPricesCmd(),
			m.fetchScoresCmd(),
			m.tickCmd(),
		)
	}

	return m, nil
}

// View renders the dashboard.
func (m DashboardModel) View() string {
	if m.loading && len(m.quotes) == 0 {
		return SubtextStyle.Render("Loading prices...")
	}
	if m.err != nil && len(m.quotes) == 0 {
		return ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	priceWidth := m.width*2/3 - 2
	if priceWidth < 50 {
		priceWidth = 50
	}
	heatWidth := m.width - priceWidth - 4
	if heatWidth < 20 {
		heatWidth = 20
	}

	priceBox := BorderStyle.Width(priceWidth).Render(m.renderPriceTable())
	heatBox := BorderStyle.Width(heatWidth).Render(m.renderHeatMapSection(heatWidth))
	topRow := lipgloss.JoinHorizontal(lipgloss.Top, priceBox, heatBox)

	scoreBox := BorderStyle.Width(m.width - 2).Render(m.renderScores())
	return lipgloss.JoinVertical(lipgloss.Left, topRow, scoreBox)
}

// SetSize updates the model dimensions.
func (m *DashboardModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Quotes returns the current quotes sorted by symbol (for testing).
func (m DashboardModel) Quotes() []domain.Quote { return m.quotes }

// Scores returns the current scores (for testing).
func (m DashboardModel) Scores() []service.FusionScore { return m.scores }

func (m DashboardModel) renderPriceTable() string {
	lines := []string{
		HeaderStyle.Render("  Live Prices"),
		SubtextStyle.Render("  Symbol             Price   Spread  Volume   Source"),
		SubtextStyle.Render("  " + strings.Repeat("─", 55)),
	}
	for _, q := range m.quotes {
		lines = append(lines, "  "+FormatQuote(q))
	}
	for _, symbol := range m.missing {
		lines = append(lines, "  "+ErrorStyle.Render(fmt.Sprintf("%-9s unavailable", symbol)))
	}
	if len(m.quotes) == 0 && len(m.missing) == 0 {
		lines = append(lines, SubtextStyle.Render("  No price data available"))
	}
	return strings.Join(lines, "\n")
}

func (m DashboardModel) renderHeatMapSection(width int) string {
	header := HeaderStyle.Render(fmt.Sprintf("  Scores %s", m.services.horizon()))
	return header + "\n" + RenderHeatMap(m.scores, width-2)
}

func (m DashboardModel) renderScores() string {
	lines := []string{HeaderStyle.Render("  Strongest Scores")}

	ranked := append([]service.FusionScore(nil), m.scores...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return abs(ranked[i].FusedScore) > abs(ranked[j].FusedScore)
	})
	if len(ranked) > 5 {
		ranked = ranked[:5]
	}
	for _, s := range ranked {
		lines = append(lines, "  "+FormatScore(s))
	}
	if len(ranked) == 0 {
		lines = append(lines, SubtextStyle.Render("  No scores yet"))
	}
	return strings.Join(lines, "\n")
}

func (m DashboardModel) fetchPricesCmd() tea.Cmd {
	symbols := m.services.symbols()
	return func() tea.Msg {
		if m.services.Prices == nil {
			return pricesErrMsg{err: fmt.Errorf("price service not available")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		res, err := m.services.Prices.GetPrices(ctx, symbols)
		if err != nil {
			return pricesErrMsg{err: err}
		}
		return pricesMsg(res)
	}
}

// fetchScoresCmd scores every symbol at the session horizon. Failed symbols
// are skipped; the fusion service already degrades storage failures to zero.
func (m DashboardModel) fetchScoresCmd() tea.Cmd {
	symbols := m.services.symbols()
	horizon := string(m.services.horizon())
	return func() tea.Msg {
		if m.services.Scores == nil {
			return scoresMsg(nil)
		}
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		out := make([]service.FusionScore, 0, len(symbols))
		for _, symbol := range symbols {
			s, err := m.services.Scores.Score(ctx, service.FusionQuery{Symbol: symbol, Horizon: horizon})
			if err != nil {
				continue
			}
			out = append(out, s)
		}
		return scoresMsg(out)
	}
}

func (m DashboardModel) tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return dashTickMsg(t)
	})
}

func sortedQuotes(prices map[string]domain.Quote) []domain.Quote {
	out := make([]domain.Quote, 0, len(prices))
	for _, q := range prices {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
