package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"strategy-desk/internal/domain"
	"strategy-desk/internal/service"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Fusion explorer message types.
type fusionScoreMsg service.FusionScore
type fusionErrMsg struct{ err error }
type fusionTickMsg time.Time

var sideOptions = []string{"ANY", string(domain.SideBuy), string(domain.SideSell)}

// FusionExplorerModel breaks one fused score down into its signal contributions.
type FusionExplorerModel struct {
	services     Services
	symbols      []string
	horizons     []domain.Horizon
	symbolIdx    int
	horizonIdx   int
	sideIdx      int
	score        *service.FusionScore
	scrollOffset int
	loading      bool
	err          error
	width        int
	height       int
}

// NewFusionExplorerModel starts on the first symbol and the session horizon.
func NewFusionExplorerModel(svc Services) FusionExplorerModel {
	m := FusionExplorerModel{
		services: svc,
		symbols:  svc.symbols(),
		horizons: domain.SupportedHorizons,
		loading:  true,
	}
	for i, h := range m.horizons {
		if h == svc.horizon() {
			m.horizonIdx = i
		}
	}
	return m
}

// Init fires the initial score fetch.
func (m FusionExplorerModel) Init() tea.Cmd {
	return tea.Batch(m.fetchScoreCmd(), m.tickCmd())
}

// Update handles incoming messages.
func (m FusionExplorerModel) Update(msg tea.Msg) (FusionExplorerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case fusionScoreMsg:
		s := service.FusionScore(msg)
		// Drop replies for a selection the user has already moved away from.
		if s.Symbol != domain.NormalizeSymbol(m.symbol()) || s.Horizon != m.horizon() {
			return m, nil
		}
		m.score = &s
		m.loading = false
		m.err = nil
		if m.scrollOffset > len(s.Details) {
			m.scrollOffset = 0
		}
		return m, nil

	case fusionErrMsg:
		m.err = msg.err
		m.loading = false
		return m, nil

	case fusionTickMsg:
		return m, tea.Batch(m.fetchScoreCmd(), m.tickCmd())

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, DefaultKeyMap.CycleSymbol):
			m.symbolIdx = (m.symbolIdx + 1) % len(m.symbols)
			return m.reload()

		case key.Matches(msg, DefaultKeyMap.CycleHorizon):
			m.horizonIdx = (m.horizonIdx + 1) % len(m.horizons)
			return m.reload()

		case key.Matches(msg, DefaultKeyMap.CycleSide):
			m.sideIdx = (m.sideIdx + 1) % len(sideOptions)
			return m.reload()

		case key.Matches(msg, DefaultKeyMap.Refresh):
			m.loading = true
			return m, m.fetchScoreCmd()

		case msg.String() == "j" || msg.String() == "down":
			if m.score != nil && m.scrollOffset < len(m.score.Details)-m.visibleRows() {
				m.scrollOffset++
			}
			return m, nil

		case msg.String() == "k" || msg.String() == "up":
			if m.scrollOffset > 0 {
				m.scrollOffset--
			}
			return m, nil
		}
	}

	return m, nil
}

// View renders the fusion explorer.
func (m FusionExplorerModel) View() string {
	sections := []string{
		HeaderStyle.Render("  Fusion Explorer"),
		"",
		m.renderFilters(),
		SubtextStyle.Render(strings.Repeat("─", max(m.width-2, 10))),
	}

	switch {
	case m.loading && m.score == nil:
		sections = append(sections, SubtextStyle.Render("  Loading..."))
	case m.err != nil:
		sections = append(sections, ErrorStyle.Render(fmt.Sprintf("  Error: %v", m.err)))
	case m.score == nil:
		sections = append(sections, SubtextStyle.Render("  No score"))
	default:
		sections = append(sections, m.renderScore()...)
	}

	sections = append(sections, "")
	sections = append(sections, SubtextStyle.Render("  [s] symbol  [h] horizon  [d] side  [R] refresh  [j/k] scroll"))
	return strings.Join(sections, "\n")
}

// SetSize updates the model dimensions.
func (m *FusionExplorerModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Selection returns the current symbol, horizon and side filter (for testing).
func (m FusionExplorerModel) Selection() (string, domain.Horizon, string) {
	return m.symbol(), m.horizon(), sideOptions[m.sideIdx]
}

// Score returns the loaded score, or nil (for testing).
func (m FusionExplorerModel) Score() *service.FusionScore { return m.score }

func (m FusionExplorerModel) reload() (FusionExplorerModel, tea.Cmd) {
	m.loading = true
	m.score = nil
	m.scrollOffset = 0
	return m, m.fetchScoreCmd()
}

func (m FusionExplorerModel) symbol() string          { return m.symbols[m.symbolIdx] }
func (m FusionExplorerModel) horizon() domain.Horizon { return m.horizons[m.horizonIdx] }

func (m FusionExplorerModel) query() service.FusionQuery {
	q := service.FusionQuery{Symbol: m.symbol(), Horizon: string(m.horizon())}
	if m.sideIdx > 0 {
		q.Side = sideOptions[m.sideIdx]
	}
	return q
}

func (m FusionExplorerModel) renderFilters() string {
	chips := lipgloss.JoinHorizontal(lipgloss.Top,
		renderChip("Symbol", []string{m.symbol()}, 0),
		"  ",
		renderChip("Horizon", horizonLabels(m.horizons), m.horizonIdx),
		"  ",
		renderChip("Side", sideOptions, m.sideIdx),
	)
	return "  " + chips
}

func (m FusionExplorerModel) renderScore() []string {
	s := *m.score
	lines := []string{"  " + FormatScore(s), ""}
	if len(s.Details) == 0 {
		return append(lines, SubtextStyle.Render(fmt.Sprintf("  No signals in the last %s", s.Horizon.Lookback())))
	}

	lines = append(lines, SubtextStyle.Render(fmt.Sprintf("  %-18s %-11s %6s  %6s  %6s  %s",
		"Signal", "Hint", "Str", "Weight", "Contr", "Time")))

	end := m.scrollOffset + m.visibleRows()
	if end > len(s.Details) {
		end = len(s.Details)
	}
	for i := m.scrollOffset; i < end; i++ {
		lines = append(lines, "  "+FormatDetail(s.Details[i]))
	}
	if len(s.Details) > m.visibleRows() {
		lines = append(lines, SubtextStyle.Render(
			fmt.Sprintf("  Showing %d-%d of %d", m.scrollOffset+1, end, len(s.Details)),
		))
	}
	return lines
}

func (m FusionExplorerModel) fetchScoreCmd() tea.Cmd {
	q := m.query()
	return func() tea.Msg {
		if m.services.Scores == nil {
			return fusionErrMsg{err: fmt.Errorf("fusion service not available")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		s, err := m.services.Scores.Score(ctx, q)
		if err != nil {
			return fusionErrMsg{err: err}
		}
		return fusionScoreMsg(s)
	}
}

func (m FusionExplorerModel) tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return fusionTickMsg(t)
	})
}

func (m FusionExplorerModel) visibleRows() int {
	available := m.height - 12
	if available < 5 {
		return 5
	}
	return available
}

func renderChip(label string, options []string, active int) string {
	parts := []string{SubtextStyle.Render(label + ": ")}
	for i, opt := range options {
		if i == active {
			parts = append(parts, ActiveTabStyle.Render(opt))
		} else {
			parts = append(parts, SubtextStyle.Render(opt))
		}
		parts = append(parts, " ")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func horizonLabels(hs []domain.Horizon) []string {
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = string(h)
	}
	return out
}
