package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type Tab int

const (
	TabDashboard Tab = iota
	TabFusion
	TabExecution
)

var tabNames = []string{"1:Desk", "2:Fusion", "3:Execution"}

// chromeHeight is the rows taken by the tab bar and the status line.
const chromeHeight = 3

// AppModel is the root model. It owns tab navigation and hands each child the
// background messages it issued, whichever tab is visible.
type AppModel struct {
	services  Services
	activeTab Tab
	dashboard DashboardModel
	fusion    FusionExplorerModel
	execution ExecutionModel
	width     int
	height    int
	quitting  bool
}

func NewAppModel(svc Services) AppModel {
	return AppModel{
		services:  svc,
		activeTab: TabDashboard,
		dashboard: NewDashboardModel(svc),
		fusion:    NewFusionExplorerModel(svc),
		execution: NewExecutionModel(svc),
	}
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.dashboard.Init(), m.fusion.Init(), m.execution.Init())
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		if next, cmd, handled := m.handleNavigation(msg); handled {
			return next, cmd
		}
	}

	var cmd tea.Cmd
	switch m.owner(msg) {
	case TabDashboard:
		m.dashboard, cmd = m.dashboard.Update(msg)
	case TabFusion:
		m.fusion, cmd = m.fusion.Update(msg)
	case TabExecution:
		m.execution, cmd = m.execution.Update(msg)
	}
	return m, cmd
}

// handleNavigation consumes tab switching and quit keys. On the execution
// tab only tab, shift+tab and ctrl+c navigate; everything else is console input.
func (m AppModel) handleNavigation(msg tea.KeyMsg) (AppModel, tea.Cmd, bool) {
	if m.activeTab == TabExecution && msg.Type != tea.KeyTab && msg.Type != tea.KeyShiftTab && msg.Type != tea.KeyCtrlC {
		return m, nil, false
	}

	switch {
	case key.Matches(msg, DefaultKeyMap.Quit):
		m.quitting = true
		return m, tea.Quit, true
	case key.Matches(msg, DefaultKeyMap.Tab):
		m.switchTab(Tab((int(m.activeTab) + 1) % len(tabNames)))
		return m, nil, true
	case key.Matches(msg, DefaultKeyMap.ShiftTab):
		m.switchTab(Tab((int(m.activeTab) + len(tabNames) - 1) % len(tabNames)))
		return m, nil, true
	}

	if s := msg.String(); len(s) == 1 && s[0] >= '1' && int(s[0]-'1') < len(tabNames) {
		m.switchTab(Tab(s[0] - '1'))
		return m, nil, true
	}
	return m, nil, false
}

// owner picks the child that should see msg. Replies to fetches go to the
// model that issued them; input goes to the visible tab.
func (m AppModel) owner(msg tea.Msg) Tab {
	switch msg.(type) {
	case pricesMsg, pricesErrMsg, scoresMsg, dashTickMsg:
		return TabDashboard
	case fusionScoreMsg, fusionErrMsg, fusionTickMsg:
		return TabFusion
	case decisionMsg, decisionErrMsg:
		return TabExecution
	default:
		return m.activeTab
	}
}

func (m AppModel) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	var content string
	switch m.activeTab {
	case TabDashboard:
		content = m.dashboard.View()
	case TabFusion:
		content = m.fusion.View()
	case TabExecution:
		content = m.execution.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.renderTabBar(), content, m.renderStatusLine())
}

func (m *AppModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	contentHeight := max(h-chromeHeight, 0)
	m.dashboard.SetSize(w, contentHeight)
	m.fusion.SetSize(w, contentHeight)
	m.execution.SetSize(w, contentHeight)
}

// ActiveTab returns the currently active tab (for testing).
func (m AppModel) ActiveTab() Tab { return m.activeTab }

func (m *AppModel) switchTab(tab Tab) {
	switch {
	case tab == TabExecution && m.activeTab != TabExecution:
		m.execution.Focus()
	case tab != TabExecution && m.activeTab == TabExecution:
		m.execution.Blur()
	}
	m.activeTab = tab
}

func (m AppModel) renderTabBar() string {
	tabs := make([]string, 0, len(tabNames))
	for i, name := range tabNames {
		style := InactiveTabStyle
		if Tab(i) == m.activeTab {
			style = ActiveTabStyle
		}
		tabs = append(tabs, style.Render(name))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m AppModel) renderStatusLine() string {
	operator := m.services.Operator
	if operator == "" {
		operator = "anonymous"
	}
	parts := []string{
		"operator " + OperatorMsgStyle.Render(operator),
		fmt.Sprintf("%d symbols", len(m.services.symbols())),
		"horizon " + string(m.services.horizon()),
	}
	hint := "tab switch"
	if m.activeTab != TabExecution {
		hint += " · q quit"
	} else {
		hint += " · ctrl+c quit"
	}
	return SubtextStyle.Render(strings.Join(parts, " | ") + "   " + hint)
}
