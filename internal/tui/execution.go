package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"strategy-desk/internal/execution"
	"strategy-desk/internal/service"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const intentHelp = "<source> [strategy=UUID] [target=MOCK|REAL] [user=ID] [wallet=ID] [system] [force] [test|live]"

// Execution console message types.
type decisionMsg service.Decision
type decisionErrMsg struct{ err error }

type consoleEntry struct {
	Input    string
	Decision *service.Decision
	Err      error
	Time     time.Time
}

// ExecutionModel is a console that classifies typed trade intents as the
// session operator.
type ExecutionModel struct {
	services Services
	entries  []consoleEntry
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	waiting  bool
	width    int
	height   int
	ready    bool
}

// NewExecutionModel creates a new execution console.
func NewExecutionModel(svc Services) ExecutionModel {
	ti := textinput.New()
	ti.Placeholder = "manual strategy=... target=MOCK"
	ti.CharLimit = 300
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(SpinnerColor)

	return ExecutionModel{
		services: svc,
		input:    ti,
		spinner:  sp,
	}
}

// Init initializes the console.
func (m ExecutionModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles incoming messages.
func (m ExecutionModel) Update(msg tea.Msg) (ExecutionModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case decisionMsg:
		d := service.Decision(msg)
		m.resolveLast(&d, nil)
		return m, nil

	case decisionErrMsg:
		m.resolveLast(nil, msg.err)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEnter && !m.waiting {
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				break
			}
			m.input.SetValue("")
			m.entries = append(m.entries, consoleEntry{Input: text, Time: time.Now()})

			intent, err := parseIntentLine(text)
			if err != nil {
				m.resolveLast(nil, err)
				return m, nil
			}
			m.waiting = true
			m.refreshViewport()
			return m, tea.Batch(m.decideCmd(intent), m.spinner.Tick)
		}

	case spinner.TickMsg:
		if m.waiting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if !m.waiting {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the console.
func (m ExecutionModel) View() string {
	title := HeaderStyle.Render("  Execution Console")
	if m.services.Execution == nil {
		return lipgloss.JoinVertical(lipgloss.Left,
			"",
			title,
			"",
			SubtextStyle.Render("  Execution classifier not available."),
		)
	}

	operator := m.services.Operator
	if operator == "" {
		operator = "anonymous"
	}

	sections := []string{
		title + SubtextStyle.Render("  as "+operator),
		SubtextStyle.Render("  " + intentHelp),
		SubtextStyle.Render(strings.Repeat("─", max(m.width-2, 10))),
	}

	if !m.ready {
		m.initViewport()
	}
	sections = append(sections, m.viewport.View())
	sections = append(sections, SubtextStyle.Render(strings.Repeat("─", max(m.width-2, 10))))

	if m.waiting {
		sections = append(sections, fmt.Sprintf("  %s Classifying...", m.spinner.View()))
	} else {
		sections = append(sections, "  "+m.input.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetSize updates the model dimensions.
func (m *ExecutionModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.input.Width = w - 6
	m.ready = false
}

// Focus gives focus to the text input.
func (m *ExecutionModel) Focus() {
	m.input.Focus()
}

// Blur removes focus from the text input.
func (m *ExecutionModel) Blur() {
	m.input.Blur()
}

// IsWaiting returns whether a classification is in flight (for testing).
func (m ExecutionModel) IsWaiting() bool { return m.waiting }

// EntryCount returns the number of console entries (for testing).
func (m ExecutionModel) EntryCount() int { return len(m.entries) }

func (m *ExecutionModel) resolveLast(d *service.Decision, err error) {
	m.waiting = false
	if n := len(m.entries); n > 0 {
		m.entries[n-1].Decision = d
		m.entries[n-1].Err = err
	}
	m.refreshViewport()
}

func (m *ExecutionModel) refreshViewport() {
	m.viewport.SetContent(m.renderEntries())
	m.viewport.GotoBottom()
}

func (m *ExecutionModel) initViewport() {
	vpHeight := m.height - 7
	if vpHeight < 3 {
		vpHeight = 3
	}
	vpWidth := m.width - 2
	if vpWidth < 10 {
		vpWidth = 10
	}
	m.viewport = viewport.New(vpWidth, vpHeight)
	m.viewport.SetContent(m.renderEntries())
	m.viewport.GotoBottom()
	m.ready = true
}

func (m ExecutionModel) renderEntries() string {
	if len(m.entries) == 0 {
		return SubtextStyle.Render("  Type a trade intent below to see how it would be routed.")
	}

	var lines []string
	for _, e := range m.entries {
		lines = append(lines, fmt.Sprintf("  %s  %s %s",
			SubtextStyle.Render(e.Time.Format("15:04:05")),
			OperatorMsgStyle.Render(">"),
			e.Input,
		))
		switch {
		case e.Err != nil:
			lines = append(lines, "            "+ErrorStyle.Render(e.Err.Error()))
		case e.Decision != nil:
			lines = append(lines, "            "+FormatDecision(*e.Decision))
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// FormatDecision renders a decision as a single line.
func FormatDecision(d service.Decision) string {
	target := MockTargetStyle.Render(string(d.Classification.Target))
	if d.Classification.Target == execution.TargetReal {
		target = RealTargetStyle.Render(string(d.Classification.Target))
	}
	return DecisionMsgStyle.Render(fmt.Sprintf("%s / %s / ",
		d.Classification.Authority, d.Classification.Intent)) + target +
		DecisionMsgStyle.Render(fmt.Sprintf("  owner %s", d.UserID))
}

func (m ExecutionModel) decideCmd(intent service.TradeIntent) tea.Cmd {
	operator := m.services.Operator
	return func() tea.Msg {
		if m.services.Execution == nil {
			return decisionErrMsg{err: fmt.Errorf("execution classifier not available")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		d, err := m.services.Execution.Decide(ctx, intent, operator)
		if err != nil {
			return decisionErrMsg{err: err}
		}
		return decisionMsg(d)
	}
}

// parseIntentLine reads "<source> key=value flag ..." into a trade intent.
func parseIntentLine(line string) (service.TradeIntent, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return service.TradeIntent{}, fmt.Errorf("usage: %s", intentHelp)
	}

	intent := service.TradeIntent{Source: fields[0]}
	yes, no := true, false
	for _, f := range fields[1:] {
		k, v, hasValue := strings.Cut(f, "=")
		switch strings.ToLower(k) {
		case "strategy":
			intent.StrategyID = v
		case "target":
			intent.StrategyExecutionTarget = strings.ToUpper(v)
		case "user":
			intent.UserID = v
		case "wallet":
			wallet := v
			intent.Metadata.ExecutionWalletID = &wallet
		case "system":
			intent.Metadata.SystemOperatorMode = &yes
		case "force":
			intent.Metadata.Force = &yes
		case "test":
			intent.Metadata.IsTestMode = &yes
		case "live":
			intent.Metadata.IsTestMode = &no
		default:
			return service.TradeIntent{}, fmt.Errorf("unknown field %q", f)
		}
		if hasValue != isValueField(k) || (hasValue && v == "") {
			return service.TradeIntent{}, fmt.Errorf("malformed field %q", f)
		}
	}
	return intent, nil
}

func isValueField(k string) bool {
	switch strings.ToLower(k) {
	case "strategy", "target", "user", "wallet":
		return true
	}
	return false
}
