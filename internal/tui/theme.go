package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Tab bar styles
	TabStyle       = lipgloss.NewStyle().Padding(0, 2)
	ActiveTabStyle = TabStyle.Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))
	InactiveTabStyle = TabStyle.
				Foreground(lipgloss.Color("#888888"))

	// Quote source colors
	SourceLiveStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	SourceCacheStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	SourceSnapshotStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00"))

	// Score bias colors
	BullishStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")).Bold(true)
	BearishStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	NeutralStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00"))

	// General styles
	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA"))
	SubtextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	BorderStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#555555"))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	WarnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
	SpinnerColor = lipgloss.Color("#7D56F4")

	// Execution console styles
	OperatorMsgStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	DecisionMsgStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))
	RealTargetStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	MockTargetStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))

	// Heat map colors
	HeatGreen   = lipgloss.Color("#00FF00")
	HeatRed     = lipgloss.Color("#FF0000")
	HeatNeutral = lipgloss.Color("#555555")
)
