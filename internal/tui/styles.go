package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	primaryColor   = lipgloss.Color("#0EA5E9") // Sky
	secondaryColor = lipgloss.Color("#10B981") // Green
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	accentColor    = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444") // Red
	fgColor        = lipgloss.Color("#F9FAFB") // Light
	pastColor      = lipgloss.Color("#52525B")

	AppStyle    = lipgloss.NewStyle().Padding(1, 2)
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor).MarginBottom(1)

	// Day list (left side)
	ListPanelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(mutedColor).Padding(0, 1)
	SelectedDayStyle = lipgloss.NewStyle().Background(primaryColor).Foreground(fgColor).Bold(true).Padding(0, 1)
	NormalDayStyle   = lipgloss.NewStyle().Foreground(fgColor).Padding(0, 1)
	PastDayStyle     = lipgloss.NewStyle().Foreground(pastColor).Faint(true).Padding(0, 1)
	DayLabelStyle    = lipgloss.NewStyle().Width(11)
	FreeTotalStyle   = lipgloss.NewStyle().Foreground(secondaryColor)
	NoFreeTimeStyle  = lipgloss.NewStyle().Foreground(errorColor)

	// Timeline (right side)
	DetailPanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(primaryColor).Padding(1, 2)
	TitleStyle       = lipgloss.NewStyle().Bold(true).Foreground(primaryColor).MarginBottom(1)
	SlotTimeStyle    = lipgloss.NewStyle().Foreground(mutedColor).Width(22)
	FreeSlotStyle    = lipgloss.NewStyle().Foreground(secondaryColor).Bold(true)
	BusySlotStyle    = lipgloss.NewStyle().Foreground(fgColor)
	TentativeStyle   = lipgloss.NewStyle().Foreground(accentColor)
	LinkStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA")).Underline(true)
	WarningStyle     = lipgloss.NewStyle().Foreground(accentColor).Italic(true)

	// Help bar
	HelpStyle    = lipgloss.NewStyle().Foreground(mutedColor).MarginTop(1)
	HelpKeyStyle = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
)
