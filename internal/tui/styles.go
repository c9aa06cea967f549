package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/theakshaypant/calmerge/internal/core"
)

var (
	// Colors
	primaryColor   = lipgloss.Color("#7C3AED") // Purple
	secondaryColor = lipgloss.Color("#10B981") // Green
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	accentColor    = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444") // Red
	bgColor        = lipgloss.Color("#1F2937") // Dark gray
	fgColor        = lipgloss.Color("#F9FAFB") // Light

	// Layout styles
	AppStyle    = lipgloss.NewStyle().Padding(1, 2)
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)

	// List panel (left side)
	ListPanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(mutedColor).Padding(0, 1)

	// Detail panel (right side)
	DetailPanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(primaryColor).Padding(1, 2)

	// Event list item styles
	SelectedItemStyle = lipgloss.NewStyle().Background(primaryColor).Foreground(fgColor).Bold(true).Padding(0, 1)
	SelectedPastStyle = lipgloss.NewStyle().Background(lipgloss.Color("#374151")).Foreground(lipgloss.Color("#9CA3AF")).Padding(0, 1)
	NormalItemStyle   = lipgloss.NewStyle().Foreground(fgColor).Padding(0, 1)
	PastItemStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#52525B")).Faint(true).Padding(0, 1)
	TimeStyle         = lipgloss.NewStyle().Foreground(secondaryColor).Width(12)
	PastTimeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#52525B")).Faint(true).Width(12)
	DurationStyle     = lipgloss.NewStyle().Foreground(mutedColor).Width(6)

	// Detail panel styles
	TitleStyle          = lipgloss.NewStyle().Bold(true).Foreground(primaryColor).MarginBottom(1)
	LabelStyle          = lipgloss.NewStyle().Foreground(accentColor).Bold(true).Width(14)
	ValueStyle          = lipgloss.NewStyle().Foreground(fgColor)
	LinkStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA")).Underline(true)
	StatusAcceptedStyle = lipgloss.NewStyle().Foreground(secondaryColor)
	StatusDeclinedStyle = lipgloss.NewStyle().Foreground(errorColor)
	StatusPendingStyle  = lipgloss.NewStyle().Foreground(accentColor)

	// Help bar
	HelpStyle    = lipgloss.NewStyle().Foreground(mutedColor).MarginTop(1)
	HelpKeyStyle = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)

	// In progress indicator
	InProgressStyle = lipgloss.NewStyle().Background(secondaryColor).Foreground(fgColor).Bold(true).Padding(0, 1)

	// Month grid
	DayCellStyle      = lipgloss.NewStyle().Width(6).Align(lipgloss.Center)
	OtherMonthStyle   = DayCellStyle.Foreground(lipgloss.Color("#374151"))
	TodayCellStyle    = DayCellStyle.Foreground(secondaryColor).Bold(true)
	SelectedCellStyle = DayCellStyle.Background(primaryColor).Foreground(fgColor).Bold(true)
	WeekdayStyle      = DayCellStyle.Foreground(accentColor).Bold(true)

	// Login form
	FormStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(primaryColor).Padding(1, 3).Width(52)
	FocusedFieldMark = lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Render("›")
	ErrorTextStyle   = lipgloss.NewStyle().Foreground(errorColor)

	// Alert modal
	ModalStyle = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(errorColor).
			Background(bgColor).Foreground(fgColor).Padding(1, 3).Width(56)
	ConfirmStyle = ModalStyle.BorderForeground(accentColor)

	// Source toggles
	SourceOnStyle  = lipgloss.NewStyle().Bold(true)
	SourceOffStyle = lipgloss.NewStyle().Foreground(mutedColor).Strikethrough(true)
)

// providerColors tags each source in lists and toggles.
var providerColors = map[core.Provider]lipgloss.Color{
	core.ProviderLocal:     lipgloss.Color("#A78BFA"),
	core.ProviderGoogle:    lipgloss.Color("#60A5FA"),
	core.ProviderApple:     lipgloss.Color("#F472B6"),
	core.ProviderMicrosoft: lipgloss.Color("#34D399"),
}

func providerStyle(p core.Provider) lipgloss.Style {
	c, ok := providerColors[p]
	if !ok {
		c = mutedColor
	}
	return lipgloss.NewStyle().Foreground(c)
}
