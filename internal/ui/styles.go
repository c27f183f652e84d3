package ui

import "github.com/charmbracelet/lipgloss"

var (
	primary    = lipgloss.Color("#7C3AED")
	secondary  = lipgloss.Color("#A78BFA")
	success    = lipgloss.Color("#10B981")
	danger     = lipgloss.Color("#EF4444")
	muted      = lipgloss.Color("#6B7280")
	text       = lipgloss.Color("#F9FAFB")
	todayColor = lipgloss.Color("#3B82F6")

	stripDayStyle      = lipgloss.NewStyle().Width(7).Align(lipgloss.Center)
	stripSelectedStyle = stripDayStyle.Background(primary).Foreground(text).Bold(true)
	stripTodayStyle    = stripDayStyle.Foreground(todayColor).Bold(true)
	stripHeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(primary).Padding(0, 1)

	dayNameStyle      = lipgloss.NewStyle().Bold(true).Foreground(text)
	dayNameTodayStyle = dayNameStyle.Foreground(todayColor)
	dayDateStyle      = lipgloss.NewStyle().Foreground(muted)
	emptyDayStyle     = lipgloss.NewStyle().Foreground(muted).Italic(true)

	allDayStyle    = lipgloss.NewStyle().Foreground(text).Background(lipgloss.Color("#374151")).Padding(0, 1)
	itemTitleStyle = lipgloss.NewStyle().Foreground(text)
	itemMetaStyle  = lipgloss.NewStyle().Foreground(muted)
	completedStyle = lipgloss.NewStyle().Foreground(muted).Strikethrough(true)
	cursorStyle    = lipgloss.NewStyle().Foreground(primary).Bold(true)
	dotStyle       = lipgloss.NewStyle().Foreground(success)

	weatherStyle = lipgloss.NewStyle().Foreground(secondary).Padding(0, 1)
	errorStyle   = lipgloss.NewStyle().Foreground(danger)
	helpStyle    = lipgloss.NewStyle().Foreground(muted)
	helpKeyStyle = lipgloss.NewStyle().Bold(true).Foreground(secondary)

	overlayStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primary).
			Padding(1, 2)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(secondary)
)

// swatch renders a calendar color bar, falling back to the accent color.
func swatch(color string) string {
	if color == "" {
		return lipgloss.NewStyle().Foreground(muted).Render("▍")
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("▍")
}
