package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rbright/weekview/internal/agenda"
	"github.com/rbright/weekview/internal/datewindow"
)

// chromeHeight is everything around the day list: month header, the two
// week strip rows, weather, a spacer, the error line and help.
const chromeHeight = 7

func (m *Model) View() string {
	if !m.ready {
		return "\n  Loading week view..."
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.stripView())
	b.WriteString("\n")
	b.WriteString(weatherStyle.Render(m.weather))
	b.WriteString("\n\n")

	if m.overlay != nil {
		b.WriteString(m.overlay.View(m.width))
	} else {
		b.WriteString(m.viewport.View())
	}
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render("  " + m.err.Error()))
	}
	b.WriteString("\n")
	b.WriteString(m.helpView())
	return b.String()
}

func (m *Model) headerView() string {
	selected := m.win.Selected()
	title := stripHeaderStyle.Render(selected.Format("January 2006"))
	if m.loading > 0 {
		return title + " " + m.spinner.View()
	}
	return title
}

// stripView renders the week containing the selection, one cell per day.
func (m *Model) stripView() string {
	selected := m.win.Selected()
	if selected.IsZero() {
		return "\n"
	}
	now := m.opts.Now()

	names := make([]string, 0, 7)
	numbers := make([]string, 0, 7)
	for _, day := range datewindow.WeekOf(selected) {
		style := stripDayStyle
		switch {
		case datewindow.SameDay(day, selected):
			style = stripSelectedStyle
		case datewindow.SameDay(day, now):
			style = stripTodayStyle
		}

		number := fmt.Sprintf("%d", day.Day())
		if len(m.items[datewindow.Key(day)]) > 0 {
			number += dotStyle.Render("•")
		}
		names = append(names, style.Render(day.Format("Mon")))
		numbers = append(numbers, style.Render(number))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, names...) + "\n" +
		lipgloss.JoinHorizontal(lipgloss.Top, numbers...)
}

func (m *Model) helpView() string {
	parts := make([]string, 0, len(helpBindings()))
	for _, binding := range helpBindings() {
		help := binding.Help()
		parts = append(parts, helpKeyStyle.Render(help.Key)+" "+helpStyle.Render(help.Desc))
	}
	return "  " + strings.Join(parts, helpStyle.Render("  "))
}

// render lays out every day section into the viewport and keeps the cursor
// row on screen.
func (m *Model) render() {
	now := m.opts.Now()
	var lines []string
	cursorLine := 0
	entryIdx := 0

	for _, d := range m.snap.Dates {
		lines = append(lines, dayHeader(d, now))

		_, loaded := m.snap.Day(d)
		items := m.items[datewindow.Key(d)]
		if len(items) == 0 {
			label := emptyDayStyle.Render("NO EVENTS OR REMINDERS")
			if !loaded {
				label = emptyDayStyle.Render("Loading...")
			}
			if entryIdx == m.cursor {
				cursorLine = len(lines)
			}
			lines = append(lines, m.prefix(entryIdx)+label)
			entryIdx++
			lines = append(lines, "")
			continue
		}

		for _, item := range items {
			if entryIdx == m.cursor {
				cursorLine = len(lines)
			}
			lines = append(lines, m.prefix(entryIdx)+itemRow(item))
			entryIdx++
		}
		lines = append(lines, "")
	}

	m.viewport.SetContent(strings.Join(lines, "\n"))

	// Keep the day header above the cursor visible when scrolling up.
	top := max(cursorLine-1, 0)
	switch {
	case top < m.viewport.YOffset:
		m.viewport.SetYOffset(top)
	case cursorLine >= m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(cursorLine - m.viewport.Height + 1)
	}
}

func (m *Model) prefix(idx int) string {
	if idx == m.cursor {
		return cursorStyle.Render("▸ ")
	}
	return "  "
}

func dayHeader(d, now time.Time) string {
	name := strings.ToUpper(d.Format("Monday"))
	style := dayNameStyle
	switch {
	case datewindow.SameDay(d, now):
		name = "TODAY"
		style = dayNameTodayStyle
	case datewindow.SameDay(d, datewindow.AddDays(now, 1)):
		name = "TOMORROW"
	}
	return style.Render(name) + " " + dayDateStyle.Render(d.Format("02/01/2006"))
}

func itemRow(item agenda.Item) string {
	switch item.Kind {
	case agenda.KindEvent:
		return eventRow(*item.Event)
	case agenda.KindReminder:
		return reminderRow(*item.Reminder)
	default:
		return ""
	}
}

func eventRow(event agenda.CalendarEvent) string {
	var b strings.Builder
	b.WriteString(swatch(event.CalendarColor))
	b.WriteString(" ")
	if event.AllDay {
		b.WriteString(allDayStyle.Render("All Day"))
	} else {
		b.WriteString(itemMetaStyle.Render(event.Start.Format("15:04") + " - " + event.End.Format("15:04")))
	}
	b.WriteString(" ")
	b.WriteString(itemTitleStyle.Render(event.Title))
	if location := event.LocationLabel(); location != "" {
		b.WriteString(itemMetaStyle.Render(" · " + location))
	}
	return b.String()
}

func reminderRow(reminder agenda.ReminderItem) string {
	mark := "○"
	title := itemTitleStyle.Render(reminder.Title)
	if reminder.Completed {
		mark = "●"
		title = completedStyle.Render(reminder.Title)
	}

	var b strings.Builder
	b.WriteString(swatch(reminder.ListColor))
	b.WriteString(" ")
	b.WriteString(mark)
	b.WriteString(" ")
	if reminder.Due != nil && !reminder.AllDay {
		b.WriteString(itemMetaStyle.Render(reminder.Due.Format("15:04")))
		b.WriteString(" ")
	}
	b.WriteString(title)
	if reminder.ListName != "" {
		b.WriteString(itemMetaStyle.Render(" · " + reminder.ListName))
	}
	return b.String()
}
