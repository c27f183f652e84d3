package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rbright/weekview/internal/agenda"
)

type rowKind int

const (
	rowCalendar rowKind = iota
	rowReminderList
	rowShowCompleted
)

type overlayRow struct {
	kind   rowKind
	source agenda.Calendar
}

// settingsOverlay lists calendars and reminder lists with their selection
// state. Changes go straight to the settings owner.
type settingsOverlay struct {
	calendars []agenda.Calendar
	lists     []agenda.Calendar
	filter    agenda.Filter
	rows      []overlayRow
	cursor    int
}

func newSettingsOverlay(calendars, lists []agenda.Calendar, filter agenda.Filter) *settingsOverlay {
	o := &settingsOverlay{calendars: calendars, lists: lists, filter: filter}
	for _, calendar := range calendars {
		if calendar.Enabled {
			o.rows = append(o.rows, overlayRow{kind: rowCalendar, source: calendar})
		}
	}
	for _, list := range lists {
		if list.Enabled {
			o.rows = append(o.rows, overlayRow{kind: rowReminderList, source: list})
		}
	}
	o.rows = append(o.rows, overlayRow{kind: rowShowCompleted})
	return o
}

func (m *Model) handleOverlayKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	o := m.overlay
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.CloseOverlay):
		m.overlay = nil
		return m, nil

	case key.Matches(msg, keys.Up):
		o.cursor = clamp(o.cursor-1, 0, len(o.rows)-1)

	case key.Matches(msg, keys.Down):
		o.cursor = clamp(o.cursor+1, 0, len(o.rows)-1)

	case key.Matches(msg, keys.Toggle), key.Matches(msg, keys.Open):
		if err := m.toggleOverlayRow(o.rows[o.cursor]); err != nil {
			m.err = err
		}
		o.filter = m.settings.Snapshot()
	}
	return m, nil
}

func (m *Model) toggleOverlayRow(row overlayRow) error {
	switch row.kind {
	case rowCalendar:
		return m.settings.ToggleCalendar(row.source.UID, m.overlay.calendars)
	case rowReminderList:
		return m.settings.ToggleReminderList(row.source.UID, m.overlay.lists)
	default:
		return m.settings.ToggleShowCompleted()
	}
}

func (o *settingsOverlay) View(width int) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Calendars"))
	b.WriteString("\n")

	wroteLists := false
	for idx, row := range o.rows {
		if row.kind == rowReminderList && !wroteLists {
			b.WriteString("\n")
			b.WriteString(sectionStyle.Render("Reminder lists"))
			b.WriteString("\n")
			wroteLists = true
		}
		if row.kind == rowShowCompleted {
			b.WriteString("\n")
		}

		prefix := "  "
		if idx == o.cursor {
			prefix = cursorStyle.Render("▸ ")
		}
		b.WriteString(prefix)
		b.WriteString(o.rowLabel(row))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("space toggle  esc close"))

	style := overlayStyle
	if width > 8 {
		style = style.Width(min(width-4, 72))
	}
	return style.Render(b.String())
}

func (o *settingsOverlay) rowLabel(row overlayRow) string {
	switch row.kind {
	case rowCalendar:
		return fmt.Sprintf("%s %s %s", checkbox(o.filter.Calendars.Contains(row.source.UID)), swatch(row.source.Color), sourceName(row.source))
	case rowReminderList:
		return fmt.Sprintf("%s %s %s", checkbox(o.filter.ReminderLists.Contains(row.source.UID)), swatch(row.source.Color), sourceName(row.source))
	default:
		return fmt.Sprintf("%s Show completed reminders", checkbox(o.filter.ShowCompleted))
	}
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func sourceName(source agenda.Calendar) string {
	name := strings.TrimSpace(source.Name)
	if name == "" {
		name = source.UID
	}
	if account := strings.TrimSpace(source.AccountName); account != "" {
		return fmt.Sprintf("%s %s", name, itemMetaStyle.Render("("+account+")"))
	}
	return name
}
