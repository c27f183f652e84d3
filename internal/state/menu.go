package state

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rbright/weekview/internal/agenda"
)

type MenuData struct {
	StatusLine    string
	Next          *agenda.CalendarEvent
	Items         []agenda.Item
	ShowCompleted bool
	Now           time.Time
}

func WriteMenu(path string, data MenuData) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create menu dir: %w", err)
	}
	if data.Now.IsZero() {
		data.Now = time.Now()
	}

	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString("<interface>\n")
	b.WriteString("  <object class=\"GtkMenu\" id=\"menu\">\n")

	if data.Next != nil {
		prefix := "Open next"
		if data.Next.JoinURL() != "" {
			prefix = "Join call"
		}
		writeMenuItem(&b, "join_next", fmt.Sprintf("%s: %s", prefix, fallback(data.Next.Title, "Event")))
		writeSeparator(&b, "separator_next")
	}

	if len(data.Items) > 0 {
		for idx, item := range data.Items {
			writeMenuItem(&b, fmt.Sprintf("open_%d", idx+1), itemLabel(item, data.Now))
		}
	} else {
		writeMenuItem(&b, "noop", fallback(data.StatusLine, "No events or reminders"))
	}

	completedLabel := "Show Completed Reminders"
	if data.ShowCompleted {
		completedLabel = "Hide Completed Reminders"
	}

	writeSeparator(&b, "separator_actions")
	writeMenuItem(&b, "select_calendars", "Select Calendars…")
	writeMenuItem(&b, "select_lists", "Select Reminder Lists…")
	writeMenuItem(&b, "toggle_completed", completedLabel)
	writeMenuItem(&b, "refresh", "Refresh")

	b.WriteString("  </object>\n")
	b.WriteString("</interface>\n")

	return writeFileAtomically(path, []byte(b.String()))
}

func itemLabel(item agenda.Item, now time.Time) string {
	switch item.Kind {
	case agenda.KindEvent:
		if item.Event.AllDay {
			return fmt.Sprintf("All day · %s", fallback(item.Event.Title, "Event"))
		}
		return fmt.Sprintf("%s · %s", formatStart(item.Event.Start, now), fallback(item.Event.Title, "Event"))
	case agenda.KindReminder:
		mark := "☐"
		if item.Reminder.Completed {
			mark = "☑"
		}
		if item.Reminder.Due == nil || item.Reminder.AllDay {
			return fmt.Sprintf("%s %s", mark, fallback(item.Reminder.Title, "Reminder"))
		}
		return fmt.Sprintf("%s · %s %s", formatStart(*item.Reminder.Due, now), mark, fallback(item.Reminder.Title, "Reminder"))
	default:
		return ""
	}
}

func writeMenuItem(b *strings.Builder, id, label string) {
	b.WriteString("    <child>\n")
	_, _ = fmt.Fprintf(b, "      <object class=\"GtkMenuItem\" id=\"%s\">\n", html.EscapeString(id))
	_, _ = fmt.Fprintf(b, "        <property name=\"label\">%s</property>\n", html.EscapeString(label))
	b.WriteString("      </object>\n")
	b.WriteString("    </child>\n")
}

func writeSeparator(b *strings.Builder, id string) {
	b.WriteString("    <child>\n")
	_, _ = fmt.Fprintf(b, "      <object class=\"GtkSeparatorMenuItem\" id=\"%s\" />\n", html.EscapeString(id))
	b.WriteString("    </child>\n")
}

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func formatStart(value, now time.Time) string {
	if now.Year() == value.Year() && now.YearDay() == value.YearDay() {
		return value.Format("15:04")
	}
	return value.Format("Mon 15:04")
}
