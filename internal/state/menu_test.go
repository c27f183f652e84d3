package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rbright/weekview/internal/agenda"
)

func TestWriteMenu_ContainsExpectedActions(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	menuPath := filepath.Join(tmp, "weekview.xml")

	now := time.Date(2026, 10, 19, 8, 50, 0, 0, time.UTC)
	next := agenda.CalendarEvent{Title: "Daily Standup", Start: now.Add(10 * time.Minute), URL: "https://meet.google.com/abc-defg-hij"}
	due := now.Add(3 * time.Hour)
	items := []agenda.Item{
		{Kind: agenda.KindEvent, Event: &next},
		{Kind: agenda.KindReminder, Reminder: &agenda.ReminderItem{Title: "Ship <release>", Due: &due, Completed: true}},
	}

	if err := WriteMenu(menuPath, MenuData{Next: &next, Items: items, Now: now}); err != nil {
		t.Fatalf("write menu: %v", err)
	}

	raw, err := os.ReadFile(menuPath)
	if err != nil {
		t.Fatalf("read menu: %v", err)
	}
	text := string(raw)

	for _, expected := range []string{
		"join_next", "Join call: Daily Standup", "open_1", "open_2",
		"11:50 · ☑ Ship &lt;release&gt;", "select_calendars", "select_lists",
		"Show Completed Reminders", "refresh",
	} {
		if !strings.Contains(text, expected) {
			t.Fatalf("missing %q in menu:\n%s", expected, text)
		}
	}
}

func TestWriteMenu_EmptyShowsStatusLine(t *testing.T) {
	t.Parallel()

	menuPath := filepath.Join(t.TempDir(), "weekview.xml")
	if err := WriteMenu(menuPath, MenuData{StatusLine: "Calendar unavailable", ShowCompleted: true}); err != nil {
		t.Fatalf("write menu: %v", err)
	}

	raw, err := os.ReadFile(menuPath)
	if err != nil {
		t.Fatalf("read menu: %v", err)
	}
	text := string(raw)
	if !strings.Contains(text, "noop") || !strings.Contains(text, "Calendar unavailable") {
		t.Fatalf("expected status row, got:\n%s", text)
	}
	if !strings.Contains(text, "Hide Completed Reminders") {
		t.Fatal("expected hide label when completed reminders are shown")
	}
}
