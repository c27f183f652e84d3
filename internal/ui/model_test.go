package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rbright/weekview/internal/agenda"
	"github.com/rbright/weekview/internal/datewindow"
	"github.com/rbright/weekview/internal/daycache"
	"github.com/rbright/weekview/internal/prefs"
	"github.com/rbright/weekview/internal/settings"
	"github.com/rbright/weekview/internal/window"
)

var testNow = time.Date(2026, 10, 19, 8, 40, 0, 0, time.Local)

var (
	testCalendars = []agenda.Calendar{
		{UID: "work", Name: "Work", Enabled: true},
		{UID: "home", Name: "Home", Enabled: true},
	}
	testLists = []agenda.Calendar{{UID: "inbox", Name: "Inbox", Enabled: true}}
)

type fakeSource struct {
	mu        sync.Mutex
	fetches   map[string]int
	completed map[string]bool
	setErr    error
}

func (f *fakeSource) RequestAccess(context.Context) (agenda.Access, error) {
	return agenda.Access{Calendars: true, Reminders: true}, nil
}

func (f *fakeSource) FetchDay(_ context.Context, day time.Time, filter agenda.Filter) (agenda.Day, error) {
	key := datewindow.Key(day)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches[key]++

	result := agenda.Day{Day: day}
	nine := day.Add(9 * time.Hour)
	if filter.Calendars.Contains("work") && datewindow.SameDay(day, testNow) {
		result.Events = []agenda.CalendarEvent{{
			ID: "standup", Title: "Standup", Start: nine, End: nine.Add(15 * time.Minute), CalendarID: "work",
		}}
	}
	if filter.ReminderLists.Contains("inbox") {
		result.Reminders = []agenda.ReminderItem{{
			ID: "r-" + key, Title: "Pay rent", Due: &nine, ListID: "inbox", Completed: f.completed["r-"+key],
		}}
	}
	return result, nil
}

func (f *fakeSource) SetCompleted(_ context.Context, listID, reminderID string, completed bool) (agenda.ReminderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return agenda.ReminderItem{}, f.setErr
	}
	f.completed[reminderID] = completed
	return agenda.ReminderItem{ID: reminderID, ListID: listID, Completed: completed}, nil
}

func (f *fakeSource) fetchCount(day time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[datewindow.Key(day)]
}

type fakeServices struct {
	mu         sync.Mutex
	bootstraps int
	opened     []agenda.Item
}

func (f *fakeServices) Bootstrap(context.Context) (agenda.Access, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bootstraps++
	return agenda.Access{Calendars: true, Reminders: true}, nil
}

func (f *fakeServices) Catalog(context.Context) ([]agenda.Calendar, []agenda.Calendar, error) {
	return testCalendars, testLists, nil
}

func (f *fakeServices) WeatherLine(context.Context) string {
	return "☀ 12°C Clear sky"
}

func (f *fakeServices) Open(_ context.Context, item agenda.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, item)
	return nil
}

type harness struct {
	model    *Model
	source   *fakeSource
	services *fakeServices
	settings *settings.Settings
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store, err := prefs.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open prefs: %v", err)
	}
	s, err := settings.Load(store)
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if _, err := s.InitializeDefaults(testCalendars, testLists); err != nil {
		t.Fatalf("initialize defaults: %v", err)
	}

	source := &fakeSource{fetches: map[string]int{}, completed: map[string]bool{}}
	cache := daycache.New(source)
	win, err := window.New(window.DefaultConfig(), source, cache, s, window.WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("new window: %v", err)
	}

	services := &fakeServices{}
	m, err := New(context.Background(), services, win, s, Options{Now: func() time.Time { return testNow }})
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	t.Cleanup(m.Close)

	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	drive(m, m.bootstrap())
	return &harness{model: m, source: source, services: services, settings: s}
}

// drive runs cmd and feeds every resulting message back into the model until
// nothing is left. Commands that block (settings waits) are abandoned.
func drive(m *Model, cmd tea.Cmd) {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}

		msg, ok := runCmd(next)
		if !ok {
			continue
		}
		switch msg := msg.(type) {
		case nil, spinner.TickMsg, refreshTickMsg, tea.QuitMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			_, follow := m.Update(msg)
			queue = append(queue, follow)
		}
	}
}

func runCmd(cmd tea.Cmd) (tea.Msg, bool) {
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		return msg, true
	case <-time.After(200 * time.Millisecond):
		return nil, false
	}
}

func press(m *Model, keys ...tea.KeyMsg) {
	for _, msg := range keys {
		_, cmd := m.Update(msg)
		drive(m, cmd)
	}
}

func runes(value string) []tea.KeyMsg {
	out := make([]tea.KeyMsg, 0, len(value))
	for _, r := range value {
		out = append(out, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return out
}

var (
	spaceKey = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	enterKey = tea.KeyMsg{Type: tea.KeyEnter}
	escKey   = tea.KeyMsg{Type: tea.KeyEsc}
)

func day(month time.Month, d int) time.Time {
	return time.Date(2026, month, d, 0, 0, 0, 0, time.Local)
}

func TestModel_BootstrapLoadsInitialWindow(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	m := h.model

	if got := len(m.win.Dates()); got != 28 {
		t.Fatalf("expected 28 materialized days, got %d", got)
	}
	if !m.win.InitialLoadComplete() {
		t.Fatalf("expected initial load to be complete")
	}
	if m.loading != 0 {
		t.Fatalf("expected no pending loads, got %d", m.loading)
	}

	view := m.View()
	for _, want := range []string{"TODAY", "19/10/2026", "TOMORROW", "Standup", "Pay rent", "October 2026"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}

	_, item, ok := m.focused()
	if !ok || item.ID() != "event_standup" {
		t.Fatalf("expected cursor on today's first item, got %+v (ok=%v)", item, ok)
	}
}

func TestModel_DayAndWeekNavigation(t *testing.T) {
	t.Parallel()

	m := newHarness(t).model

	steps := []struct {
		keys []tea.KeyMsg
		want time.Time
	}{
		{runes("l"), day(time.October, 20)},
		{runes("h"), day(time.October, 19)},
		{runes("L"), day(time.October, 26)},
		{runes("H"), day(time.October, 19)},
		{runes("H"), day(time.October, 12)},
		{runes("t"), day(time.October, 19)},
	}
	for idx, step := range steps {
		press(m, step.keys...)
		if got := m.win.Selected(); !got.Equal(step.want) {
			t.Fatalf("step %d: selected %s, want %s", idx, datewindow.Key(got), datewindow.Key(step.want))
		}
		e, _, _ := m.focused()
		if !datewindow.SameDay(e.day, step.want) {
			t.Fatalf("step %d: cursor on %s, want %s", idx, datewindow.Key(e.day), datewindow.Key(step.want))
		}
	}
}

func TestModel_ScrollingMovesSelection(t *testing.T) {
	t.Parallel()

	m := newHarness(t).model

	// Today has two rows; the second j lands on tomorrow.
	press(m, runes("jj")...)
	if got := m.win.Selected(); !got.Equal(day(time.October, 20)) {
		t.Fatalf("expected scrolling to select Oct 20, got %s", datewindow.Key(got))
	}

	press(m, runes("k")...)
	if got := m.win.Selected(); !got.Equal(day(time.October, 19)) {
		t.Fatalf("expected scrolling back to select Oct 19, got %s", datewindow.Key(got))
	}
}

func TestModel_ExtendsWindowNearEdge(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	m := h.model

	press(m, runes("LL")...)
	if got := len(m.win.Dates()); got != 28 {
		t.Fatalf("expected no extension yet, got %d days", got)
	}

	press(m, runes("lll")...)
	if got := len(m.win.Dates()); got != 35 {
		t.Fatalf("expected one added week, got %d days", got)
	}
	if _, ok := m.win.Snapshot().Day(day(time.November, 15)); !ok {
		t.Fatalf("expected the added week to be populated")
	}
	if h.source.fetchCount(day(time.November, 9)) != 1 {
		t.Fatalf("expected one fetch for the added week")
	}
}

func TestModel_ToggleReminder(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	m := h.model

	press(m, runes("j")...)
	_, item, ok := m.focused()
	if !ok || item.Kind != agenda.KindReminder {
		t.Fatalf("expected cursor on a reminder, got %+v", item)
	}

	press(m, spaceKey)
	if !h.source.completed["r-2026-10-19"] {
		t.Fatalf("expected reminder to be marked completed")
	}
	_, item, ok = m.focused()
	if !ok || !item.Reminder.Completed {
		t.Fatalf("expected refreshed day to show completion, got %+v", item)
	}

	h.source.setErr = errors.New("read-only list")
	press(m, spaceKey)
	if m.err == nil || !strings.Contains(m.View(), "read-only list") {
		t.Fatalf("expected toggle failure to surface, err=%v", m.err)
	}
	_, item, _ = m.focused()
	if !item.Reminder.Completed {
		t.Fatalf("failed toggle must leave cached day untouched")
	}
}

func TestModel_SettingsOverlayResetsWindow(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	m := h.model
	today := day(time.October, 19)

	press(m, runes("s")...)
	if m.overlay == nil {
		t.Fatalf("expected settings overlay to open")
	}
	if view := m.View(); !strings.Contains(view, "Reminder lists") || !strings.Contains(view, "[x]") {
		t.Fatalf("unexpected overlay view:\n%s", view)
	}

	// First row is the work calendar.
	press(m, spaceKey)
	if h.settings.Snapshot().Calendars.Contains("work") {
		t.Fatalf("expected work calendar to be deselected")
	}

	drive(m, m.waitForSettings())
	if m.overlay.filter.Calendars.Contains("work") {
		t.Fatalf("expected overlay to reflect the new filter")
	}
	if got := h.source.fetchCount(today); got != 2 {
		t.Fatalf("expected today to be refetched after filter change, got %d fetches", got)
	}

	press(m, escKey)
	if m.overlay != nil {
		t.Fatalf("expected esc to close the overlay")
	}
	if strings.Contains(m.View(), "Standup") {
		t.Fatalf("deselected calendar still rendered")
	}
}

func TestModel_EnterOpensFocusedItem(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	press(h.model, enterKey)

	h.services.mu.Lock()
	defer h.services.mu.Unlock()
	if len(h.services.opened) != 1 || h.services.opened[0].Title() != "Standup" {
		t.Fatalf("unexpected opened items: %+v", h.services.opened)
	}
}

func TestModel_RefreshTickReloadsWithoutReinitializing(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	m := h.model
	press(m, runes("l")...)

	_, cmd := m.Update(refreshTickMsg{})
	drive(m, cmd)

	if got := m.win.Selected(); !got.Equal(day(time.October, 20)) {
		t.Fatalf("refresh must keep the selection, got %s", datewindow.Key(got))
	}
	if got := h.source.fetchCount(day(time.October, 19)); got != 2 {
		t.Fatalf("expected a forced reload, got %d fetches", got)
	}
	if h.services.bootstraps != 2 {
		t.Fatalf("expected access to be rechecked, got %d bootstraps", h.services.bootstraps)
	}
	if m.weather != "☀ 12°C Clear sky" {
		t.Fatalf("unexpected weather line %q", m.weather)
	}
}
