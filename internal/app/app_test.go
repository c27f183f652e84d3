package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rbright/weekview/internal/agenda"
	"github.com/rbright/weekview/internal/config"
	"github.com/rbright/weekview/internal/datewindow"
	"github.com/rbright/weekview/internal/eds"
	"github.com/rbright/weekview/internal/launch"
	"github.com/rbright/weekview/internal/prefs"
	"github.com/rbright/weekview/internal/selector"
	"github.com/rbright/weekview/internal/state"
	"github.com/rbright/weekview/internal/weather"
)

type fakeBackend struct {
	mu          sync.Mutex
	unavailable bool
	calendars   []agenda.Calendar
	lists       []agenda.Calendar
	events      map[string][]agenda.CalendarEvent
	reminders   map[string][]agenda.ReminderItem
	failDays    map[string]bool
	fetches     int
	completed   []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		calendars: []agenda.Calendar{
			{UID: "work", Name: "Work", Enabled: true},
			{UID: "home", Name: "Home", Enabled: true},
		},
		lists:     []agenda.Calendar{{UID: "inbox", Name: "Inbox", Enabled: true}},
		events:    map[string][]agenda.CalendarEvent{},
		reminders: map[string][]agenda.ReminderItem{},
		failDays:  map[string]bool{},
	}
}

func (f *fakeBackend) RequestAccess(context.Context) (agenda.Access, error) {
	if f.unavailable {
		return agenda.Access{}, fmt.Errorf("connect: %w", eds.ErrServiceUnavailable)
	}
	return agenda.Access{Calendars: true, Reminders: true}, nil
}

func (f *fakeBackend) FetchDay(_ context.Context, day time.Time, filter agenda.Filter) (agenda.Day, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++

	key := datewindow.Key(day)
	if f.failDays[key] {
		return agenda.Day{}, errors.New("backend timeout")
	}

	out := agenda.Day{Day: datewindow.StartOfDay(day)}
	for _, event := range f.events[key] {
		if filter.Calendars.Contains(event.CalendarID) {
			out.Events = append(out.Events, event)
		}
	}
	for _, reminder := range f.reminders[key] {
		if filter.ReminderLists.Contains(reminder.ListID) && (filter.ShowCompleted || !reminder.Completed) {
			out.Reminders = append(out.Reminders, reminder)
		}
	}
	return out, nil
}

func (f *fakeBackend) SetCompleted(_ context.Context, listID, reminderID string, completed bool) (agenda.ReminderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, fmt.Sprintf("%s/%s=%v", listID, reminderID, completed))
	return agenda.ReminderItem{ID: reminderID, ListID: listID, Completed: completed}, nil
}

func (f *fakeBackend) Calendars(context.Context) ([]agenda.Calendar, error) {
	if f.unavailable {
		return nil, eds.ErrServiceUnavailable
	}
	return f.calendars, nil
}

func (f *fakeBackend) ReminderLists(context.Context) ([]agenda.Calendar, error) {
	if f.unavailable {
		return nil, eds.ErrServiceUnavailable
	}
	return f.lists, nil
}

func (f *fakeBackend) Close() error {
	return nil
}

type fakeWeather struct {
	err error
}

func (f fakeWeather) Current(context.Context) (weather.Report, error) {
	if f.err != nil {
		return weather.Report{}, f.err
	}
	return weather.Report{TemperatureC: 12.4, Condition: "Clear sky", Symbol: "☀"}, nil
}

var testNow = time.Date(2026, 10, 19, 8, 40, 0, 0, time.Local)

func testConfig(t *testing.T) config.Runtime {
	t.Helper()
	tmp := t.TempDir()
	return config.Runtime{
		WeeksBefore:       1,
		WeeksAfter:        2,
		EdgeThresholdDays: 3,
		MaxWeeks:          26,
		Timeout:           5 * time.Second,
		RefreshSchedule:   "@every 1m",
		MaxItems:          8,
		StateDir:          filepath.Join(tmp, "state"),
		PrefsDir:          filepath.Join(tmp, "prefs"),
		MenuDir:           filepath.Join(tmp, "menus"),
		MenuPath:          filepath.Join(tmp, "menus", "weekview.xml"),
		ItemsPath:         filepath.Join(tmp, "state", "items.json"),
	}
}

func newTestApp(t *testing.T, backend *fakeBackend) (*App, *[][]string) {
	t.Helper()

	cfg := testConfig(t)
	store, err := prefs.Open(cfg.PrefsDir)
	if err != nil {
		t.Fatalf("open prefs: %v", err)
	}

	a, err := newApp(cfg, backend, store, fakeWeather{})
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	a.now = func() time.Time { return testNow }

	var calls [][]string
	a.Opener = launch.New("gnome-calendar --date {date}", "gnome-todo", launch.WithStarter(func(_ context.Context, name string, args ...string) error {
		calls = append(calls, append([]string{name}, args...))
		return nil
	}))
	return a, &calls
}

func seedToday(backend *fakeBackend) {
	key := datewindow.Key(testNow)
	due := testNow.Add(8 * time.Hour)
	backend.events[key] = []agenda.CalendarEvent{
		{ID: "standup", Title: "Standup", CalendarID: "work", Start: testNow.Add(20 * time.Minute), End: testNow.Add(35 * time.Minute), URL: "https://meet.google.com/abc-defg-hij"},
		{ID: "dinner", Title: "Dinner", CalendarID: "home", Start: testNow.Add(10 * time.Hour), End: testNow.Add(11 * time.Hour)},
	}
	backend.reminders[key] = []agenda.ReminderItem{
		{ID: "rent", Title: "Pay rent", ListID: "inbox", Due: &due},
	}
}

func TestStatus_FirstRunSeedsDefaultsAndWritesSnapshot(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	seedToday(backend)
	a, _ := newTestApp(t, backend)

	out, err := a.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if out.Text != "20m" || out.Class != "normal" {
		t.Fatalf("unexpected output: %+v", out)
	}
	if !strings.Contains(out.Tooltip, "☀ 12°C Clear sky") {
		t.Fatalf("tooltip missing weather line:\n%s", out.Tooltip)
	}

	if !a.Settings.Initialized() {
		t.Fatal("expected defaults to be initialized")
	}
	filter := a.Settings.Snapshot()
	if filter.Calendars.All || len(filter.Calendars.IDs) != 2 || len(filter.ReminderLists.IDs) != 1 {
		t.Fatalf("unexpected seeded filter: %+v", filter)
	}

	items, err := state.LoadItems(a.cfg.ItemsPath)
	if err != nil {
		t.Fatalf("LoadItems() error = %v", err)
	}
	want := []string{"event_standup", "reminder_rent", "event_dinner"}
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(items))
	}
	for i, id := range want {
		if items[i].ID() != id {
			t.Fatalf("items[%d] = %q, want %q", i, items[i].ID(), id)
		}
	}

	menu, err := os.ReadFile(a.cfg.MenuPath)
	if err != nil {
		t.Fatalf("read menu: %v", err)
	}
	if !strings.Contains(string(menu), "Join call: Standup") {
		t.Fatalf("menu missing join entry:\n%s", menu)
	}
}

func TestStatus_ServiceUnavailableIsUnknown(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	backend.unavailable = true
	a, _ := newTestApp(t, backend)

	out, err := a.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if out.Text != "?" || out.Class != "unknown" {
		t.Fatalf("unexpected output: %+v", out)
	}
	if a.Settings.Initialized() {
		t.Fatal("defaults must not be seeded without a catalog")
	}
}

func TestStatus_ExplicitlyEmptySelection(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	seedToday(backend)
	a, _ := newTestApp(t, backend)

	if _, err := a.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	if err := a.Settings.SetCalendars([]string{}); err != nil {
		t.Fatalf("SetCalendars() error = %v", err)
	}
	if err := a.Settings.SetReminderLists(nil); err != nil {
		t.Fatalf("SetReminderLists() error = %v", err)
	}

	out, err := a.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if out.Text != "∅" {
		t.Fatalf("unexpected output: %+v", out)
	}
	if backend.fetches != 0 {
		t.Fatalf("expected no fetches for an empty selection, got %d", backend.fetches)
	}
}

func TestOpenItem_PrefersMeetingLink(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	seedToday(backend)
	a, calls := newTestApp(t, backend)

	if _, err := a.Status(context.Background()); err != nil {
		t.Fatalf("Status() error = %v", err)
	}

	for _, index := range []int{1, 3, 9} {
		if err := a.OpenItem(context.Background(), index); err != nil {
			t.Fatalf("OpenItem(%d) error = %v", index, err)
		}
	}

	if len(*calls) != 2 {
		t.Fatalf("expected 2 launches, got %q", *calls)
	}
	if (*calls)[0][0] != "xdg-open" || (*calls)[0][1] != "https://meet.google.com/abc-defg-hij" {
		t.Fatalf("unexpected first launch: %q", (*calls)[0])
	}
	if (*calls)[1][0] != "gnome-calendar" || (*calls)[1][2] != "2026-10-19" {
		t.Fatalf("unexpected second launch: %q", (*calls)[1])
	}
}

func TestSelect_StoresChoiceAndIgnoresCancel(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	a, _ := newTestApp(t, backend)

	var offered selector.Dialog
	a.choose = func(_ context.Context, dialog selector.Dialog) ([]string, error) {
		offered = dialog
		return []string{"home"}, nil
	}

	var out strings.Builder
	if err := a.Select(context.Background(), SelectCalendars, &out); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(offered.Sources) != 2 || !offered.Current.Contains("work") {
		t.Fatalf("dialog should offer seeded calendars: %+v", offered)
	}
	if got := a.Settings.Snapshot().Calendars; got.All || len(got.IDs) != 1 || got.IDs[0] != "home" {
		t.Fatalf("unexpected calendars: %+v", got)
	}
	if !strings.Contains(out.String(), "Saved 1 selected calendars") {
		t.Fatalf("unexpected stdout: %q", out.String())
	}

	a.choose = func(context.Context, selector.Dialog) ([]string, error) {
		return nil, selector.ErrSelectionCancelled
	}
	if err := a.Select(context.Background(), SelectReminderLists, &out); err != nil {
		t.Fatalf("cancel should not fail: %v", err)
	}
	if got := a.Settings.Snapshot().ReminderLists; len(got.IDs) != 1 {
		t.Fatalf("cancel changed reminder lists: %+v", got)
	}
}

func TestToggle_RejectsUnknownUID(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, newFakeBackend())

	if err := a.Toggle(context.Background(), SelectCalendars, "nope"); err == nil {
		t.Fatal("expected unknown calendar error")
	}
	if err := a.Toggle(context.Background(), SelectCalendars, "work"); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if a.Settings.Snapshot().Calendars.Contains("work") {
		t.Fatal("expected work to be toggled off")
	}
}

func TestAgenda_ReportsFailedDays(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	seedToday(backend)
	backend.failDays[datewindow.Key(testNow.AddDate(0, 0, 1))] = true
	a, _ := newTestApp(t, backend)
	if _, err := a.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}

	days, err := a.Agenda(context.Background(), testNow, 3)
	if err == nil || !strings.Contains(err.Error(), "2026-10-20") {
		t.Fatalf("expected failure for 2026-10-20, got %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("expected 2 loaded days, got %d", len(days))
	}
	if !datewindow.SameDay(days[0].Day, testNow) || len(days[0].Events) != 2 {
		t.Fatalf("unexpected first day: %+v", days[0])
	}
}

func TestComplete_InvalidatesCache(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	seedToday(backend)
	a, _ := newTestApp(t, backend)
	if _, err := a.Agenda(context.Background(), testNow, 1); err != nil {
		t.Fatalf("Agenda() error = %v", err)
	}
	if a.Cache.Len() != 1 {
		t.Fatalf("expected one cached day, got %d", a.Cache.Len())
	}

	item, err := a.Complete(context.Background(), "inbox", "rent", true)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if !item.Completed || a.Cache.Len() != 0 {
		t.Fatalf("unexpected state: item=%+v cached=%d", item, a.Cache.Len())
	}
	if len(backend.completed) != 1 || backend.completed[0] != "inbox/rent=true" {
		t.Fatalf("unexpected writes: %q", backend.completed)
	}
}

func TestWeatherLine_FailureIsStatusText(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, newFakeBackend())
	a.Weather = fakeWeather{err: weather.ErrLocationUnavailable}
	if got := a.WeatherLine(context.Background()); got != "Location unavailable" {
		t.Fatalf("WeatherLine() = %q", got)
	}
}

func TestResetSettings_ClearsPreferencesAndCache(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	seedToday(backend)
	a, _ := newTestApp(t, backend)

	if _, err := a.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	if err := a.Settings.SetCalendars([]string{"work"}); err != nil {
		t.Fatalf("SetCalendars() error = %v", err)
	}
	if _, err := a.Status(context.Background()); err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if a.Cache.Len() == 0 {
		t.Fatal("expected Status to populate the day cache")
	}

	path, err := a.ResetSettings()
	if err != nil {
		t.Fatalf("ResetSettings() error = %v", err)
	}
	if path != a.cfg.PrefsDir {
		t.Fatalf("ResetSettings() path = %q, want %q", path, a.cfg.PrefsDir)
	}
	if a.Settings.Initialized() {
		t.Fatal("expected defaults to be uninitialized after reset")
	}
	if got := a.Settings.Snapshot(); !got.Calendars.All || !got.ReminderLists.All {
		t.Fatalf("unexpected filter after reset: %+v", got)
	}
	if a.Cache.Len() != 0 {
		t.Fatalf("expected empty cache after reset, got %d entries", a.Cache.Len())
	}
}
