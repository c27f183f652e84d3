package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rbright/weekview/internal/agenda"
	"github.com/rbright/weekview/internal/config"
	"github.com/rbright/weekview/internal/datewindow"
	"github.com/rbright/weekview/internal/daycache"
	"github.com/rbright/weekview/internal/eds"
	"github.com/rbright/weekview/internal/launch"
	"github.com/rbright/weekview/internal/logging"
	"github.com/rbright/weekview/internal/prefs"
	"github.com/rbright/weekview/internal/selector"
	"github.com/rbright/weekview/internal/settings"
	"github.com/rbright/weekview/internal/state"
	"github.com/rbright/weekview/internal/waybar"
	"github.com/rbright/weekview/internal/weather"
	"github.com/rbright/weekview/internal/window"
)

const nextEventHorizon = 12 * time.Hour

// Backend is the platform agenda service together with its catalog.
type Backend interface {
	agenda.Source
	agenda.Catalog
	Close() error
}

type WeatherService interface {
	Current(ctx context.Context) (weather.Report, error)
}

// App wires the agenda core to the desktop: the EDS backend, persisted
// preferences, the day cache and the infinite day window.
type App struct {
	cfg       config.Runtime
	backend   Backend
	prefsPath string

	Settings *settings.Settings
	Cache    *daycache.Cache
	Window   *window.Window
	Opener   *launch.Opener
	Weather  WeatherService

	now    func() time.Time
	choose func(ctx context.Context, dialog selector.Dialog) ([]string, error)
}

func New(cfg config.Runtime) (*App, error) {
	store, err := prefs.Open(cfg.PrefsDir)
	if err != nil {
		return nil, err
	}

	var locator weather.Locator = weather.GeoClue{DesktopID: "weekview"}
	if cfg.HasLocation {
		locator = weather.Static{Latitude: cfg.Latitude, Longitude: cfg.Longitude}
	}

	return newApp(cfg, eds.NewSource(), store, weather.NewService(locator, cfg.WeatherURL, cfg.Timeout))
}

func newApp(cfg config.Runtime, backend Backend, store *prefs.Store, wx WeatherService) (*App, error) {
	filterSettings, err := settings.Load(store)
	if err != nil {
		return nil, err
	}

	cache := daycache.New(backend)
	w, err := window.New(WindowConfig(cfg), backend, cache, filterSettings)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:       cfg,
		backend:   backend,
		prefsPath: store.Path(),
		Settings:  filterSettings,
		Cache:     cache,
		Window:    w,
		Opener:    launch.New(cfg.EventOpenCommand, cfg.ReminderOpenCommand),
		Weather:   wx,
		now:       time.Now,
		choose:    selector.Select,
	}, nil
}

// WindowConfig maps runtime settings onto the window layout.
func WindowConfig(cfg config.Runtime) window.Config {
	wc := window.DefaultConfig()
	wc.WeeksBefore = cfg.WeeksBefore
	wc.WeeksAfter = cfg.WeeksAfter
	wc.EdgeThresholdDays = cfg.EdgeThresholdDays
	wc.ExtendCooldown = cfg.ExtendCooldown
	wc.MaxWeeks = cfg.MaxWeeks
	return wc
}

func (a *App) Config() config.Runtime {
	return a.cfg
}

func (a *App) Close() error {
	return a.backend.Close()
}

// Bootstrap requests access and, on the very first run, seeds the filter
// settings with every known calendar and reminder list.
func (a *App) Bootstrap(ctx context.Context) (agenda.Access, error) {
	access, err := a.backend.RequestAccess(ctx)
	if errors.Is(err, eds.ErrServiceUnavailable) {
		return access, err
	}
	if err != nil {
		// A partial catalog must not seed defaults.
		logging.Warn("agenda access incomplete", "err", err)
		return access, err
	}

	if a.Settings.Initialized() {
		return access, nil
	}

	calendars, lists, err := a.Catalog(ctx)
	if err != nil {
		return access, err
	}
	seeded, err := a.Settings.InitializeDefaults(calendars, lists)
	if err != nil {
		return access, err
	}
	if seeded {
		logging.Info("initialized default selection", "calendars", len(calendars), "lists", len(lists))
	}
	return access, nil
}

func (a *App) Catalog(ctx context.Context) (calendars, lists []agenda.Calendar, err error) {
	calendars, err = a.backend.Calendars(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list calendars: %w", err)
	}
	lists, err = a.backend.ReminderLists(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list reminder lists: %w", err)
	}
	return calendars, lists, nil
}

// Agenda loads count consecutive days starting at from, in date order.
// Days that failed to load are reported as one joined error alongside the
// days that did load.
func (a *App) Agenda(ctx context.Context, from time.Time, count int) ([]agenda.Day, error) {
	if count < 1 {
		count = 1
	}
	start := datewindow.StartOfDay(from)
	dates := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		dates = append(dates, datewindow.AddDays(start, i))
	}

	loaded := a.Window.Populate(ctx, dates, false)

	days := make([]agenda.Day, 0, count)
	for _, d := range dates {
		if day, ok := a.Cache.Get(d); ok {
			days = append(days, day)
		}
	}

	if len(loaded.Failed) > 0 {
		keys := make([]string, 0, len(loaded.Failed))
		for _, d := range loaded.Failed {
			keys = append(keys, datewindow.Key(d))
		}
		return days, fmt.Errorf("failed to load %s", strings.Join(keys, ", "))
	}
	return days, nil
}

// Complete marks a reminder done, or open again when completed is false.
func (a *App) Complete(ctx context.Context, listID, reminderID string, completed bool) (agenda.ReminderItem, error) {
	item, err := a.backend.SetCompleted(ctx, listID, reminderID, completed)
	if err != nil {
		return agenda.ReminderItem{}, err
	}
	a.Cache.InvalidateAll()
	return item, nil
}

func (a *App) WeatherLine(ctx context.Context) string {
	if a.Weather == nil {
		return ""
	}
	report, err := a.Weather.Current(ctx)
	if err != nil {
		logging.Warn("weather unavailable", "err", err)
		return weather.StatusText(err)
	}
	return report.String()
}

// Status renders today's agenda for the bar and refreshes the menu and the
// items snapshot that open-item reads.
func (a *App) Status(ctx context.Context) (waybar.Output, error) {
	if err := state.EnsureDirs(a.cfg.StateDir, a.cfg.MenuDir); err != nil {
		return waybar.Output{}, err
	}

	if _, err := a.Bootstrap(ctx); errors.Is(err, eds.ErrServiceUnavailable) {
		return a.renderUnknownState("EDS is not available")
	}

	filter := a.Settings.Snapshot()
	if filter.Calendars.Empty() && filter.ReminderLists.Empty() {
		statusLine := "No calendars or reminder lists selected"
		if err := state.SaveItems(a.cfg.ItemsPath, nil); err != nil {
			return waybar.Output{}, err
		}
		if err := state.WriteMenu(a.cfg.MenuPath, state.MenuData{StatusLine: statusLine, ShowCompleted: filter.ShowCompleted}); err != nil {
			return waybar.Output{}, err
		}
		return waybar.Output{
			Text:    "∅",
			Tooltip: statusLine + "\nRun weekview select calendars to choose calendars",
			Class:   "unknown",
		}, nil
	}

	now := a.now()
	day, err := a.Cache.Ensure(ctx, now, filter, true)
	if err != nil {
		return a.renderErrorState(fmt.Sprintf("Agenda query failed: %s", err.Error()))
	}

	items := waybar.Today(day, a.cfg.MaxItems)
	if err := state.SaveItems(a.cfg.ItemsPath, items); err != nil {
		return waybar.Output{}, err
	}

	menu := state.MenuData{StatusLine: "No events or reminders", Items: items, ShowCompleted: filter.ShowCompleted, Now: now}
	if next, ok := agenda.NextEvent(day.Events, now, nextEventHorizon); ok {
		menu.Next = &next
	}
	if err := state.WriteMenu(a.cfg.MenuPath, menu); err != nil {
		return waybar.Output{}, err
	}

	return waybar.Render(now, day, waybar.Options{
		Lookahead:   nextEventHorizon,
		MaxItems:    a.cfg.MaxItems,
		WeatherLine: a.WeatherLine(ctx),
	}), nil
}

func (a *App) Refresh(ctx context.Context) error {
	_, err := a.Status(ctx)
	return err
}

// OpenItem opens the 1-based index of the last rendered items snapshot.
func (a *App) OpenItem(ctx context.Context, index int) error {
	items, err := state.LoadItems(a.cfg.ItemsPath)
	if err != nil {
		return err
	}
	if index < 1 || index > len(items) {
		return nil
	}
	return a.Open(ctx, items[index-1])
}

func (a *App) JoinNext(ctx context.Context) error {
	if _, err := a.Bootstrap(ctx); errors.Is(err, eds.ErrServiceUnavailable) {
		return err
	}

	now := a.now()
	day, err := a.Cache.Ensure(ctx, now, a.Settings.Snapshot(), false)
	if err != nil {
		return err
	}
	next, ok := agenda.NextEvent(day.Events, now, nextEventHorizon)
	if !ok {
		return nil
	}
	return a.Open(ctx, agenda.Item{Kind: agenda.KindEvent, Event: &next})
}

// Open deep-links an item. Events with a meeting link open the link instead.
func (a *App) Open(ctx context.Context, item agenda.Item) error {
	if item.Kind == agenda.KindEvent {
		if url := item.Event.JoinURL(); url != "" {
			return a.Opener.OpenURL(ctx, url)
		}
	}
	return a.Opener.OpenItem(ctx, item)
}

type SelectKind string

const (
	SelectCalendars     SelectKind = "calendars"
	SelectReminderLists SelectKind = "lists"
)

func ParseSelectKind(value string) (SelectKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "calendar", "calendars":
		return SelectCalendars, nil
	case "list", "lists", "reminder-lists":
		return SelectReminderLists, nil
	default:
		return "", fmt.Errorf("unknown selection %q: want calendars or lists", value)
	}
}

// Select shows the checklist dialog and stores the result. Cancelling the
// dialog leaves the selection untouched.
func (a *App) Select(ctx context.Context, kind SelectKind, stdout io.Writer) error {
	if err := state.EnsureDirs(a.cfg.StateDir, a.cfg.MenuDir); err != nil {
		return err
	}
	if _, err := a.Bootstrap(ctx); errors.Is(err, eds.ErrServiceUnavailable) {
		return err
	}

	calendars, lists, err := a.Catalog(ctx)
	if err != nil {
		return err
	}

	filter := a.Settings.Snapshot()
	dialog := selector.CalendarsDialog(calendars, filter.Calendars)
	if kind == SelectReminderLists {
		dialog = selector.ReminderListsDialog(lists, filter.ReminderLists)
	}

	selected, err := a.choose(ctx, dialog)
	if err != nil {
		if errors.Is(err, selector.ErrSelectionCancelled) {
			return nil
		}
		a.Opener.Notify(ctx, err.Error())
		return err
	}

	if kind == SelectReminderLists {
		err = a.Settings.SetReminderLists(selected)
	} else {
		err = a.Settings.SetCalendars(selected)
	}
	if err != nil {
		return err
	}

	if err := a.Refresh(ctx); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(stdout, "Saved %d selected %s\n", len(selected), kind)
	return nil
}

// ResetSettings erases the stored filter preferences and drops cached days.
// It returns the preferences directory that was cleared.
func (a *App) ResetSettings() (string, error) {
	if err := a.Settings.Reset(); err != nil {
		return "", err
	}
	a.Cache.InvalidateAll()
	logging.Info("preferences reset", "path", a.prefsPath)
	return a.prefsPath, nil
}

// Toggle flips one calendar or reminder list in the current selection.
func (a *App) Toggle(ctx context.Context, kind SelectKind, uid string) error {
	if _, err := a.Bootstrap(ctx); errors.Is(err, eds.ErrServiceUnavailable) {
		return err
	}
	calendars, lists, err := a.Catalog(ctx)
	if err != nil {
		return err
	}

	if kind == SelectReminderLists {
		if _, ok := findUID(lists, uid); !ok {
			return fmt.Errorf("unknown reminder list %q", uid)
		}
		return a.Settings.ToggleReminderList(uid, lists)
	}
	if _, ok := findUID(calendars, uid); !ok {
		return fmt.Errorf("unknown calendar %q", uid)
	}
	return a.Settings.ToggleCalendar(uid, calendars)
}

func findUID(sources []agenda.Calendar, uid string) (agenda.Calendar, bool) {
	for _, source := range sources {
		if source.UID == uid {
			return source, true
		}
	}
	return agenda.Calendar{}, false
}

func (a *App) renderUnknownState(tooltip string) (waybar.Output, error) {
	if err := state.SaveItems(a.cfg.ItemsPath, nil); err != nil {
		return waybar.Output{}, err
	}
	if err := state.WriteMenu(a.cfg.MenuPath, state.MenuData{StatusLine: tooltip}); err != nil {
		return waybar.Output{}, err
	}
	return waybar.RenderUnknown(tooltip), nil
}

func (a *App) renderErrorState(tooltip string) (waybar.Output, error) {
	if err := state.SaveItems(a.cfg.ItemsPath, nil); err != nil {
		return waybar.Output{}, err
	}
	if err := state.WriteMenu(a.cfg.MenuPath, state.MenuData{StatusLine: "Agenda query failed"}); err != nil {
		return waybar.Output{}, err
	}
	return waybar.RenderError(tooltip), nil
}

func WriteOutput(w io.Writer, output waybar.Output) error {
	payload, err := waybar.Encode(output)
	if err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		return fmt.Errorf("write trailing newline: %w", err)
	}
	return nil
}
