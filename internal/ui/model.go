package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/robfig/cron/v3"

	"github.com/rbright/weekview/internal/agenda"
	"github.com/rbright/weekview/internal/datewindow"
	"github.com/rbright/weekview/internal/logging"
	"github.com/rbright/weekview/internal/settings"
	"github.com/rbright/weekview/internal/window"
)

const defaultTimeout = 20 * time.Second

// Services is what the week view needs beyond the window and settings.
type Services interface {
	Bootstrap(ctx context.Context) (agenda.Access, error)
	Catalog(ctx context.Context) (calendars, lists []agenda.Calendar, err error)
	WeatherLine(ctx context.Context) string
	Open(ctx context.Context, item agenda.Item) error
}

type Options struct {
	// RefreshSchedule is a cron spec; each tick re-checks access and
	// reloads every visible day.
	RefreshSchedule string
	Timeout         time.Duration
	Now             func() time.Time
}

type entry struct {
	day  time.Time
	item int // -1 for a day without rows
}

type bootstrapMsg struct {
	access agenda.Access
	err    error
}

type populatedMsg struct {
	batch window.Loaded
}

type weatherMsg struct {
	line string
}

type catalogMsg struct {
	calendars []agenda.Calendar
	lists     []agenda.Calendar
	err       error
}

type settingsChangedMsg struct{}

type refreshTickMsg struct{}

type toggledMsg struct {
	item agenda.ReminderItem
	err  error
}

type openedMsg struct {
	err error
}

// Model is the week view: a week strip above an endless list of day
// sections. All window mutations happen in Update.
type Model struct {
	svc      Services
	win      *window.Window
	settings *settings.Settings
	opts     Options
	ctx      context.Context
	schedule cron.Schedule

	width    int
	height   int
	ready    bool
	viewport viewport.Model
	spinner  spinner.Model

	snap    window.Snapshot
	items   map[string][]agenda.Item
	entries []entry
	cursor  int

	loading int
	weather string
	err     error

	overlay *settingsOverlay

	changes     <-chan struct{}
	unsubscribe func()
}

func New(ctx context.Context, svc Services, win *window.Window, s *settings.Settings, opts Options) (*Model, error) {
	if svc == nil || win == nil || s == nil {
		return nil, errors.New("ui: missing dependency")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	var schedule cron.Schedule
	if opts.RefreshSchedule != "" {
		parsed, err := cron.ParseStandard(opts.RefreshSchedule)
		if err != nil {
			return nil, fmt.Errorf("parse refresh schedule: %w", err)
		}
		schedule = parsed
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = cursorStyle

	changes, unsubscribe := s.Subscribe()
	return &Model{
		svc:         svc,
		win:         win,
		settings:    s,
		opts:        opts,
		ctx:         ctx,
		schedule:    schedule,
		viewport:    viewport.New(80, 20),
		spinner:     sp,
		items:       map[string][]agenda.Item{},
		changes:     changes,
		unsubscribe: unsubscribe,
	}, nil
}

// Close stops listening for settings changes.
func (m *Model) Close() {
	m.unsubscribe()
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.bootstrap(),
		m.loadWeather(),
		m.waitForSettings(),
		m.scheduleRefresh(),
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 3)
		m.rebuild()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case bootstrapMsg:
		if msg.err != nil {
			logging.Warn("agenda access", "err", msg.err)
		}
		var dates []time.Time
		if m.win.State() == window.StateEmpty {
			dates = m.win.Initialize(m.opts.Now())
			m.rebuild()
			m.focusDay(m.win.Selected())
		} else {
			dates = m.win.Reset()
		}
		return m, m.populate(dates, false)

	case populatedMsg:
		if m.loading > 0 {
			m.loading--
		}
		if m.win.Settle(msg.batch) {
			logging.Info("initial load complete", "days", len(m.win.Dates()))
		}
		m.rebuild()
		return m, nil

	case weatherMsg:
		m.weather = msg.line
		return m, nil

	case settingsChangedMsg:
		if m.overlay != nil {
			m.overlay.filter = m.settings.Snapshot()
		}
		return m, tea.Batch(m.populate(m.win.Reset(), false), m.waitForSettings())

	case refreshTickMsg:
		return m, tea.Batch(m.bootstrap(), m.loadWeather(), m.scheduleRefresh())

	case toggledMsg:
		if msg.err != nil {
			m.err = msg.err
			logging.Error("toggle reminder", msg.err)
		} else {
			m.err = nil
		}
		m.rebuild()
		return m, nil

	case openedMsg:
		m.err = msg.err
		return m, nil

	case catalogMsg:
		if msg.err != nil {
			m.err = msg.err
			m.overlay = nil
			return m, nil
		}
		m.overlay = newSettingsOverlay(msg.calendars, msg.lists, m.settings.Snapshot())
		return m, nil

	case tea.KeyMsg:
		if m.overlay != nil {
			return m.handleOverlayKeys(msg)
		}
		return m.handleKeys(msg)
	}

	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.PrevDay):
		return m, m.selectDate(datewindow.AddDays(m.win.Selected(), -1))

	case key.Matches(msg, keys.NextDay):
		return m, m.selectDate(datewindow.AddDays(m.win.Selected(), 1))

	case key.Matches(msg, keys.PrevWeek):
		return m, m.selectDate(m.pageTarget(-1))

	case key.Matches(msg, keys.NextWeek):
		return m, m.selectDate(m.pageTarget(1))

	case key.Matches(msg, keys.Today):
		return m, m.selectDate(m.opts.Now())

	case key.Matches(msg, keys.Up):
		return m, m.moveCursor(-1)

	case key.Matches(msg, keys.Down):
		return m, m.moveCursor(1)

	case key.Matches(msg, keys.Toggle):
		return m, m.toggleFocused()

	case key.Matches(msg, keys.Open):
		return m, m.openFocused()

	case key.Matches(msg, keys.Settings):
		return m, m.loadCatalog()

	case key.Matches(msg, keys.Refresh):
		return m, tea.Batch(m.populate(m.win.Reset(), false), m.loadWeather())
	}
	return m, nil
}

// selectDate is the tap-on-a-day path: the window decides whether the list
// must scroll, and the programmatic scroll is reported back so the window
// can absorb it.
func (m *Model) selectDate(d time.Time) tea.Cmd {
	if m.win.State() == window.StateEmpty {
		return nil
	}

	d = datewindow.StartOfDay(d)
	added, scroll := m.win.SelectDate(d)
	m.rebuild()
	if scroll {
		m.focusDay(d)
		m.win.ScrollTo(d)
	}
	extended := m.win.NearEdge(d)
	m.rebuild()
	return tea.Batch(m.populate(added, false), m.populate(extended, false))
}

// moveCursor is the user-scroll path: the day under the cursor becomes the
// selection and may extend the window.
func (m *Model) moveCursor(delta int) tea.Cmd {
	if len(m.entries) == 0 {
		return nil
	}
	m.cursor = clamp(m.cursor+delta, 0, len(m.entries)-1)
	day := m.entries[m.cursor].day

	if selected, ok := m.win.ScrollTo(day); ok {
		m.win.SelectDate(selected)
	}
	extended := m.win.NearEdge(day)
	m.rebuild()
	return m.populate(extended, false)
}

// pageTarget mirrors paging the week strip: today when the new week
// contains it, otherwise that week's Monday.
func (m *Model) pageTarget(delta int) time.Time {
	now := m.opts.Now()
	offset := datewindow.WeekOffset(now, m.win.Selected()) + delta
	week := datewindow.WeekOf(datewindow.AddDays(datewindow.WeekStart(now), offset*7))
	for _, day := range week {
		if datewindow.SameDay(day, now) {
			return day
		}
	}
	return week[0]
}

func (m *Model) focused() (entry, agenda.Item, bool) {
	if m.cursor < 0 || m.cursor >= len(m.entries) {
		return entry{}, agenda.Item{}, false
	}
	e := m.entries[m.cursor]
	if e.item < 0 {
		return e, agenda.Item{}, false
	}
	items := m.items[datewindow.Key(e.day)]
	if e.item >= len(items) {
		return e, agenda.Item{}, false
	}
	return e, items[e.item], true
}

func (m *Model) toggleFocused() tea.Cmd {
	e, item, ok := m.focused()
	if !ok || item.Kind != agenda.KindReminder {
		return nil
	}
	reminder := *item.Reminder
	win, ctx, timeout := m.win, m.ctx, m.opts.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		updated, err := win.ToggleReminder(ctx, e.day, reminder)
		return toggledMsg{item: updated, err: err}
	}
}

func (m *Model) openFocused() tea.Cmd {
	_, item, ok := m.focused()
	if !ok {
		return nil
	}
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		return openedMsg{err: svc.Open(ctx, item)}
	}
}

func (m *Model) populate(days []time.Time, force bool) tea.Cmd {
	if len(days) == 0 {
		return nil
	}
	m.loading++
	win, ctx, timeout := m.win, m.ctx, m.opts.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return populatedMsg{batch: win.Populate(ctx, days, force)}
	}
}

func (m *Model) bootstrap() tea.Cmd {
	svc, ctx, timeout := m.svc, m.ctx, m.opts.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		access, err := svc.Bootstrap(ctx)
		return bootstrapMsg{access: access, err: err}
	}
}

func (m *Model) loadWeather() tea.Cmd {
	svc, ctx, timeout := m.svc, m.ctx, m.opts.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return weatherMsg{line: svc.WeatherLine(ctx)}
	}
}

func (m *Model) loadCatalog() tea.Cmd {
	svc, ctx, timeout := m.svc, m.ctx, m.opts.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		calendars, lists, err := svc.Catalog(ctx)
		return catalogMsg{calendars: calendars, lists: lists, err: err}
	}
}

func (m *Model) waitForSettings() tea.Cmd {
	changes := m.changes
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return settingsChangedMsg{}
	}
}

func (m *Model) scheduleRefresh() tea.Cmd {
	if m.schedule == nil {
		return nil
	}
	now := m.opts.Now()
	wait := m.schedule.Next(now).Sub(now)
	return tea.Tick(wait, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

// rebuild refreshes the snapshot and row layout, keeping the cursor on the
// same row when it still exists.
func (m *Model) rebuild() {
	var current entry
	hadCursor := m.cursor >= 0 && m.cursor < len(m.entries)
	if hadCursor {
		current = m.entries[m.cursor]
	}

	m.snap = m.win.Snapshot()
	m.items = make(map[string][]agenda.Item, len(m.snap.Days))
	m.entries = m.entries[:0]
	for _, d := range m.snap.Dates {
		key := datewindow.Key(d)
		day, ok := m.snap.Days[key]
		if !ok {
			m.entries = append(m.entries, entry{day: d, item: -1})
			continue
		}
		items := agenda.Flatten(day)
		m.items[key] = items
		if len(items) == 0 {
			m.entries = append(m.entries, entry{day: d, item: -1})
			continue
		}
		for idx := range items {
			m.entries = append(m.entries, entry{day: d, item: idx})
		}
	}

	m.cursor = 0
	if hadCursor {
		m.cursor = m.indexOf(current)
	}
	m.render()
}

func (m *Model) indexOf(target entry) int {
	firstOfDay := -1
	lastBefore := 0
	for idx, e := range m.entries {
		if datewindow.SameDay(e.day, target.day) {
			if e.item == target.item || (target.item < 0 && e.item <= 0) {
				return idx
			}
			if firstOfDay < 0 || e.item <= target.item {
				firstOfDay = idx
			}
			continue
		}
		if e.day.Before(target.day) {
			lastBefore = idx
		}
	}
	if firstOfDay >= 0 {
		return firstOfDay
	}
	return lastBefore
}

func (m *Model) focusDay(d time.Time) {
	for idx, e := range m.entries {
		if datewindow.SameDay(e.day, d) {
			m.cursor = idx
			m.render()
			return
		}
	}
}

func clamp(value, lower, upper int) int {
	if value < lower {
		return lower
	}
	if value > upper {
		return upper
	}
	return value
}
