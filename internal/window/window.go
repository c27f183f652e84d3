package window

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rbright/weekview/internal/agenda"
	"github.com/rbright/weekview/internal/datewindow"
	"github.com/rbright/weekview/internal/daycache"
	"github.com/rbright/weekview/internal/logging"
)

type State int

const (
	StateEmpty State = iota
	StateLoaded
)

func (s State) String() string {
	if s == StateLoaded {
		return "loaded"
	}
	return "empty"
}

type Config struct {
	WeeksBefore       int
	WeeksAfter        int
	EdgeThresholdDays int
	ExtendCooldown    time.Duration
	MaxWeeks          int
	FetchConcurrency  int
}

func DefaultConfig() Config {
	return Config{
		WeeksBefore:       1,
		WeeksAfter:        2,
		EdgeThresholdDays: 3,
		ExtendCooldown:    300 * time.Millisecond,
		MaxWeeks:          26,
		FetchConcurrency:  7,
	}
}

// Filters supplies the filter snapshot used for each populate batch.
type Filters interface {
	Snapshot() agenda.Filter
}

// Loaded is the outcome of one populate batch.
type Loaded struct {
	Days   []time.Time
	Failed []time.Time
}

type Snapshot struct {
	State               State
	Dates               []time.Time
	Selected            time.Time
	Days                map[string]agenda.Day
	InitialLoadComplete bool
}

// Day returns the cached data for d, if it has been populated.
func (s Snapshot) Day(d time.Time) (agenda.Day, bool) {
	day, ok := s.Days[datewindow.Key(d)]
	return day, ok
}

// Window keeps a materialized list of days in sync with the selected date and
// the scroll position.
//
// Structural methods (Initialize, NearEdge, SelectDate, ScrollTo, Reset,
// Settle, Snapshot) must be called from a single owning goroutine. Populate
// and ToggleReminder only touch the cache and source and may run anywhere.
type Window struct {
	cfg     Config
	source  agenda.Source
	cache   *daycache.Cache
	filters Filters
	now     func() time.Time

	state    State
	dates    []time.Time
	selected time.Time

	extending   bool
	extendUntil time.Time

	// fromScroll is set when ScrollTo pushed a selection outward, so the
	// echoed SelectDate is absorbed. suppressScroll is set when SelectDate
	// requested a programmatic scroll, so the resulting ScrollTo is absorbed.
	fromScroll     bool
	suppressScroll bool

	pendingInitial  map[string]struct{}
	initialComplete bool
}

type Option func(*Window)

// WithClock replaces time.Now, mainly for tests of the extend cooldown.
func WithClock(now func() time.Time) Option {
	return func(w *Window) {
		w.now = now
	}
}

func New(cfg Config, source agenda.Source, cache *daycache.Cache, filters Filters, opts ...Option) (*Window, error) {
	if source == nil {
		return nil, errors.New("window: source is nil")
	}
	if cache == nil {
		return nil, errors.New("window: cache is nil")
	}
	if filters == nil {
		return nil, errors.New("window: filters is nil")
	}

	w := &Window{
		cfg:     normalizeConfig(cfg),
		source:  source,
		cache:   cache,
		filters: filters,
		now:     time.Now,
		state:   StateEmpty,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

func normalizeConfig(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.WeeksBefore < 0 {
		cfg.WeeksBefore = defaults.WeeksBefore
	}
	if cfg.WeeksAfter < 0 {
		cfg.WeeksAfter = defaults.WeeksAfter
	}
	if cfg.EdgeThresholdDays <= 0 {
		cfg.EdgeThresholdDays = defaults.EdgeThresholdDays
	}
	if cfg.ExtendCooldown < 0 {
		cfg.ExtendCooldown = 0
	}
	minWeeks := cfg.WeeksBefore + cfg.WeeksAfter + 1
	if cfg.MaxWeeks <= 0 {
		cfg.MaxWeeks = defaults.MaxWeeks
	}
	if cfg.MaxWeeks < minWeeks {
		cfg.MaxWeeks = minWeeks
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = defaults.FetchConcurrency
	}
	return cfg
}

func (w *Window) State() State {
	return w.state
}

func (w *Window) Selected() time.Time {
	return w.selected
}

func (w *Window) Dates() []time.Time {
	return append([]time.Time(nil), w.dates...)
}

func (w *Window) InitialLoadComplete() bool {
	return w.initialComplete
}

// Initialize materializes the weeks around selected and returns every date
// that needs populating. Calling it again starts over.
func (w *Window) Initialize(selected time.Time) []time.Time {
	selected = datewindow.StartOfDay(selected)
	anchor := datewindow.WeekStart(selected)

	dates := make([]time.Time, 0, 7*(w.cfg.WeeksBefore+w.cfg.WeeksAfter+1))
	for offset := -w.cfg.WeeksBefore; offset <= w.cfg.WeeksAfter; offset++ {
		week := datewindow.WeekOf(datewindow.AddDays(anchor, offset*7))
		dates = append(dates, week[:]...)
	}

	w.dates = dates
	w.selected = selected
	w.state = StateLoaded
	w.extending = false
	w.fromScroll = false
	w.suppressScroll = false
	w.initialComplete = false
	w.pendingInitial = make(map[string]struct{}, len(dates))
	for _, day := range dates {
		w.pendingInitial[datewindow.Key(day)] = struct{}{}
	}

	logging.Debug("window initialized", "selected", datewindow.Key(selected), "days", len(dates))
	return w.Dates()
}

// Populate ensures every day in days is cached, fetching concurrently with
// the filter snapshot taken now. Failures are logged and leave the day
// unpopulated.
func (w *Window) Populate(ctx context.Context, days []time.Time, force bool) Loaded {
	filter := w.filters.Snapshot()

	var (
		mu     sync.Mutex
		failed []time.Time
	)

	var group errgroup.Group
	group.SetLimit(w.cfg.FetchConcurrency)
	for _, day := range days {
		day := day
		group.Go(func() error {
			if _, err := w.cache.Ensure(ctx, day, filter, force); err != nil {
				logging.Error("populate day", err, "day", datewindow.Key(day))
				mu.Lock()
				failed = append(failed, day)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = group.Wait()

	sortDates(failed)
	return Loaded{Days: append([]time.Time(nil), days...), Failed: failed}
}

// Settle records a finished populate batch. It reports true exactly once,
// when every day of the initial window has settled.
func (w *Window) Settle(batch Loaded) bool {
	if w.initialComplete || w.pendingInitial == nil {
		return false
	}
	for _, day := range batch.Days {
		delete(w.pendingInitial, datewindow.Key(day))
	}
	if len(w.pendingInitial) > 0 {
		return false
	}
	w.initialComplete = true
	logging.Debug("initial load complete", "days", len(w.dates))
	return true
}

// NearEdge extends the window by one week when visible is within the edge
// threshold of either end. It returns only the newly added dates.
func (w *Window) NearEdge(visible time.Time) []time.Time {
	if w.state != StateLoaded || len(w.dates) == 0 {
		return nil
	}

	now := w.now()
	if w.extending {
		if now.Before(w.extendUntil) {
			return nil
		}
		w.extending = false
	}

	visible = datewindow.StartOfDay(visible)
	first := w.dates[0]
	last := w.dates[len(w.dates)-1]
	threshold := w.cfg.EdgeThresholdDays

	var candidates []time.Time
	if datewindow.DaysBetween(first, visible) <= threshold {
		week := datewindow.WeekOf(datewindow.AddDays(first, -1))
		candidates = append(candidates, week[:]...)
	}
	if datewindow.DaysBetween(visible, last) <= threshold {
		week := datewindow.WeekOf(datewindow.AddDays(last, 1))
		candidates = append(candidates, week[:]...)
	}
	if len(candidates) == 0 {
		return nil
	}

	added := w.merge(candidates)
	w.trim(visible)
	added = w.retained(added)
	if len(added) == 0 {
		return nil
	}

	w.extending = true
	w.extendUntil = now.Add(w.cfg.ExtendCooldown)
	logging.Debug("window extended", "visible", datewindow.Key(visible), "added", len(added))
	return added
}

// SelectDate moves the selection to d. When d is outside the window its week
// is inserted, keeping the existing dates. scroll reports whether the caller
// should scroll the day list to d; it is false when the selection is the echo
// of a ScrollTo.
func (w *Window) SelectDate(d time.Time) (added []time.Time, scroll bool) {
	d = datewindow.StartOfDay(d)

	if w.fromScroll {
		w.fromScroll = false
		if datewindow.SameDay(d, w.selected) {
			return nil, false
		}
	}

	if w.state != StateLoaded {
		return w.Initialize(d), true
	}

	w.selected = d
	if !w.contains(d) {
		week := datewindow.WeekOf(d)
		added = w.merge(week[:])
		w.trim(d)
		added = w.retained(added)
		logging.Debug("selected date outside window", "selected", datewindow.Key(d), "added", len(added))
	}

	w.suppressScroll = true
	return added, true
}

// ScrollTo reports the topmost visible day. When it differs from the
// selection it becomes the new selection and is returned for propagation.
func (w *Window) ScrollTo(top time.Time) (time.Time, bool) {
	if w.state != StateLoaded {
		return time.Time{}, false
	}
	if w.suppressScroll {
		w.suppressScroll = false
		return time.Time{}, false
	}

	top = datewindow.StartOfDay(top)
	if datewindow.SameDay(top, w.selected) {
		return time.Time{}, false
	}

	w.selected = top
	w.fromScroll = true
	return top, true
}

// Reset drops every cached day and returns the materialized dates for
// repopulation. It serves filter changes, newly granted access and periodic
// refreshes.
func (w *Window) Reset() []time.Time {
	w.cache.InvalidateAll()
	logging.Debug("window reset", "days", len(w.dates))
	return w.Dates()
}

// ToggleReminder flips the completion state of r through the source and then
// force-refreshes day. On a write failure the cache is left untouched.
func (w *Window) ToggleReminder(ctx context.Context, day time.Time, r agenda.ReminderItem) (agenda.ReminderItem, error) {
	updated, err := w.source.SetCompleted(ctx, r.ListID, r.ID, !r.Completed)
	if err != nil {
		return r, fmt.Errorf("toggle reminder %s: %w", r.ID, err)
	}

	if _, err := w.cache.Ensure(ctx, day, w.filters.Snapshot(), true); err != nil {
		logging.Error("refresh day after toggle", err, "day", datewindow.Key(day))
	}
	return updated, nil
}

func (w *Window) Snapshot() Snapshot {
	snapshot := Snapshot{
		State:               w.state,
		Dates:               w.Dates(),
		Selected:            w.selected,
		Days:                make(map[string]agenda.Day, len(w.dates)),
		InitialLoadComplete: w.initialComplete,
	}
	for _, day := range w.dates {
		if data, ok := w.cache.Get(day); ok {
			snapshot.Days[datewindow.Key(day)] = data
		}
	}
	return snapshot
}

func (w *Window) contains(d time.Time) bool {
	key := datewindow.Key(d)
	idx := sort.Search(len(w.dates), func(i int) bool {
		return datewindow.Key(w.dates[i]) >= key
	})
	return idx < len(w.dates) && datewindow.Key(w.dates[idx]) == key
}

// merge inserts candidates that are not already present and keeps the list
// sorted and unique per day.
func (w *Window) merge(candidates []time.Time) []time.Time {
	present := make(map[string]struct{}, len(w.dates))
	for _, day := range w.dates {
		present[datewindow.Key(day)] = struct{}{}
	}

	added := make([]time.Time, 0, len(candidates))
	for _, candidate := range candidates {
		day := datewindow.StartOfDay(candidate)
		key := datewindow.Key(day)
		if _, ok := present[key]; ok {
			continue
		}
		present[key] = struct{}{}
		added = append(added, day)
	}
	if len(added) == 0 {
		return nil
	}

	w.dates = append(w.dates, added...)
	sortDates(w.dates)
	sortDates(added)
	return added
}

// trim drops whole weeks farthest from anchor until at most MaxWeeks remain.
func (w *Window) trim(anchor time.Time) {
	weeks := make(map[string]int)
	order := make([]time.Time, 0, len(w.dates)/7+1)
	for _, day := range w.dates {
		start := datewindow.WeekStart(day)
		key := datewindow.Key(start)
		if _, ok := weeks[key]; !ok {
			weeks[key] = datewindow.WeekOffset(anchor, start)
			order = append(order, start)
		}
	}
	if len(order) <= w.cfg.MaxWeeks {
		return
	}

	sort.SliceStable(order, func(i, j int) bool {
		return abs(weeks[datewindow.Key(order[i])]) < abs(weeks[datewindow.Key(order[j])])
	})
	keep := make(map[string]struct{}, w.cfg.MaxWeeks)
	for _, start := range order[:w.cfg.MaxWeeks] {
		keep[datewindow.Key(start)] = struct{}{}
	}

	kept := w.dates[:0]
	for _, day := range w.dates {
		if _, ok := keep[datewindow.Key(datewindow.WeekStart(day))]; ok {
			kept = append(kept, day)
		}
	}
	logging.Debug("window trimmed", "dropped", len(w.dates)-len(kept))
	w.dates = kept
}

// retained filters dates down to those still in the window after a trim.
func (w *Window) retained(dates []time.Time) []time.Time {
	kept := dates[:0]
	for _, day := range dates {
		if w.contains(day) {
			kept = append(kept, day)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

func sortDates(dates []time.Time) {
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
