package settings

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rbright/weekview/internal/agenda"
	"github.com/rbright/weekview/internal/prefs"
)

// Store is the subset of prefs.Store the settings owner needs.
type Store interface {
	GetStringList(key string) ([]string, bool, error)
	SetStringList(key string, values []string) error
	GetBool(key string) (bool, bool, error)
	SetBool(key string, value bool) error
	Delete(key string) error
}

// Settings owns the filter settings. Every mutation is persisted before
// subscribers are notified.
type Settings struct {
	store Store

	mu          sync.RWMutex
	filter      agenda.Filter
	initialized bool

	subMu       sync.Mutex
	subscribers map[int]chan struct{}
	nextID      int
}

func Load(store Store) (*Settings, error) {
	if store == nil {
		return nil, errors.New("settings store is nil")
	}

	s := &Settings{store: store, subscribers: make(map[int]chan struct{})}

	calendars, err := loadSelection(store, prefs.KeySelectedCalendars)
	if err != nil {
		return nil, err
	}
	lists, err := loadSelection(store, prefs.KeySelectedReminderLists)
	if err != nil {
		return nil, err
	}
	showCompleted, _, err := store.GetBool(prefs.KeyShowCompleted)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", prefs.KeyShowCompleted, err)
	}
	initialized, _, err := store.GetBool(prefs.KeyHasInitializedDefaults)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", prefs.KeyHasInitializedDefaults, err)
	}

	s.filter = agenda.Filter{Calendars: calendars, ReminderLists: lists, ShowCompleted: showCompleted}
	s.initialized = initialized
	return s, nil
}

// A key that was never written means no filter at all.
func loadSelection(store Store, key string) (agenda.Selection, error) {
	values, ok, err := store.GetStringList(key)
	if err != nil {
		return agenda.Selection{}, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		return agenda.SelectAll(), nil
	}
	return agenda.SelectIDs(values...), nil
}

func (s *Settings) Snapshot() agenda.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter.Clone()
}

func (s *Settings) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// InitializeDefaults selects every known calendar and reminder list on first
// run. It reports whether anything changed.
func (s *Settings) InitializeDefaults(calendars, lists []agenda.Calendar) (bool, error) {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return false, nil
	}

	calendarIDs := agenda.CalendarUIDs(calendars)
	listIDs := agenda.CalendarUIDs(lists)
	if err := s.store.SetStringList(prefs.KeySelectedCalendars, calendarIDs); err != nil {
		s.mu.Unlock()
		return false, fmt.Errorf("store default calendars: %w", err)
	}
	if err := s.store.SetStringList(prefs.KeySelectedReminderLists, listIDs); err != nil {
		s.mu.Unlock()
		return false, fmt.Errorf("store default reminder lists: %w", err)
	}
	if err := s.store.SetBool(prefs.KeyHasInitializedDefaults, true); err != nil {
		s.mu.Unlock()
		return false, fmt.Errorf("store defaults flag: %w", err)
	}

	s.filter.Calendars = agenda.SelectIDs(calendarIDs...)
	s.filter.ReminderLists = agenda.SelectIDs(listIDs...)
	s.initialized = true
	s.mu.Unlock()

	s.notify()
	return true, nil
}

func (s *Settings) SetCalendars(ids []string) error {
	return s.updateSelection(prefs.KeySelectedCalendars, calendarsOf, func(agenda.Selection) []string {
		return ids
	})
}

func (s *Settings) SetReminderLists(ids []string) error {
	return s.updateSelection(prefs.KeySelectedReminderLists, reminderListsOf, func(agenda.Selection) []string {
		return ids
	})
}

// ToggleCalendar flips one calendar in the selection. known is the full set of
// calendars, needed to turn an All selection into an explicit set.
func (s *Settings) ToggleCalendar(uid string, known []agenda.Calendar) error {
	return s.updateSelection(prefs.KeySelectedCalendars, calendarsOf, func(current agenda.Selection) []string {
		return toggle(current, uid, known)
	})
}

func (s *Settings) ToggleReminderList(uid string, known []agenda.Calendar) error {
	return s.updateSelection(prefs.KeySelectedReminderLists, reminderListsOf, func(current agenda.Selection) []string {
		return toggle(current, uid, known)
	})
}

func (s *Settings) SetShowCompleted(value bool) error {
	return s.updateShowCompleted(func(bool) bool { return value })
}

func (s *Settings) ToggleShowCompleted() error {
	return s.updateShowCompleted(func(current bool) bool { return !current })
}

// Reset erases every stored preference. Selections fall back to All and the
// next bootstrap seeds defaults again.
func (s *Settings) Reset() error {
	s.mu.Lock()
	for _, key := range []string{
		prefs.KeySelectedCalendars,
		prefs.KeySelectedReminderLists,
		prefs.KeyShowCompleted,
		prefs.KeyHasInitializedDefaults,
	} {
		if err := s.store.Delete(key); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("reset %s: %w", key, err)
		}
	}
	s.filter = agenda.Filter{Calendars: agenda.SelectAll(), ReminderLists: agenda.SelectAll()}
	s.initialized = false
	s.mu.Unlock()

	s.notify()
	return nil
}

// Subscribe returns a channel that receives a value after settings change.
// Notifications coalesce: a slow reader sees at most one pending signal.
func (s *Settings) Subscribe() (<-chan struct{}, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan struct{}, 1)
	s.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			delete(s.subscribers, id)
			close(ch)
		})
	}
	return ch, cancel
}

// updateSelection computes, stores and assigns the next selection under one
// lock.
func (s *Settings) updateSelection(key string, field func(*agenda.Filter) *agenda.Selection, next func(agenda.Selection) []string) error {
	s.mu.Lock()
	target := field(&s.filter)
	normalized := agenda.NormalizeIDs(next(target.Clone()))
	if err := s.store.SetStringList(key, normalized); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("store %s: %w", key, err)
	}
	*target = agenda.SelectIDs(normalized...)
	s.mu.Unlock()

	s.notify()
	return nil
}

func (s *Settings) updateShowCompleted(next func(bool) bool) error {
	s.mu.Lock()
	value := next(s.filter.ShowCompleted)
	if err := s.store.SetBool(prefs.KeyShowCompleted, value); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("store %s: %w", prefs.KeyShowCompleted, err)
	}
	s.filter.ShowCompleted = value
	s.mu.Unlock()

	s.notify()
	return nil
}

func calendarsOf(f *agenda.Filter) *agenda.Selection {
	return &f.Calendars
}

func reminderListsOf(f *agenda.Filter) *agenda.Selection {
	return &f.ReminderLists
}

func (s *Settings) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func toggle(current agenda.Selection, uid string, known []agenda.Calendar) []string {
	ids := current.IDs
	if current.All {
		ids = agenda.CalendarUIDs(known)
	}

	next := make([]string, 0, len(ids)+1)
	found := false
	for _, id := range ids {
		if id == uid {
			found = true
			continue
		}
		next = append(next, id)
	}
	if !found {
		next = append(next, uid)
	}
	return next
}
