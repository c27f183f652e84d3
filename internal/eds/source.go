package eds

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rbright/weekview/internal/agenda"
	"github.com/rbright/weekview/internal/datewindow"
	"github.com/rbright/weekview/internal/logging"
)

// backend is the part of Client the agenda source relies on.
type backend interface {
	ListCalendars(ctx context.Context) ([]agenda.Calendar, error)
	ListTaskLists(ctx context.Context) ([]agenda.Calendar, error)
	FetchRawEvents(ctx context.Context, calendars []agenda.Calendar, windowStart, windowEnd time.Time) ([]agenda.RawEvent, error)
	FetchTasks(ctx context.Context, lists []agenda.Calendar, windowStart, windowEnd time.Time, includeCompleted bool) ([]agenda.ReminderItem, error)
	SetTaskCompleted(ctx context.Context, list agenda.Calendar, taskUID string, completed bool) (agenda.ReminderItem, error)
	Close() error
}

// Source adapts Evolution Data Server to agenda.Source. It connects lazily;
// while the services are unreachable it reports no access and empty days.
// Calendars and task lists are listed separately, so losing one category
// leaves the other usable.
type Source struct {
	connect func(ctx context.Context) (backend, error)

	mu        sync.Mutex
	client    backend
	calendars []agenda.Calendar
	lists     []agenda.Calendar
	calErr    error
	listErr   error
	hasCals   bool
	hasLists  bool
}

func NewSource() *Source {
	return &Source{connect: func(ctx context.Context) (backend, error) {
		client, err := New(ctx)
		if err != nil {
			return nil, err
		}
		return client, nil
	}}
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

// RequestAccess connects if needed and reloads the source catalog. EDS has
// no permission prompt, so access means the services answered.
func (s *Source) RequestAccess(ctx context.Context) (agenda.Access, error) {
	client, err := s.ensureClient(ctx)
	if err != nil {
		return agenda.Access{}, err
	}

	access, err := s.reload(ctx, client)
	if err != nil {
		return access, fmt.Errorf("list sources: %w", err)
	}
	return access, nil
}

func (s *Source) Calendars(ctx context.Context) ([]agenda.Calendar, error) {
	cat, _, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	if !cat.access.Calendars {
		return nil, fmt.Errorf("list calendars: %w", cat.calErr)
	}
	return cat.calendars, nil
}

func (s *Source) ReminderLists(ctx context.Context) ([]agenda.Calendar, error) {
	cat, _, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	if !cat.access.Reminders {
		return nil, fmt.Errorf("list task lists: %w", cat.listErr)
	}
	return cat.lists, nil
}

// FetchDay loads one day. A category whose sources could not be listed
// contributes nothing; the other category is still fetched.
func (s *Source) FetchDay(ctx context.Context, day time.Time, filter agenda.Filter) (agenda.Day, error) {
	start := datewindow.StartOfDay(day)
	end := datewindow.AddDays(start, 1)
	result := agenda.Day{Day: start, FetchedAt: time.Now()}

	cat, client, err := s.catalog(ctx)
	if err != nil {
		if errors.Is(err, ErrServiceUnavailable) {
			logging.Debug("calendar service unavailable", "day", datewindow.Key(start))
			return result, nil
		}
		return agenda.Day{}, err
	}

	if !cat.access.Calendars {
		logging.Debug("skipping events without calendar access", "day", datewindow.Key(start))
	} else if selected := filter.Calendars.Resolve(cat.calendars); len(selected) > 0 {
		raw, err := client.FetchRawEvents(ctx, selected, start, end)
		if err != nil {
			return agenda.Day{}, fmt.Errorf("fetch events: %w", err)
		}
		result.Events = agenda.ExpandEvents(raw, start, end)
	}

	if !cat.access.Reminders {
		logging.Debug("skipping reminders without task list access", "day", datewindow.Key(start))
	} else if selected := filter.ReminderLists.Resolve(cat.lists); len(selected) > 0 {
		tasks, err := client.FetchTasks(ctx, selected, start, end, filter.ShowCompleted)
		if err != nil {
			return agenda.Day{}, fmt.Errorf("fetch reminders: %w", err)
		}
		result.Reminders = tasksDueOn(tasks, start, end)
	}

	return result, nil
}

func (s *Source) SetCompleted(ctx context.Context, listID, reminderID string, completed bool) (agenda.ReminderItem, error) {
	cat, client, err := s.catalog(ctx)
	if err != nil {
		return agenda.ReminderItem{}, err
	}
	if !cat.access.Reminders {
		return agenda.ReminderItem{}, fmt.Errorf("list task lists: %w", cat.listErr)
	}

	list, ok := findSource(cat.lists, listID)
	if !ok {
		return agenda.ReminderItem{}, fmt.Errorf("reminder list %q not found", listID)
	}
	return client.SetTaskCompleted(ctx, list, reminderID, completed)
}

func (s *Source) ensureClient(ctx context.Context) (backend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}
	client, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	s.client = client
	return client, nil
}

// reload lists both categories. A category that fails keeps its previous
// listing, if any, but is reported as not accessible.
func (s *Source) reload(ctx context.Context, client backend) (agenda.Access, error) {
	calendars, calErr := client.ListCalendars(ctx)
	lists, listErr := client.ListTaskLists(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calErr, s.listErr = calErr, listErr
	s.hasCals = calErr == nil
	s.hasLists = listErr == nil
	if s.hasCals {
		s.calendars = calendars
	}
	if s.hasLists {
		s.lists = lists
	}

	return agenda.Access{Calendars: s.hasCals, Reminders: s.hasLists}, errors.Join(calErr, listErr)
}

type sourceCatalog struct {
	calendars []agenda.Calendar
	lists     []agenda.Calendar
	access    agenda.Access
	calErr    error
	listErr   error
}

// catalog returns the known sources, reloading when a category is missing.
// Only a connection failure is an error; a failed listing shows up as a
// category without access.
func (s *Source) catalog(ctx context.Context) (sourceCatalog, backend, error) {
	client, err := s.ensureClient(ctx)
	if err != nil {
		return sourceCatalog{}, nil, err
	}

	s.mu.Lock()
	complete := s.hasCals && s.hasLists
	s.mu.Unlock()

	if !complete {
		if _, err := s.reload(ctx, client); err != nil {
			logging.Warn("source listing incomplete", "err", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return sourceCatalog{
		calendars: s.calendars,
		lists:     s.lists,
		access:    agenda.Access{Calendars: s.hasCals, Reminders: s.hasLists},
		calErr:    s.calErr,
		listErr:   s.listErr,
	}, client, nil
}

// tasksDueOn keeps tasks whose due value falls inside [start, end). EDS
// matches DATE-only dues against UTC days, so the check is redone locally.
func tasksDueOn(tasks []agenda.ReminderItem, start, end time.Time) []agenda.ReminderItem {
	results := make([]agenda.ReminderItem, 0, len(tasks))
	seen := make(map[string]struct{}, len(tasks))
	for _, task := range tasks {
		if task.Due == nil {
			continue
		}
		due := *task.Due
		if task.AllDay {
			due = datewindow.StartOfDay(dateInLocal(due))
		}
		if due.Before(start) || !due.Before(end) {
			continue
		}
		key := task.ListID + "|" + task.ID
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		results = append(results, task)
	}
	return results
}

func findSource(sources []agenda.Calendar, uid string) (agenda.Calendar, bool) {
	for _, source := range sources {
		if source.UID == uid {
			return source, true
		}
	}
	return agenda.Calendar{}, false
}
