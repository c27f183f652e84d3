package agenda

import (
	"sort"
	"strings"
	"time"
)

type Calendar struct {
	UID         string `json:"uid" yaml:"uid"`
	Name        string `json:"name" yaml:"name"`
	AccountName string `json:"accountName,omitempty" yaml:"accountName,omitempty"`
	ParentUID   string `json:"parentUid,omitempty" yaml:"parentUid,omitempty"`
	Backend     string `json:"backend,omitempty" yaml:"backend,omitempty"`
	Color       string `json:"color,omitempty" yaml:"color,omitempty"`
	Selected    bool   `json:"selected" yaml:"selected"`
	Enabled     bool   `json:"enabled" yaml:"enabled"`
}

type CalendarEvent struct {
	ID            string    `json:"id" yaml:"id"`
	Title         string    `json:"title" yaml:"title"`
	Start         time.Time `json:"start" yaml:"start"`
	End           time.Time `json:"end" yaml:"end"`
	AllDay        bool      `json:"allDay" yaml:"allDay"`
	CalendarID    string    `json:"calendarId" yaml:"calendarId"`
	CalendarName  string    `json:"calendarName" yaml:"calendarName"`
	CalendarColor string    `json:"calendarColor,omitempty" yaml:"calendarColor,omitempty"`
	Location      string    `json:"location,omitempty" yaml:"location,omitempty"`
	URL           string    `json:"url,omitempty" yaml:"url,omitempty"`
	Description   string    `json:"description,omitempty" yaml:"description,omitempty"`
}

type ReminderItem struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	Due       *time.Time `json:"due,omitempty" yaml:"due,omitempty"`
	AllDay    bool       `json:"allDay" yaml:"allDay"`
	Completed bool       `json:"completed" yaml:"completed"`
	ListID    string     `json:"listId" yaml:"listId"`
	ListName  string     `json:"listName" yaml:"listName"`
	ListColor string     `json:"listColor,omitempty" yaml:"listColor,omitempty"`
}

// Day is the unit of caching: everything due on one calendar day.
type Day struct {
	Day       time.Time       `json:"day" yaml:"day"`
	Events    []CalendarEvent `json:"events" yaml:"events"`
	Reminders []ReminderItem  `json:"reminders" yaml:"reminders"`
	FetchedAt time.Time       `json:"fetchedAt" yaml:"fetchedAt"`
}

func (d Day) Empty() bool {
	return len(d.Events) == 0 && len(d.Reminders) == 0
}

// Clone copies the slices so a snapshot cannot alias cache storage.
func (d Day) Clone() Day {
	out := d
	if d.Events != nil {
		out.Events = append([]CalendarEvent(nil), d.Events...)
	}
	if d.Reminders != nil {
		out.Reminders = make([]ReminderItem, len(d.Reminders))
		for i, r := range d.Reminders {
			if r.Due != nil {
				due := *r.Due
				r.Due = &due
			}
			out.Reminders[i] = r
		}
	}
	return out
}

// Selection is either the explicit "no filter" sentinel or a concrete set.
// A concrete set with no IDs matches nothing.
type Selection struct {
	All bool     `json:"all" yaml:"all"`
	IDs []string `json:"ids,omitempty" yaml:"ids,omitempty"`
}

func SelectAll() Selection {
	return Selection{All: true}
}

func SelectIDs(ids ...string) Selection {
	return Selection{IDs: NormalizeIDs(ids)}
}

func (s Selection) Contains(id string) bool {
	if s.All {
		return true
	}
	for _, candidate := range s.IDs {
		if candidate == id {
			return true
		}
	}
	return false
}

func (s Selection) Empty() bool {
	return !s.All && len(s.IDs) == 0
}

func (s Selection) Clone() Selection {
	return Selection{All: s.All, IDs: append([]string(nil), s.IDs...)}
}

// Filter is a value snapshot of the user's filter settings.
type Filter struct {
	Calendars     Selection `json:"calendars" yaml:"calendars"`
	ReminderLists Selection `json:"reminderLists" yaml:"reminderLists"`
	ShowCompleted bool      `json:"showCompleted" yaml:"showCompleted"`
}

func (f Filter) Clone() Filter {
	return Filter{
		Calendars:     f.Calendars.Clone(),
		ReminderLists: f.ReminderLists.Clone(),
		ShowCompleted: f.ShowCompleted,
	}
}

// Resolve picks the calendars a selection matches, skipping disabled ones.
func (s Selection) Resolve(calendars []Calendar) []Calendar {
	if s.Empty() {
		return nil
	}
	selected := make([]Calendar, 0, len(calendars))
	for _, calendar := range calendars {
		if !calendar.Enabled {
			continue
		}
		if !s.Contains(calendar.UID) {
			continue
		}
		selected = append(selected, calendar)
	}
	return selected
}

func NormalizeIDs(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	normalized := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}

	sort.Strings(normalized)
	return normalized
}

func CalendarUIDs(calendars []Calendar) []string {
	uids := make([]string, 0, len(calendars))
	for _, calendar := range calendars {
		if !calendar.Enabled {
			continue
		}
		uids = append(uids, calendar.UID)
	}
	return NormalizeIDs(uids)
}
