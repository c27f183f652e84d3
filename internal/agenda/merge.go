package agenda

import (
	"sort"
	"strings"
	"time"
)

type ItemKind string

const (
	KindEvent    ItemKind = "event"
	KindReminder ItemKind = "reminder"
)

// Item is one row of a day section: either a timed event or a reminder.
type Item struct {
	Kind     ItemKind       `json:"kind" yaml:"kind"`
	Event    *CalendarEvent `json:"event,omitempty" yaml:"event,omitempty"`
	Reminder *ReminderItem  `json:"reminder,omitempty" yaml:"reminder,omitempty"`
}

// ID is unique across kinds and is the tie breaker when instants are equal.
func (i Item) ID() string {
	switch i.Kind {
	case KindEvent:
		return "event_" + i.Event.ID
	case KindReminder:
		return "reminder_" + i.Reminder.ID
	default:
		return ""
	}
}

// SortTime is the event start or the reminder due instant.
func (i Item) SortTime() (time.Time, bool) {
	switch i.Kind {
	case KindEvent:
		return i.Event.Start, true
	case KindReminder:
		if i.Reminder.Due == nil {
			return time.Time{}, false
		}
		return *i.Reminder.Due, true
	default:
		return time.Time{}, false
	}
}

func (i Item) Title() string {
	switch i.Kind {
	case KindEvent:
		return i.Event.Title
	case KindReminder:
		return i.Reminder.Title
	default:
		return ""
	}
}

// MergeDay splits all-day events into their own leading group and merges the
// remaining events with reminders into one time-ordered sequence. Untimed
// items sort last; equal instants are ordered by ID.
func MergeDay(events []CalendarEvent, reminders []ReminderItem) (allDay []CalendarEvent, timed []Item) {
	timed = make([]Item, 0, len(events)+len(reminders))
	for idx := range events {
		event := events[idx]
		if event.AllDay {
			allDay = append(allDay, event)
			continue
		}
		timed = append(timed, Item{Kind: KindEvent, Event: &event})
	}
	for idx := range reminders {
		reminder := reminders[idx]
		timed = append(timed, Item{Kind: KindReminder, Reminder: &reminder})
	}

	sort.SliceStable(allDay, func(i, j int) bool {
		if !strings.EqualFold(allDay[i].Title, allDay[j].Title) {
			return strings.ToLower(allDay[i].Title) < strings.ToLower(allDay[j].Title)
		}
		return allDay[i].ID < allDay[j].ID
	})
	SortItems(timed)
	return allDay, timed
}

func SortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, okI := items[i].SortTime()
		tj, okJ := items[j].SortTime()
		if okI != okJ {
			return okI
		}
		if okI && !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return items[i].ID() < items[j].ID()
	})
}

// Flatten renders a day as the all-day group followed by the timed items.
func Flatten(day Day) []Item {
	allDay, timed := MergeDay(day.Events, day.Reminders)
	items := make([]Item, 0, len(allDay)+len(timed))
	for idx := range allDay {
		event := allDay[idx]
		items = append(items, Item{Kind: KindEvent, Event: &event})
	}
	return append(items, timed...)
}
