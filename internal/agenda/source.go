package agenda

import (
	"context"
	"time"
)

type Access struct {
	Calendars bool `json:"calendars"`
	Reminders bool `json:"reminders"`
}

// Source is the platform capability that supplies agenda data.
//
// FetchDay must honor explicitly empty selections: a Filter whose Calendars
// selection is empty (not All) yields no events, and likewise for reminder
// lists.
type Source interface {
	RequestAccess(ctx context.Context) (Access, error)
	FetchDay(ctx context.Context, day time.Time, filter Filter) (Day, error)
	SetCompleted(ctx context.Context, listID, reminderID string, completed bool) (ReminderItem, error)
}

// Catalog enumerates what a Source can filter on.
type Catalog interface {
	Calendars(ctx context.Context) ([]Calendar, error)
	ReminderLists(ctx context.Context) ([]Calendar, error)
}
