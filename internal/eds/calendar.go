package eds

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rbright/weekview/internal/agenda"
)

func (c *Client) FetchRawEvents(ctx context.Context, calendars []agenda.Calendar, windowStart, windowEnd time.Time) ([]agenda.RawEvent, error) {
	query := buildTimeRangeQuery("occur-in-time-range?", windowStart, windowEnd)

	events := make([]agenda.RawEvent, 0, 16)
	err := c.eachObjectList(ctx, KindCalendar, calendars, query, func(calendar agenda.Calendar, payload string) {
		mapped, parseErr := parseEventPayload(calendar, payload)
		if parseErr != nil {
			return
		}
		events = append(events, mapped...)
	})
	if err != nil && len(events) == 0 {
		return nil, err
	}
	return events, nil
}

// FetchTasks returns the tasks of the given lists that are due inside the
// window. Completed tasks are left out unless includeCompleted is set.
func (c *Client) FetchTasks(ctx context.Context, lists []agenda.Calendar, windowStart, windowEnd time.Time, includeCompleted bool) ([]agenda.ReminderItem, error) {
	query := buildTimeRangeQuery("due-in-time-range?", windowStart, windowEnd)
	if !includeCompleted {
		query = "(and " + query + " (not (is-completed?)))"
	}

	tasks := make([]agenda.ReminderItem, 0, 8)
	err := c.eachObjectList(ctx, KindTaskList, lists, query, func(list agenda.Calendar, payload string) {
		mapped, parseErr := parseTaskPayload(list, payload)
		if parseErr != nil {
			return
		}
		for _, task := range mapped {
			if task.Completed && !includeCompleted {
				continue
			}
			tasks = append(tasks, task)
		}
	})
	if err != nil && len(tasks) == 0 {
		return nil, err
	}
	return tasks, nil
}

// eachObjectList runs query against every source and hands each returned
// component to visit. It only fails when no source could be queried.
func (c *Client) eachObjectList(ctx context.Context, kind Kind, sources []agenda.Calendar, query string, visit func(agenda.Calendar, string)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(sources) == 0 {
		return nil
	}

	failures := make([]string, 0)
	succeeded := 0
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		if strings.TrimSpace(source.UID) == "" {
			continue
		}

		backend, err := c.backend(ctx, kind, source.UID)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %s", source.Name, err.Error()))
			continue
		}

		var payloads []string
		if err := backend.CallWithContext(ctx, calendarIface+".GetObjectList", 0, query).Store(&payloads); err != nil {
			failures = append(failures, fmt.Sprintf("%s: query: %s", source.Name, err.Error()))
			continue
		}

		succeeded++
		for _, payload := range payloads {
			visit(source, payload)
		}
	}

	if succeeded == 0 && len(failures) > 0 {
		return fmt.Errorf("failed to query %s sources: %s", strings.ToLower(string(kind)), strings.Join(failures, "; "))
	}
	return nil
}

func buildTimeRangeQuery(function string, windowStart, windowEnd time.Time) string {
	start := windowStart.UTC().Format("20060102T150405Z")
	end := windowEnd.UTC().Format("20060102T150405Z")
	return fmt.Sprintf("(%s (make-time \"%s\") (make-time \"%s\"))", function, start, end)
}
