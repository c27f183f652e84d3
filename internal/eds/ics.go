package eds

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/rbright/weekview/internal/agenda"
)

func parseCalendarPayload(payload string) (*ics.Calendar, error) {
	trimmed := strings.TrimSpace(payload)
	if !strings.HasPrefix(strings.ToUpper(trimmed), "BEGIN:VCALENDAR") {
		trimmed = "BEGIN:VCALENDAR\n" + trimmed + "\nEND:VCALENDAR\n"
	}
	parsed, err := ics.ParseCalendar(strings.NewReader(trimmed))
	if err != nil {
		return nil, fmt.Errorf("parse ics payload: %w", err)
	}
	return parsed, nil
}

func parseEventPayload(calendar agenda.Calendar, payload string) ([]agenda.RawEvent, error) {
	parsed, err := parseCalendarPayload(payload)
	if err != nil {
		return nil, err
	}

	events := parsed.Events()
	if len(events) == 0 {
		return nil, nil
	}

	results := make([]agenda.RawEvent, 0, len(events))
	for _, event := range events {
		raw, mapErr := mapEvent(calendar, event)
		if mapErr != nil {
			continue
		}
		results = append(results, raw)
	}
	return results, nil
}

func mapEvent(calendar agenda.Calendar, event *ics.VEvent) (agenda.RawEvent, error) {
	start, err := event.GetStartAt()
	if err != nil {
		return agenda.RawEvent{}, err
	}

	end, err := event.GetEndAt()
	if err != nil || !end.After(start) {
		end = start.Add(30 * time.Minute)
	}

	uid := propertyValue(event.GetProperty(ics.ComponentPropertyUniqueId))
	if strings.TrimSpace(uid) == "" {
		uid = strings.TrimSpace(propertyValue(event.GetProperty(ics.ComponentPropertySummary)))
	}

	allDay := isAllDay(event.GetProperty(ics.ComponentPropertyDtStart))
	if allDay {
		start = dateInLocal(start)
		end = dateInLocal(end)
		if !end.After(start) {
			end = start.AddDate(0, 0, 1)
		}
	}

	recurrenceIDProp := event.GetProperty(ics.ComponentPropertyRecurrenceId)
	var recurrenceAt *time.Time
	if recurrenceIDProp != nil {
		if parsedRecurrence, parseErr := parseICSTimeValue(recurrenceIDProp.Value, recurrenceIDProp.ICalParameters); parseErr == nil {
			recurrenceAt = &parsedRecurrence
		}
	}

	url := strings.TrimSpace(propertyValue(event.GetProperty(ics.ComponentPropertyUrl)))
	if url == "" {
		url = strings.TrimSpace(propertyValue(event.GetProperty(ics.ComponentProperty("X-GOOGLE-CONFERENCE"))))
	}

	return agenda.RawEvent{
		CalendarUID:   calendar.UID,
		CalendarName:  calendar.Name,
		CalendarColor: calendar.Color,
		UID:           sanitize(uid),
		RecurrenceID:  strings.TrimSpace(propertyValue(recurrenceIDProp)),
		RecurrenceAt:  recurrenceAt,
		Summary:       sanitize(propertyValue(event.GetProperty(ics.ComponentPropertySummary))),
		Description:   strings.TrimSpace(propertyValue(event.GetProperty(ics.ComponentPropertyDescription))),
		Location:      strings.TrimSpace(propertyValue(event.GetProperty(ics.ComponentPropertyLocation))),
		URL:           url,
		Start:         start,
		End:           end,
		AllDay:        allDay,
		RRULE:         strings.TrimSpace(propertyValue(event.GetProperty(ics.ComponentPropertyRrule))),
		RDates:        collectDateTimes(event.GetProperties(ics.ComponentPropertyRdate)),
		ExDates:       collectDateTimes(event.GetProperties(ics.ComponentPropertyExdate)),
	}, nil
}

func parseTaskPayload(list agenda.Calendar, payload string) ([]agenda.ReminderItem, error) {
	parsed, err := parseCalendarPayload(payload)
	if err != nil {
		return nil, err
	}

	todos := parsed.Todos()
	results := make([]agenda.ReminderItem, 0, len(todos))
	for _, todo := range todos {
		results = append(results, mapTodo(list, todo))
	}
	return results, nil
}

func mapTodo(list agenda.Calendar, todo *ics.VTodo) agenda.ReminderItem {
	item := agenda.ReminderItem{
		ID:        sanitize(propertyValue(todo.GetProperty(ics.ComponentPropertyUniqueId))),
		Title:     sanitize(fallback(propertyValue(todo.GetProperty(ics.ComponentPropertySummary)), "Untitled Reminder")),
		Completed: todoCompleted(todo),
		ListID:    list.UID,
		ListName:  list.Name,
		ListColor: list.Color,
	}

	due := todo.GetProperty(ics.ComponentPropertyDue)
	if due == nil {
		due = todo.GetProperty(ics.ComponentPropertyDtStart)
	}
	if due != nil {
		if parsed, err := parseICSTimeValue(due.Value, due.ICalParameters); err == nil {
			item.AllDay = isAllDay(due)
			item.Due = &parsed
		}
	}
	return item
}

func todoCompleted(todo *ics.VTodo) bool {
	status := strings.ToUpper(strings.TrimSpace(propertyValue(todo.GetProperty(ics.ComponentPropertyStatus))))
	if status == "COMPLETED" {
		return true
	}
	return strings.TrimSpace(propertyValue(todo.GetProperty(ics.ComponentPropertyCompleted))) != ""
}

// setTodoCompleted rewrites a task payload with the new completion state and
// returns the serialized VTODO.
func setTodoCompleted(payload string, completed bool, now time.Time) (string, *ics.VTodo, error) {
	parsed, err := parseCalendarPayload(payload)
	if err != nil {
		return "", nil, err
	}

	todos := parsed.Todos()
	if len(todos) == 0 {
		return "", nil, fmt.Errorf("payload has no VTODO")
	}

	for _, todo := range todos {
		if completed {
			todo.SetProperty(ics.ComponentPropertyStatus, "COMPLETED")
			todo.SetProperty(ics.ComponentPropertyPercentComplete, "100")
			todo.SetProperty(ics.ComponentPropertyCompleted, now.UTC().Format("20060102T150405Z"))
		} else {
			todo.SetProperty(ics.ComponentPropertyStatus, "NEEDS-ACTION")
			todo.SetProperty(ics.ComponentPropertyPercentComplete, "0")
			todo.RemoveProperty(ics.ComponentPropertyCompleted)
		}
		todo.SetProperty(ics.ComponentPropertyLastModified, now.UTC().Format("20060102T150405Z"))
	}

	serialized := parsed.Serialize()
	begin := strings.Index(serialized, "BEGIN:VTODO")
	end := strings.LastIndex(serialized, "END:VTODO")
	if begin < 0 || end < 0 {
		return "", nil, fmt.Errorf("serialize VTODO")
	}
	return serialized[begin:end+len("END:VTODO")] + "\r\n", todos[0], nil
}

func collectDateTimes(properties []*ics.IANAProperty) []time.Time {
	if len(properties) == 0 {
		return nil
	}

	results := make([]time.Time, 0, len(properties))
	for _, property := range properties {
		if property == nil {
			continue
		}
		for _, value := range strings.Split(property.Value, ",") {
			parsed, err := parseICSTimeValue(strings.TrimSpace(value), property.ICalParameters)
			if err != nil {
				continue
			}
			results = append(results, parsed)
		}
	}
	return results
}

func parseICSTimeValue(value string, params map[string][]string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}

	var location *time.Location
	if tzIDs, ok := params["TZID"]; ok && len(tzIDs) > 0 && strings.TrimSpace(tzIDs[0]) != "" {
		loaded, err := time.LoadLocation(strings.TrimSpace(tzIDs[0]))
		if err == nil {
			location = loaded
		}
	}

	layouts := []string{
		"20060102T150405Z",
		"20060102T1504Z",
		"20060102T150405",
		"20060102T1504",
		"20060102",
	}

	for _, layout := range layouts {
		if strings.HasSuffix(layout, "Z") {
			parsed, err := time.Parse(layout, trimmed)
			if err == nil {
				return parsed, nil
			}
			continue
		}

		loc := time.Local
		if location != nil {
			loc = location
		}

		parsed, err := time.ParseInLocation(layout, trimmed, loc)
		if err == nil {
			return parsed, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time value %q", trimmed)
}

// dateInLocal keeps the calendar date of a DATE value but anchors it at local
// midnight, so all-day items land on the same day key in every zone.
func dateInLocal(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.Local)
}

func isAllDay(property *ics.IANAProperty) bool {
	if property == nil {
		return false
	}
	if values, ok := property.ICalParameters["VALUE"]; ok && len(values) > 0 {
		for _, value := range values {
			if strings.EqualFold(strings.TrimSpace(value), "DATE") {
				return true
			}
		}
	}
	return len(strings.TrimSpace(property.Value)) == 8
}

func propertyValue(property *ics.IANAProperty) string {
	if property == nil {
		return ""
	}
	return property.Value
}

func sanitize(value string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(value)), " ")
}
