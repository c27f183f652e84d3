package eds

import (
	"strings"
	"testing"
	"time"

	"github.com/rbright/weekview/internal/agenda"
)

var workCalendar = agenda.Calendar{UID: "work", Name: "Work", Color: "#3465a4", Enabled: true}

func TestParseEventPayload_TimedEvent(t *testing.T) {
	t.Parallel()

	payload := strings.Join([]string{
		"BEGIN:VEVENT",
		"UID:evt-1",
		"SUMMARY:Design   review",
		"DTSTART:20261019T090000Z",
		"DTEND:20261019T100000Z",
		"LOCATION:https://meet.google.com/abc-defg-hij",
		"RRULE:FREQ=WEEKLY;COUNT=4",
		"EXDATE:20261026T090000Z",
		"END:VEVENT",
	}, "\n")

	events, err := parseEventPayload(workCalendar, payload)
	if err != nil {
		t.Fatalf("parseEventPayload() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	event := events[0]
	if event.UID != "evt-1" || event.Summary != "Design review" {
		t.Fatalf("unexpected identity: %+v", event)
	}
	if event.AllDay {
		t.Fatal("timed event flagged all-day")
	}
	if !event.Start.Equal(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", event.Start)
	}
	if event.RRULE != "FREQ=WEEKLY;COUNT=4" || len(event.ExDates) != 1 {
		t.Fatalf("recurrence not captured: %q %v", event.RRULE, event.ExDates)
	}
	if event.CalendarColor != "#3465a4" {
		t.Fatalf("calendar color not carried: %q", event.CalendarColor)
	}
}

func TestParseEventPayload_AllDayEvent(t *testing.T) {
	t.Parallel()

	payload := "BEGIN:VEVENT\nUID:holiday\nSUMMARY:Holiday\nDTSTART;VALUE=DATE:20261020\nDTEND;VALUE=DATE:20261021\nEND:VEVENT"
	events, err := parseEventPayload(workCalendar, payload)
	if err != nil || len(events) != 1 {
		t.Fatalf("parseEventPayload() = %v, %v", events, err)
	}

	event := events[0]
	if !event.AllDay {
		t.Fatal("expected all-day event")
	}
	if event.Start.Day() != 20 || event.Start.Hour() != 0 || event.Start.Location() != time.Local {
		t.Fatalf("all-day start should be local midnight, got %v", event.Start)
	}
}

func TestParseTaskPayload_DateOnlyDueIsAllDay(t *testing.T) {
	t.Parallel()

	list := agenda.Calendar{UID: "inbox", Name: "Inbox", Color: "#ff0000"}
	payload := strings.Join([]string{
		"BEGIN:VTODO",
		"UID:task-1",
		"SUMMARY:Renew passport",
		"DUE;VALUE=DATE:20261022",
		"STATUS:NEEDS-ACTION",
		"END:VTODO",
		"BEGIN:VTODO",
		"UID:task-2",
		"SUMMARY:Call bank",
		"DUE:20261022T143000Z",
		"STATUS:COMPLETED",
		"END:VTODO",
	}, "\n")

	tasks, err := parseTaskPayload(list, payload)
	if err != nil {
		t.Fatalf("parseTaskPayload() error = %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}

	dateOnly := tasks[0]
	if !dateOnly.AllDay || dateOnly.Due == nil || dateOnly.Due.Day() != 22 {
		t.Fatalf("expected all-day due on the 22nd, got %+v", dateOnly)
	}
	if dateOnly.Completed || dateOnly.ListName != "Inbox" || dateOnly.ListColor != "#ff0000" {
		t.Fatalf("unexpected task fields: %+v", dateOnly)
	}

	timed := tasks[1]
	if timed.AllDay || !timed.Completed {
		t.Fatalf("unexpected timed task: %+v", timed)
	}
}

func TestSetTodoCompleted_RoundTrip(t *testing.T) {
	t.Parallel()

	payload := "BEGIN:VTODO\r\nUID:task-9\r\nSUMMARY:Water plants\r\nDUE:20261023T080000Z\r\nSTATUS:NEEDS-ACTION\r\nEND:VTODO\r\n"
	now := time.Date(2026, 10, 23, 7, 45, 0, 0, time.UTC)

	done, todo, err := setTodoCompleted(payload, true, now)
	if err != nil {
		t.Fatalf("setTodoCompleted() error = %v", err)
	}
	if !strings.HasPrefix(done, "BEGIN:VTODO") || strings.Contains(done, "VCALENDAR") {
		t.Fatalf("expected a bare VTODO, got %q", done)
	}
	if !strings.Contains(done, "COMPLETED:20261023T074500Z") || !strings.Contains(done, "PERCENT-COMPLETE:100") {
		t.Fatalf("completion properties missing: %q", done)
	}
	if item := mapTodo(agenda.Calendar{UID: "inbox"}, todo); !item.Completed || item.ID != "task-9" {
		t.Fatalf("unexpected mapped task: %+v", item)
	}

	undone, todo, err := setTodoCompleted(done, false, now)
	if err != nil {
		t.Fatalf("setTodoCompleted(undo) error = %v", err)
	}
	if strings.Contains(undone, "COMPLETED:2026") || !strings.Contains(undone, "STATUS:NEEDS-ACTION") {
		t.Fatalf("undo left completion behind: %q", undone)
	}
	if mapTodo(agenda.Calendar{}, todo).Completed {
		t.Fatal("expected open task after undo")
	}
}

func TestSetTodoCompleted_RejectsEvents(t *testing.T) {
	t.Parallel()

	if _, _, err := setTodoCompleted("BEGIN:VEVENT\nUID:x\nDTSTART:20261019T090000Z\nEND:VEVENT", true, time.Now()); err == nil {
		t.Fatal("expected error for payload without VTODO")
	}
}

func TestBuildTimeRangeQuery(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	got := buildTimeRangeQuery("due-in-time-range?", start, start.AddDate(0, 0, 1))
	want := `(due-in-time-range? (make-time "20261019T000000Z") (make-time "20261020T000000Z"))`
	if got != want {
		t.Fatalf("buildTimeRangeQuery() = %q", got)
	}
}
