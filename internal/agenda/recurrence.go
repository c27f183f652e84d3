package agenda

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

const defaultEventDuration = 30 * time.Minute

// RawEvent is a VEVENT as stored by the platform, before recurrence expansion.
type RawEvent struct {
	CalendarUID   string
	CalendarName  string
	CalendarColor string

	UID          string
	RecurrenceID string
	RecurrenceAt *time.Time

	Summary     string
	Description string
	Location    string
	URL         string

	Start  time.Time
	End    time.Time
	AllDay bool

	RRULE   string
	RDates  []time.Time
	ExDates []time.Time
}

// ExpandEvents turns raw events into the concrete occurrences overlapping
// [windowStart, windowEnd), applying RRULE, RDATE, EXDATE and RECURRENCE-ID
// overrides.
func ExpandEvents(events []RawEvent, windowStart, windowEnd time.Time) []CalendarEvent {
	if len(events) == 0 {
		return nil
	}

	masters := make([]RawEvent, 0, len(events))
	singles := make([]RawEvent, 0, len(events))
	overrides := make(map[string]RawEvent)
	usedOverrides := make(map[string]bool)

	for _, event := range events {
		if strings.TrimSpace(event.UID) == "" {
			continue
		}

		if strings.TrimSpace(event.RRULE) != "" {
			masters = append(masters, event)
			continue
		}

		if strings.TrimSpace(event.RecurrenceID) != "" {
			overrides[overrideKeyForEvent(event)] = event
			continue
		}

		singles = append(singles, event)
	}

	occurrences := make([]CalendarEvent, 0, len(events))

	for _, event := range singles {
		if !overlaps(event.Start, event.End, windowStart, windowEnd) {
			continue
		}
		occurrences = append(occurrences, occurrenceFromRaw(event, event.Start, event.End))
	}

	for _, master := range masters {
		duration := master.End.Sub(master.Start)
		if duration <= 0 {
			duration = defaultEventDuration
		}

		for _, start := range expandRRuleStarts(master, windowStart.Add(-duration), windowEnd) {
			key := overrideKey(master.CalendarUID, master.UID, start)
			if override, ok := overrides[key]; ok {
				usedOverrides[key] = true
				overrideEnd := override.End
				if !overrideEnd.After(override.Start) {
					overrideEnd = override.Start.Add(duration)
				}
				if !overlaps(override.Start, overrideEnd, windowStart, windowEnd) {
					continue
				}
				occurrences = append(occurrences, occurrenceFromRaw(override, override.Start, overrideEnd))
				continue
			}

			end := start.Add(duration)
			if !overlaps(start, end, windowStart, windowEnd) {
				continue
			}
			occurrences = append(occurrences, occurrenceFromRaw(master, start, end))
		}
	}

	for key, override := range overrides {
		if usedOverrides[key] {
			continue
		}
		if !overlaps(override.Start, override.End, windowStart, windowEnd) {
			continue
		}
		occurrences = append(occurrences, occurrenceFromRaw(override, override.Start, override.End))
	}

	unique := dedupeOccurrences(occurrences)
	SortEvents(unique)
	return unique
}

func SortEvents(items []CalendarEvent) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Start.Equal(items[j].Start) {
			return items[i].Start.Before(items[j].Start)
		}
		if !strings.EqualFold(items[i].CalendarName, items[j].CalendarName) {
			return strings.ToLower(items[i].CalendarName) < strings.ToLower(items[j].CalendarName)
		}
		return items[i].ID < items[j].ID
	})
}

func expandRRuleStarts(event RawEvent, windowStart, windowEnd time.Time) []time.Time {
	opt, err := rrule.StrToROption(event.RRULE)
	if err != nil {
		return fallbackStarts(event, windowStart, windowEnd)
	}

	opt.Dtstart = event.Start
	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return fallbackStarts(event, windowStart, windowEnd)
	}

	set := &rrule.Set{}
	set.RRule(rule)
	for _, exdate := range event.ExDates {
		set.ExDate(exdate)
	}
	for _, rdate := range event.RDates {
		set.RDate(rdate)
	}

	starts := set.Between(windowStart, windowEnd, true)
	sort.Slice(starts, func(i, j int) bool {
		return starts[i].Before(starts[j])
	})
	return starts
}

func fallbackStarts(event RawEvent, windowStart, windowEnd time.Time) []time.Time {
	if overlaps(event.Start, event.End, windowStart, windowEnd) {
		return []time.Time{event.Start}
	}
	return nil
}

func overlaps(start, end, windowStart, windowEnd time.Time) bool {
	if !end.After(start) {
		end = start.Add(defaultEventDuration)
	}
	return start.Before(windowEnd) && end.After(windowStart)
}

// occurrenceFromRaw keys recurring instances by start so each occurrence has
// its own stable identifier.
func occurrenceFromRaw(event RawEvent, start, end time.Time) CalendarEvent {
	id := event.UID
	if strings.TrimSpace(event.RRULE) != "" || strings.TrimSpace(event.RecurrenceID) != "" {
		id = fmt.Sprintf("%s@%s", event.UID, start.UTC().Format("20060102T150405Z"))
	}

	return CalendarEvent{
		ID:            id,
		Title:         sanitize(fallback(event.Summary, "Untitled Event")),
		Start:         start,
		End:           end,
		AllDay:        event.AllDay,
		CalendarID:    event.CalendarUID,
		CalendarName:  event.CalendarName,
		CalendarColor: event.CalendarColor,
		Location:      sanitize(event.Location),
		URL:           strings.TrimSpace(event.URL),
		Description:   strings.TrimSpace(event.Description),
	}
}

func dedupeOccurrences(items []CalendarEvent) []CalendarEvent {
	if len(items) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(items))
	results := make([]CalendarEvent, 0, len(items))
	for _, item := range items {
		key := strings.Join([]string{
			item.CalendarID,
			item.ID,
			item.Start.UTC().Format(time.RFC3339Nano),
			item.End.UTC().Format(time.RFC3339Nano),
		}, "|")
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		results = append(results, item)
	}
	return results
}

func overrideKeyForEvent(event RawEvent) string {
	if event.RecurrenceAt != nil {
		return overrideKey(event.CalendarUID, event.UID, *event.RecurrenceAt)
	}
	return overrideKey(event.CalendarUID, event.UID, event.Start)
}

func overrideKey(calendarUID, uid string, start time.Time) string {
	return fmt.Sprintf("%s|%s|%s", calendarUID, uid, start.UTC().Format(time.RFC3339Nano))
}
