package agenda

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// NextEvent is the earliest timed event that has not ended and starts within
// the given horizon.
func NextEvent(items []CalendarEvent, now time.Time, within time.Duration) (CalendarEvent, bool) {
	windowEnd := now.Add(within)
	candidates := make([]CalendarEvent, 0, len(items))
	for _, item := range items {
		if item.AllDay {
			continue
		}
		if !item.End.After(now) {
			continue
		}
		if item.Start.After(windowEnd) {
			continue
		}
		candidates = append(candidates, item)
	}

	if len(candidates) == 0 {
		return CalendarEvent{}, false
	}

	SortEvents(candidates)
	return candidates[0], true
}

// OpenReminders counts reminders that are not completed.
func OpenReminders(items []ReminderItem) int {
	count := 0
	for _, item := range items {
		if !item.Completed {
			count++
		}
	}
	return count
}

func CountdownText(now time.Time, item CalendarEvent) string {
	if !item.Start.After(now) {
		return "now"
	}
	return HumanizeDuration(item.Start.Sub(now))
}

func HumanizeDuration(d time.Duration) string {
	if d <= 0 {
		return "now"
	}

	minutes := int(math.Ceil(d.Minutes()))
	days := minutes / (24 * 60)
	remaining := minutes % (24 * 60)
	hours := remaining / 60
	mins := remaining % 60

	parts := make([]string, 0, 3)
	if days > 0 {
		parts = append(parts, strconv.Itoa(days)+"d")
	}
	if hours > 0 {
		parts = append(parts, strconv.Itoa(hours)+"h")
	}
	if mins > 0 {
		parts = append(parts, strconv.Itoa(mins)+"m")
	}
	if len(parts) == 0 {
		parts = append(parts, "0m")
	}
	return strings.Join(parts, " ")
}
